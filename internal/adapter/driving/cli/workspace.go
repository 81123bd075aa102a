package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

var errLintFailed = errors.New("CI configuration is invalid")

func newStatusCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline, merge request and closing issues of the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := st.app.Workspace.BranchStatus(cmd.Context(), st.path)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderBranchStatus(status))
			return nil
		},
	}
}

func newPipelineCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:       "pipeline create|retry|cancel",
		Short:     "Create a pipeline on the current branch, or retry or cancel its last one",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"create", "retry", "cancel"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action, ok := model.ParsePipelineAction(args[0])
			if !ok {
				return fmt.Errorf("unknown pipeline action %q", args[0])
			}
			p, err := st.app.Workspace.PipelineAction(cmd.Context(), st.path, action)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pipeline #%d %s %s\n", p.ID, statusStyle(p.Status).Render(p.Status), mutedStyle.Render(p.WebURL))
			return nil
		},
	}
}

func newLintCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [FILE]",
		Short: "Validate a CI configuration against the workspace project",
		Long: `Validate a CI configuration. FILE defaults to .gitlab-ci.yml at --path.
YAML syntax errors are reported without contacting GitLab.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := filepath.Join(st.path, ".gitlab-ci.yml")
			if len(args) == 1 {
				file = args[0]
			}
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read CI configuration: %w", err)
			}

			v, err := st.app.Workspace.ValidateCIConfig(cmd.Context(), st.path, string(content))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderValidation(v))
			if !v.Valid {
				return errLintFailed
			}
			return nil
		},
	}
}

func newSnippetsCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snippets",
		Short: "List the snippets of the workspace project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snippets, err := st.app.Workspace.Snippets(cmd.Context(), st.path)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSnippets(snippets))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show ID FILE",
		Short: "Print one file of a snippet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositive("snippet id", args[0])
			if err != nil {
				return err
			}
			content, err := st.app.Workspace.SnippetContent(cmd.Context(), st.path, id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	})
	cmd.AddCommand(newSnippetCreateCmd(st), newSnippetApplyCmd(st))
	return cmd
}

func newSnippetCreateCmd(st *rootState) *cobra.Command {
	var (
		title      string
		visibility string
		lines      string
	)

	cmd := &cobra.Command{
		Use:   "create FILE",
		Short: "Create a project snippet from a file or some of its lines",
		Long: `Create a snippet in the workspace project from FILE. --lines START:END
selects an inclusive, 1-based line range instead of the whole file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vis, ok := model.ParseSnippetVisibility(visibility)
			if !ok {
				return fmt.Errorf("%w: visibility must be private, internal or public", model.ErrInvalidSnippet)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snippet file: %w", err)
			}
			content := string(data)
			if lines != "" {
				from, to, err := parseLineRange(lines)
				if err != nil {
					return err
				}
				if content, err = model.SelectLines(content, from, to); err != nil {
					return err
				}
			}

			s, err := st.app.Workspace.CreateSnippet(cmd.Context(), st.path, model.NewSnippet{
				Title:      title,
				FileName:   filepath.Base(args[0]),
				Content:    content,
				Visibility: vis,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created snippet %s %s\n", accentStyle.Render(fmt.Sprintf("$%d", s.ID)), mutedStyle.Render(s.WebURL))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&title, "title", "", "snippet title (default: the file name)")
	f.StringVar(&visibility, "visibility", string(model.SnippetVisibilityPrivate), "private, internal or public")
	f.StringVar(&lines, "lines", "", "line range START:END")
	return cmd
}

func newSnippetApplyCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "apply [ID]",
		Short: "Apply the .patch file of a snippet to the working copy",
		Long: `Apply the first file ending in .patch of snippet ID to the working copy
at --path. Without ID, list the snippets that carry a patch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				snippets, err := st.app.Workspace.PatchSnippets(cmd.Context(), st.path)
				if err != nil {
					return err
				}
				if len(snippets) == 0 {
					return model.ErrNoPatchSnippets
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSnippets(snippets))
				return nil
			}

			id, err := parsePositive("snippet id", args[0])
			if err != nil {
				return err
			}
			applied, err := st.app.Workspace.ApplySnippetPatch(cmd.Context(), st.path, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderAppliedPatch(applied))
			return nil
		},
	}
}

// parseLineRange parses START:END. A single number selects one line.
func parseLineRange(v string) (int, int, error) {
	start, end, found := strings.Cut(v, ":")
	if !found {
		end = start
	}
	from, err := strconv.Atoi(start)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: --lines must be START:END", model.ErrInvalidSnippet)
	}
	to, err := strconv.Atoi(end)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: --lines must be START:END", model.ErrInvalidSnippet)
	}
	return from, to, nil
}
