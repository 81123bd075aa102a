package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

func newTreeCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the changed files of a merge request",
		Long: `Show the changed files of the latest merge request version as a tree.

Without --iid the open merge request of the current branch is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.withSession(cmd.Context(), func(s *application.ReviewSession) error {
				mr := s.Issuable()
				if !mr.IsMergeRequest() {
					return model.ErrNotMergeRequest
				}
				files, err := s.ChangedFiles()
				if err != nil {
					return err
				}
				title := fmt.Sprintf("!%d %s", mr.IID, mr.Title)
				fmt.Fprintln(cmd.OutOrStdout(), renderFileTree(title, files))
				return nil
			})
		},
	}
	st.addIssuableFlags(cmd)
	return cmd
}

func newDiffCmd(st *rootState) *cobra.Command {
	var versionID int
	cmd := &cobra.Command{
		Use:   "diff FILE",
		Short: "Show the base/head line diff of a changed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return st.withSession(ctx, func(s *application.ReviewSession) error {
				content := func(side model.DiffSide) (string, error) {
					if versionID > 0 {
						return s.ContentAt(ctx, versionID, args[0], side)
					}
					return s.Content(ctx, args[0], side)
				}
				base, err := content(model.DiffSideBase)
				if err != nil {
					return err
				}
				head, err := content(model.DiffSideHead)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderLineDiff(base, head))
				return nil
			})
		},
	}
	st.addIssuableFlags(cmd)
	cmd.Flags().IntVar(&versionID, "version", 0, "merge request version id (default latest)")
	return cmd
}

func newDiscussionsCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discussions",
		Short: "Show the discussion timeline of a merge request or issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return st.withSession(ctx, func(s *application.ReviewSession) error {
				set, err := s.LoadDiscussions(ctx)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTimeline(set.Timeline))
				return nil
			})
		},
	}
	st.addIssuableFlags(cmd)
	return cmd
}
