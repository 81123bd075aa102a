// Package cli is the terminal driving adapter: cobra commands that render
// review data with lipgloss.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/config"
	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// App is the wired application a command runs against.
type App struct {
	Config    *config.Config
	Tokens    *application.TokenService
	Sessions  *application.SessionManager
	Workspace *application.WorkspaceService
	// Close releases resources opened by the WireFunc. May be nil.
	Close func() error
}

// WireFunc builds an App from configuration.
type WireFunc func(ctx context.Context, cfg *config.Config) (*App, error)

type rootState struct {
	wire WireFunc
	app  *App

	path      string
	projectID int
	iid       int
	kind      string
}

// NewRootCommand returns the mrpanel command tree. wire is called once per
// invocation after configuration has loaded.
func NewRootCommand(wire WireFunc) *cobra.Command {
	root, _ := newRoot(wire)
	return root
}

func newRoot(wire WireFunc) (*cobra.Command, *rootState) {
	st := &rootState{wire: wire}

	root := &cobra.Command{
		Use:   "mrpanel",
		Short: "mrpanel - GitLab merge request review panel",
		Long: `mrpanel maps a local git working copy to its GitLab project and shows
merge request changes, discussions, branch status, custom queries,
CI lint results and snippets. "mrpanel serve" exposes the same data as
a JSON API for editor integrations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

			app, err := st.wire(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			st.app = app
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return st.close()
		},
	}

	root.PersistentFlags().StringVar(&st.path, "path", ".", "path inside the git working copy")

	root.AddCommand(
		newServeCmd(st),
		newTreeCmd(st),
		newDiffCmd(st),
		newDiscussionsCmd(st),
		newStatusCmd(st),
		newPipelineCmd(st),
		newSearchCmd(st),
		newLintCmd(st),
		newSnippetsCmd(st),
		newTokenCmd(st),
	)
	return root, st
}

// Execute loads a .env file if present and runs the command tree. The App is
// closed even when a command fails, which skips the post-run hook.
func Execute(ctx context.Context, wire WireFunc) error {
	_ = godotenv.Load()
	root, st := newRoot(wire)
	err := root.ExecuteContext(ctx)
	if closeErr := st.close(); closeErr != nil {
		slog.Error("error closing application", "error", closeErr)
	}
	return err
}

func (st *rootState) close() error {
	if st.app == nil || st.app.Close == nil {
		return nil
	}
	err := st.app.Close()
	st.app = nil
	return err
}

// addIssuableFlags registers the flags that select an issuable explicitly.
// Without them commands use the open merge request of the current branch.
func (st *rootState) addIssuableFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&st.projectID, "project", 0, "project id (default: the workspace project)")
	cmd.Flags().IntVar(&st.iid, "iid", 0, "merge request or issue iid (default: the branch's open merge request)")
	cmd.Flags().StringVar(&st.kind, "kind", string(model.IssuableKindMergeRequest), "issuable kind: merge_request or issue")
}

// openSession starts a review session for the selected issuable.
func (st *rootState) openSession(ctx context.Context) (*application.ReviewSession, error) {
	kind, ok := model.ParseIssuableKind(st.kind)
	if !ok {
		return nil, errors.New("unknown kind: " + st.kind)
	}

	projectID, iid := st.projectID, st.iid
	if iid == 0 {
		if kind != model.IssuableKindMergeRequest {
			return nil, errors.New("--iid is required for " + st.kind)
		}
		project, mr, err := st.app.Workspace.CurrentMergeRequest(ctx, st.path)
		if err != nil {
			return nil, err
		}
		projectID, iid = project.ID, mr.IID
	} else if projectID == 0 {
		_, project, err := st.app.Workspace.ResolveProject(ctx, st.path)
		if err != nil {
			return nil, err
		}
		projectID = project.ID
	}

	return st.app.Sessions.Open(ctx, projectID, iid, kind)
}

// withSession runs fn against a session that is disposed afterwards.
func (st *rootState) withSession(ctx context.Context, fn func(*application.ReviewSession) error) error {
	s, err := st.openSession(ctx)
	if err != nil {
		return err
	}
	defer st.app.Sessions.Close(s.ID())
	return fn(s)
}

func parsePositive(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.New(name + " must be a positive number")
	}
	return n, nil
}
