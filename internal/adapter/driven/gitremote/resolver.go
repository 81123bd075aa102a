// Package gitremote implements the RemoteResolver and PatchApplier ports on
// local repositories with go-git.
package gitremote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

const defaultRemote = "origin"

// Compile-time interface satisfaction check.
var _ driven.RemoteResolver = (*Resolver)(nil)

// Resolver maps working copies to GitLab remotes of one instance.
type Resolver struct {
	instancePath string
}

// NewResolver creates a Resolver for remotes hosted under instanceURL.
func NewResolver(instanceURL string) *Resolver {
	return &Resolver{instancePath: InstancePath(instanceURL)}
}

// Resolve opens the repository containing workspacePath and returns its
// GitLab remote and branch. The remote is chosen in order: remoteName, the
// current branch's upstream remote, "origin", then the first remote by name.
func (r *Resolver) Resolve(_ context.Context, workspacePath, remoteName string) (*model.Workspace, error) {
	repo, err := git.PlainOpenWithOptions(workspacePath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("no git repository at %s: %w", workspacePath, driven.ErrNotFound)
		}
		return nil, fmt.Errorf("open repository at %s: %w", workspacePath, err)
	}

	root := workspacePath
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	branch, err := currentBranch(repo)
	if err != nil {
		return nil, fmt.Errorf("read HEAD of %s: %w", root, err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return nil, fmt.Errorf("read git config of %s: %w", root, err)
	}

	tracking := branch
	name := remoteName
	if b, ok := cfg.Branches[branch]; ok && b != nil {
		if name == "" {
			name = b.Remote
		}
		if b.Merge != "" {
			tracking = b.Merge.Short()
		}
	}
	if tracking != branch {
		slog.Debug("using tracking branch", "branch", branch, "tracking", tracking)
	}

	if name == "" {
		if _, ok := cfg.Remotes[defaultRemote]; ok {
			name = defaultRemote
		} else {
			names := make([]string, 0, len(cfg.Remotes))
			for n := range cfg.Remotes {
				names = append(names, n)
			}
			slices.Sort(names)
			if len(names) > 0 {
				name = names[0]
			}
		}
	}

	rc, ok := cfg.Remotes[name]
	if !ok || rc == nil || len(rc.URLs) == 0 {
		return nil, fmt.Errorf("remote %q of %s: %w", name, root, driven.ErrNotFound)
	}

	info, ok := ParseRemote(rc.URLs[0], r.instancePath)
	if !ok {
		return nil, fmt.Errorf("remote %q url %q is not a GitLab project URL: %w", name, rc.URLs[0], driven.ErrNotFound)
	}

	return &model.Workspace{
		Path:           root,
		Remote:         info,
		Branch:         branch,
		TrackingBranch: tracking,
	}, nil
}

// currentBranch returns the short name of the branch HEAD points at, or ""
// for a detached HEAD. Unborn branches are reported by name.
func currentBranch(repo *git.Repository) (string, error) {
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", err
	}
	if head.Type() != plumbing.SymbolicReference {
		return "", nil
	}
	return head.Target().Short(), nil
}
