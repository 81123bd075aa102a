package driven

import (
	"context"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// RemoteResolver maps a local working copy to its GitLab remote and branch.
type RemoteResolver interface {
	// Resolve inspects the repository containing workspacePath. remoteName
	// selects the remote; empty means the current branch's upstream remote,
	// falling back to the first configured remote.
	Resolve(ctx context.Context, workspacePath, remoteName string) (*model.Workspace, error)
}

// PatchApplier applies a git-format patch to a local working copy.
type PatchApplier interface {
	// ApplyPatch applies every file of patch to the working tree containing
	// workspacePath and returns the paths it wrote or removed. Nothing is
	// written unless every file applies cleanly.
	ApplyPatch(ctx context.Context, workspacePath, patch string) ([]string, error)
}
