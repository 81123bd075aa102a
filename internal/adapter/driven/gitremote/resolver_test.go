package gitremote_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mrpanel/internal/adapter/driven/gitremote"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// initRepo creates a repository on branch "feature" with the given remotes.
func initRepo(t *testing.T, remotes map[string]string) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	for name, u := range remotes {
		_, err := repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{u}})
		require.NoError(t, err)
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("feature"))
	require.NoError(t, repo.Storer.SetReference(head))

	return dir, repo
}

func TestResolve_DefaultsToOrigin(t *testing.T) {
	dir, _ := initRepo(t, map[string]string{
		"origin":   "git@gitlab.com:group/project.git",
		"upstream": "git@gitlab.com:other/project.git",
	})

	ws, err := gitremote.NewResolver("https://gitlab.com").Resolve(context.Background(), dir, "")
	require.NoError(t, err)

	assert.Equal(t, "group/project", ws.Remote.FullPath())
	assert.Equal(t, "feature", ws.Branch)
	assert.Equal(t, "feature", ws.TrackingBranch)
}

func TestResolve_ConfiguredRemoteName(t *testing.T) {
	dir, _ := initRepo(t, map[string]string{
		"origin":   "git@gitlab.com:group/project.git",
		"upstream": "https://gitlab.com/other/project.git",
	})

	ws, err := gitremote.NewResolver("https://gitlab.com").Resolve(context.Background(), dir, "upstream")
	require.NoError(t, err)

	assert.Equal(t, "other", ws.Remote.Namespace)
	assert.Equal(t, "https", ws.Remote.Scheme)
}

func TestResolve_BranchUpstream(t *testing.T) {
	dir, repo := initRepo(t, map[string]string{
		"origin": "git@gitlab.com:group/project.git",
		"fork":   "git@gitlab.com:me/project.git",
	})
	require.NoError(t, repo.CreateBranch(&config.Branch{
		Name:   "feature",
		Remote: "fork",
		Merge:  plumbing.NewBranchReferenceName("remote-feature"),
	}))

	ws, err := gitremote.NewResolver("https://gitlab.com").Resolve(context.Background(), dir, "")
	require.NoError(t, err)

	assert.Equal(t, "me/project", ws.Remote.FullPath())
	assert.Equal(t, "feature", ws.Branch)
	assert.Equal(t, "remote-feature", ws.TrackingBranch)
}

func TestResolve_FirstRemoteWithoutOrigin(t *testing.T) {
	dir, _ := initRepo(t, map[string]string{
		"zeta":  "git@gitlab.com:zeta/project.git",
		"alpha": "git@gitlab.com:alpha/project.git",
	})

	ws, err := gitremote.NewResolver("https://gitlab.com").Resolve(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, "alpha", ws.Remote.Namespace)
}

func TestResolve_FromSubdirectory(t *testing.T) {
	dir, _ := initRepo(t, map[string]string{"origin": "git@gitlab.com:group/project.git"})
	sub := filepath.Join(dir, "src", "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	ws, err := gitremote.NewResolver("https://gitlab.com").Resolve(context.Background(), sub, "")
	require.NoError(t, err)
	assert.Equal(t, "group/project", ws.Remote.FullPath())
}

func TestResolve_Errors(t *testing.T) {
	t.Run("not a repository", func(t *testing.T) {
		_, err := gitremote.NewResolver("https://gitlab.com").Resolve(context.Background(), t.TempDir(), "")
		assert.ErrorIs(t, err, driven.ErrNotFound)
	})

	t.Run("no remotes", func(t *testing.T) {
		dir, _ := initRepo(t, nil)
		_, err := gitremote.NewResolver("https://gitlab.com").Resolve(context.Background(), dir, "")
		assert.ErrorIs(t, err, driven.ErrNotFound)
	})

	t.Run("unknown remote name", func(t *testing.T) {
		dir, _ := initRepo(t, map[string]string{"origin": "git@gitlab.com:group/project.git"})
		_, err := gitremote.NewResolver("https://gitlab.com").Resolve(context.Background(), dir, "missing")
		assert.ErrorIs(t, err, driven.ErrNotFound)
	})

	t.Run("remote outside instance path", func(t *testing.T) {
		dir, _ := initRepo(t, map[string]string{"origin": "https://example.com/other/group/project.git"})
		_, err := gitremote.NewResolver("https://example.com/gitlab").Resolve(context.Background(), dir, "")
		assert.ErrorIs(t, err, driven.ErrNotFound)
	})
}
