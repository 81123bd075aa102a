package gitremote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-git/v6"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PatchApplier = (*PatchApplier)(nil)

// PatchApplier applies git-format patches to the worktree of a repository.
type PatchApplier struct{}

// NewPatchApplier creates a PatchApplier.
func NewPatchApplier() *PatchApplier {
	return &PatchApplier{}
}

// fileChange is one planned write or removal in the worktree.
type fileChange struct {
	remove string // Path to delete first; set for deletes and renames.
	write  string // Path to write; empty for deletes.
	data   []byte
	perm   fs.FileMode
}

// ApplyPatch parses patch and applies each file to the worktree containing
// workspacePath. All files are computed before anything is written, so a
// conflict in one file leaves the worktree untouched.
func (a *PatchApplier) ApplyPatch(ctx context.Context, workspacePath, patch string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(workspacePath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("no git repository at %s: %w", workspacePath, driven.ErrNotFound)
		}
		return nil, fmt.Errorf("open repository at %s: %w", workspacePath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree of %s: %w", workspacePath, err)
	}
	wfs := wt.Filesystem

	files, _, err := gitdiff.Parse(strings.NewReader(patch))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPatchDoesNotApply, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: patch has no file changes", model.ErrPatchDoesNotApply)
	}

	changes := make([]fileChange, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, name := range []string{f.OldName, f.NewName} {
			if name != "" && !filepath.IsLocal(name) {
				return nil, fmt.Errorf("%w: %s is outside the worktree", model.ErrPatchDoesNotApply, name)
			}
		}

		var (
			src  []byte
			perm fs.FileMode = 0o644
		)
		if !f.IsNew {
			src, perm, err = readWorktreeFile(wfs, f.OldName)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", model.ErrPatchDoesNotApply, f.OldName, err)
			}
		}
		if p := f.NewMode.Perm(); p != 0 {
			perm = p
		}

		var out bytes.Buffer
		if err := gitdiff.Apply(&out, bytes.NewReader(src), f); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", model.ErrPatchDoesNotApply, patchedName(f), err)
		}

		c := fileChange{data: out.Bytes(), perm: perm}
		switch {
		case f.IsDelete:
			c.remove = f.OldName
		case f.IsRename:
			c.remove, c.write = f.OldName, f.NewName
		default:
			c.write = f.NewName
		}
		changes = append(changes, c)
	}

	touched := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.remove != "" {
			if err := wfs.Remove(c.remove); err != nil {
				return touched, fmt.Errorf("remove %s: %w", c.remove, err)
			}
			touched = append(touched, c.remove)
		}
		if c.write == "" {
			continue
		}
		if err := writeWorktreeFile(wfs, c.write, c.data, c.perm); err != nil {
			return touched, fmt.Errorf("write %s: %w", c.write, err)
		}
		touched = append(touched, c.write)
	}

	slog.Info("patch applied", "worktree", wfs.Root(), "files", len(touched))
	return touched, nil
}

func readWorktreeFile(wfs billy.Filesystem, name string) ([]byte, fs.FileMode, error) {
	info, err := wfs.Stat(name)
	if err != nil {
		return nil, 0, err
	}
	f, err := wfs.Open(name)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, err
	}
	return data, info.Mode().Perm(), nil
}

func writeWorktreeFile(wfs billy.Filesystem, name string, data []byte, perm fs.FileMode) error {
	if dir := path.Dir(filepath.ToSlash(name)); dir != "." {
		if err := wfs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := wfs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func patchedName(f *gitdiff.File) string {
	if f.NewName != "" {
		return f.NewName
	}
	return f.OldName
}
