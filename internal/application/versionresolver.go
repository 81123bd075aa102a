package application

import (
	"context"
	"fmt"
	"path"
	"slices"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// VersionResolver finds merge request versions and the file content on
// either side of their diffs.
type VersionResolver struct {
	client driven.MergeRequestReader
}

// NewVersionResolver creates a VersionResolver reading through client.
func NewVersionResolver(client driven.MergeRequestReader) *VersionResolver {
	return &VersionResolver{client: client}
}

// LatestVersion returns the newest version of mr including its changed files.
func (r *VersionResolver) LatestVersion(ctx context.Context, mr model.Issuable) (*model.MrVersion, error) {
	versions, err := r.listVersions(ctx, mr)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("merge request !%d has no versions: %w", mr.IID, driven.ErrNotFound)
	}

	return r.fetchVersion(ctx, mr, versions[0].ID)
}

// Version returns one version of mr by id. An id that does not belong to mr
// is ErrNotFound, even when the instance knows the version under another
// merge request.
func (r *VersionResolver) Version(ctx context.Context, mr model.Issuable, versionID int) (*model.MrVersion, error) {
	versions, err := r.listVersions(ctx, mr)
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(versions, func(v model.MrVersion) bool { return v.ID == versionID }) {
		return nil, fmt.Errorf("version %d is not a version of !%d: %w", versionID, mr.IID, driven.ErrNotFound)
	}

	return r.fetchVersion(ctx, mr, versionID)
}

func (r *VersionResolver) listVersions(ctx context.Context, mr model.Issuable) ([]model.MrVersion, error) {
	if !mr.IsMergeRequest() {
		return nil, model.ErrNotMergeRequest
	}

	versions, err := r.client.ListVersions(ctx, mr.ProjectID, mr.IID)
	if err != nil {
		return nil, fmt.Errorf("list versions of !%d: %w", mr.IID, err)
	}
	return versions, nil
}

func (r *VersionResolver) fetchVersion(ctx context.Context, mr model.Issuable, versionID int) (*model.MrVersion, error) {
	v, err := r.client.GetVersion(ctx, mr.ProjectID, mr.IID, versionID)
	if err != nil {
		return nil, fmt.Errorf("get version %d of !%d: %w", versionID, mr.IID, err)
	}
	return v, nil
}

// BlobContent returns the content of the changed file matching p on the given
// side of version. Image files yield ErrUnsupportedContent without a fetch.
// The base of an added file and the head of a deleted file are empty.
func (r *VersionResolver) BlobContent(ctx context.Context, mr model.Issuable, version *model.MrVersion, side model.DiffSide, p string) (string, error) {
	diff, ok := version.FindDiff(p)
	if !ok {
		return "", fmt.Errorf("%s is not changed in version %d: %w", p, version.ID, driven.ErrNotFound)
	}
	if diff.IsImage() {
		return "", fmt.Errorf("%s: %w", p, model.ErrUnsupportedContent)
	}

	var filePath, ref string
	switch side {
	case model.DiffSideBase:
		if diff.NewFile {
			return "", nil
		}
		filePath, ref = diff.OldPath, version.BaseCommitSHA
	case model.DiffSideHead:
		if diff.DeletedFile {
			return "", nil
		}
		filePath, ref = diff.NewPath, version.HeadCommitSHA
	default:
		return "", fmt.Errorf("unknown diff side %q", side)
	}

	content, err := r.client.GetRawFile(ctx, mr.ProjectID, filePath, ref)
	if err != nil {
		return "", fmt.Errorf("read %s at %s: %w", filePath, shortSHA(ref), err)
	}
	return content, nil
}

// ChangedFileItem is the presentation value for one changed file.
type ChangedFileItem struct {
	Path        string
	OldPath     string
	Description string // Change indicator plus the slash-rooted directory.
	ChangeType  model.ChangeType
	Unsupported bool // Image files have no text diff.
	DiffTitle   string
}

// ChangedFiles lists the changed files of version in diff order.
func ChangedFiles(mr model.Issuable, version model.MrVersion) []ChangedFileItem {
	items := make([]ChangedFileItem, 0, len(version.Diffs))
	for _, d := range version.Diffs {
		items = append(items, ChangedFileItem{
			Path:        d.NewPath,
			OldPath:     d.OldPath,
			Description: d.ChangeIndicator() + path.Dir("/"+d.NewPath),
			ChangeType:  d.ChangeType(),
			Unsupported: d.IsImage(),
			DiffTitle:   fmt.Sprintf("%s (!%d)", path.Base(d.NewPath), mr.IID),
		})
	}
	return items
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
