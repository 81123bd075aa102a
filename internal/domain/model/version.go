package model

import (
	"path"
	"strings"
	"time"
)

// imageExtensions lists file extensions the review panel cannot diff as text.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".tiff": {},
	".bmp":  {},
	".avif": {},
	".apng": {},
}

// MrVersion is one snapshot of a merge request's diff. The three commit SHAs
// are the anchor coordinates for any comment created against this version.
type MrVersion struct {
	ID             int
	BaseCommitSHA  string
	HeadCommitSHA  string
	StartCommitSHA string
	CreatedAt      time.Time
	Diffs          []DiffFile
}

// FindDiff returns the changed file whose new or old path equals p.
func (v MrVersion) FindDiff(p string) (DiffFile, bool) {
	for _, d := range v.Diffs {
		if d.NewPath == p || d.OldPath == p {
			return d, true
		}
	}
	return DiffFile{}, false
}

// DiffFile describes one changed file within an MrVersion.
type DiffFile struct {
	OldPath     string
	NewPath     string
	NewFile     bool
	DeletedFile bool
	RenamedFile bool
}

// ChangeType classifies the change. Added wins over deleted and renamed.
func (d DiffFile) ChangeType() ChangeType {
	switch {
	case d.NewFile:
		return ChangeTypeAdded
	case d.DeletedFile:
		return ChangeTypeDeleted
	case d.RenamedFile:
		return ChangeTypeRenamed
	default:
		return ChangeTypeModified
	}
}

// ChangeIndicator returns the bracketed prefix shown in front of a changed
// file description, or "" for a plain modification.
func (d DiffFile) ChangeIndicator() string {
	if ct := d.ChangeType(); ct != ChangeTypeModified {
		return "[" + string(ct) + "] "
	}
	return ""
}

// IsImage reports whether either path looks like an image.
func (d DiffFile) IsImage() bool {
	return LooksLikeImage(d.OldPath) || LooksLikeImage(d.NewPath)
}

// LooksLikeImage reports whether p has a known image extension, ignoring case.
func LooksLikeImage(p string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(p))]
	return ok
}
