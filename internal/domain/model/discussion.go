package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// PositionTypeText is the position type GitLab uses for comments on text diffs.
const PositionTypeText = "text"

// Position locates a diff note. Lines are 1-based; zero means the note is
// not attached to that side.
type Position struct {
	PositionType string
	BaseSHA      string
	StartSHA     string
	HeadSHA      string
	OldPath      string
	NewPath      string
	OldLine      int
	NewLine      int
}

// Note is a single comment inside a discussion.
type Note struct {
	ID         int
	Body       string
	Author     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	System     bool
	Resolvable bool
	Resolved   bool
	Position   *Position
}

// Fingerprint identifies the body content of the note as last seen.
func (n Note) Fingerprint() string {
	return Fingerprint(n.Body)
}

// Fingerprint returns the hex-encoded SHA-256 of body.
func Fingerprint(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Discussion is an ordered group of notes sharing a thread id.
type Discussion struct {
	ID             string
	IndividualNote bool
	Notes          []Note
}

// Anchor classifies the discussion. It is the only classification rule in
// the codebase: a discussion is a text-diff discussion iff its first note has
// a position of type "text".
func (d Discussion) Anchor() AnchorKind {
	if len(d.Notes) == 0 {
		return AnchorGeneral
	}
	if pos := d.Notes[0].Position; pos != nil && pos.PositionType == PositionTypeText {
		return AnchorTextDiff
	}
	return AnchorGeneral
}

// AnchorPosition returns the first note's position, or nil.
func (d Discussion) AnchorPosition() *Position {
	if len(d.Notes) == 0 {
		return nil
	}
	return d.Notes[0].Position
}

// Resolvable reports whether any note in the discussion can be resolved.
func (d Discussion) Resolvable() bool {
	for _, n := range d.Notes {
		if n.Resolvable {
			return true
		}
	}
	return false
}

// Resolved reports whether every resolvable note is resolved. A discussion
// without resolvable notes is never resolved.
func (d Discussion) Resolved() bool {
	resolvable := false
	for _, n := range d.Notes {
		if !n.Resolvable {
			continue
		}
		resolvable = true
		if !n.Resolved {
			return false
		}
	}
	return resolvable
}

// FirstNoteCreatedAt returns the creation time of the first note, if known.
func (d Discussion) FirstNoteCreatedAt() (time.Time, bool) {
	if len(d.Notes) == 0 || d.Notes[0].CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return d.Notes[0].CreatedAt, true
}

// LabelEvent records a label being added to or removed from an issuable.
type LabelEvent struct {
	ID         int
	Action     string // "add" or "remove".
	LabelName  string
	LabelColor string
	User       string
	CreatedAt  time.Time
}

// AnchorLocation is the file and 1-based line a text-diff discussion is
// shown at.
type AnchorLocation struct {
	Path string
	Line int
}

// Location derives where a text-diff position is displayed. The path is the
// new path; the line is the old line when set, otherwise the new line.
func (p Position) Location() AnchorLocation {
	line := p.NewLine
	if p.OldLine > 0 {
		line = p.OldLine
	}
	return AnchorLocation{Path: p.NewPath, Line: line}
}
