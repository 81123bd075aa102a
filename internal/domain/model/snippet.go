package model

import (
	"fmt"
	"strings"
)

// PatchFileSuffix marks the snippet file that holds an applicable patch.
const PatchFileSuffix = ".patch"

// Snippet is a project snippet with its file blobs.
type Snippet struct {
	ID          int
	ProjectID   int
	Title       string
	Description string
	WebURL      string
	Blobs       []SnippetBlob
}

// PatchBlob returns the first blob whose name ends in PatchFileSuffix.
func (s Snippet) PatchBlob() (SnippetBlob, bool) {
	for _, b := range s.Blobs {
		if strings.HasSuffix(b.Name, PatchFileSuffix) {
			return b, true
		}
	}
	return SnippetBlob{}, false
}

// SnippetBlob is one file of a snippet.
type SnippetBlob struct {
	Name string
	Path string
}

// SnippetVisibility is who can see a new snippet.
type SnippetVisibility string

const (
	SnippetVisibilityPrivate  SnippetVisibility = "private"
	SnippetVisibilityInternal SnippetVisibility = "internal"
	SnippetVisibilityPublic   SnippetVisibility = "public"
)

// ParseSnippetVisibility validates a visibility received at an adapter boundary.
func ParseSnippetVisibility(s string) (SnippetVisibility, bool) {
	switch v := SnippetVisibility(s); v {
	case SnippetVisibilityPrivate, SnippetVisibilityInternal, SnippetVisibilityPublic:
		return v, true
	}
	return "", false
}

// NewSnippet is a single-file snippet to create in a project.
type NewSnippet struct {
	Title      string
	FileName   string
	Content    string
	Visibility SnippetVisibility
}

// Validate fills in the title from the file name and checks the rest.
func (n NewSnippet) Validate() (NewSnippet, error) {
	n.FileName = strings.TrimSpace(n.FileName)
	if n.FileName == "" {
		return n, fmt.Errorf("%w: snippet file name is required", ErrInvalidSnippet)
	}
	if n.Title == "" {
		n.Title = n.FileName
	}
	if n.Content == "" {
		return n, fmt.Errorf("%w: snippet content is empty", ErrInvalidSnippet)
	}
	if n.Visibility == "" {
		n.Visibility = SnippetVisibilityPrivate
	}
	if _, ok := ParseSnippetVisibility(string(n.Visibility)); !ok {
		return n, fmt.Errorf("%w: unknown visibility %q", ErrInvalidSnippet, n.Visibility)
	}
	return n, nil
}

// SelectLines returns lines from through to (1-based, inclusive) of content,
// each with its line ending. to past the last line is clamped.
func SelectLines(content string, from, to int) (string, error) {
	if from < 1 || to < from {
		return "", fmt.Errorf("%w: invalid line range %d-%d", ErrInvalidSnippet, from, to)
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if from > len(lines) {
		return "", fmt.Errorf("%w: line %d is past the end of the file (%d lines)", ErrInvalidSnippet, from, len(lines))
	}
	return strings.Join(lines[from-1:min(to, len(lines))], ""), nil
}

// AppliedPatch reports the files a patch changed in a working copy.
type AppliedPatch struct {
	SnippetID int
	Blob      string
	Files     []string
}
