package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnippet_PatchBlob(t *testing.T) {
	s := Snippet{Blobs: []SnippetBlob{
		{Name: "README.md", Path: "README.md"},
		{Name: "fix.patch", Path: "fix.patch"},
		{Name: "other.patch", Path: "other.patch"},
	}}

	b, ok := s.PatchBlob()
	require.True(t, ok)
	assert.Equal(t, "fix.patch", b.Path)

	_, ok = Snippet{Blobs: []SnippetBlob{{Name: "notes.txt"}}}.PatchBlob()
	assert.False(t, ok)
}

func TestNewSnippet_Validate(t *testing.T) {
	n, err := NewSnippet{FileName: " main.go ", Content: "package main\n"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "main.go", n.Title)
	assert.Equal(t, SnippetVisibilityPrivate, n.Visibility)

	for name, bad := range map[string]NewSnippet{
		"no file name": {Content: "x"},
		"no content":   {FileName: "a.go"},
		"visibility":   {FileName: "a.go", Content: "x", Visibility: "secret"},
	} {
		_, err := bad.Validate()
		assert.ErrorIs(t, err, ErrInvalidSnippet, name)
	}
}

func TestSelectLines(t *testing.T) {
	content := "one\ntwo\nthree\nfour\n"

	tests := []struct {
		from, to int
		want     string
	}{
		{1, 1, "one\n"},
		{2, 3, "two\nthree\n"},
		{3, 99, "three\nfour\n"},
	}
	for _, tc := range tests {
		got, err := SelectLines(content, tc.from, tc.to)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	got, err := SelectLines("no newline", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "no newline", got)

	for _, r := range [][2]int{{0, 1}, {3, 2}, {5, 6}} {
		_, err := SelectLines(content, r[0], r[1])
		assert.ErrorIs(t, err, ErrInvalidSnippet)
	}
}
