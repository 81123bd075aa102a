package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiscussion_Anchor(t *testing.T) {
	tests := []struct {
		name string
		d    Discussion
		want AnchorKind
	}{
		{"no notes", Discussion{}, AnchorGeneral},
		{"no position", Discussion{Notes: []Note{{Body: "hi"}}}, AnchorGeneral},
		{"text position", Discussion{Notes: []Note{{Position: &Position{PositionType: "text"}}}}, AnchorTextDiff},
		{"image position", Discussion{Notes: []Note{{Position: &Position{PositionType: "image"}}}}, AnchorGeneral},
		{
			"only first note counts",
			Discussion{Notes: []Note{{Body: "general"}, {Position: &Position{PositionType: "text"}}}},
			AnchorGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Anchor())
		})
	}
}

func TestDiscussion_Resolved(t *testing.T) {
	assert.False(t, Discussion{Notes: []Note{{Body: "x"}}}.Resolved())
	assert.False(t, Discussion{Notes: []Note{{Resolvable: true}, {Resolvable: true, Resolved: true}}}.Resolved())
	assert.True(t, Discussion{Notes: []Note{{Resolvable: true, Resolved: true}, {System: true}}}.Resolved())
}

func TestPosition_Location(t *testing.T) {
	assert.Equal(t, AnchorLocation{Path: "src/test.js", Line: 10},
		Position{OldPath: "src/test.js", NewPath: "src/test.js", OldLine: 10, NewLine: 11}.Location())
	assert.Equal(t, AnchorLocation{Path: "new_file.ts", Line: 3},
		Position{NewPath: "new_file.ts", NewLine: 3}.Location())
}

func TestFingerprint_ChangesWithBody(t *testing.T) {
	a := Note{Body: "first"}
	b := Note{Body: "first"}
	c := Note{Body: "second"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}

func TestTimelineEntry_Timestamp(t *testing.T) {
	at := time.Date(2020, 12, 2, 17, 0, 0, 0, time.UTC)

	ts, ok := LabelEventEntry(LabelEvent{CreatedAt: at}).Timestamp()
	assert.True(t, ok)
	assert.Equal(t, at, ts)

	ts, ok = DiscussionEntry(Discussion{Notes: []Note{{CreatedAt: at}}}).Timestamp()
	assert.True(t, ok)
	assert.Equal(t, at, ts)

	_, ok = DiscussionEntry(Discussion{}).Timestamp()
	assert.False(t, ok)
}
