package model

import "time"

// TimelineEntryKind tags which variant a TimelineEntry holds.
type TimelineEntryKind string

const (
	EntryDiscussion TimelineEntryKind = "discussion"
	EntryLabelEvent TimelineEntryKind = "label_event"
)

// TimelineEntry is one item of the merged discussion/label-event timeline.
// Exactly one of Discussion and LabelEvent is set, matching Kind.
type TimelineEntry struct {
	Kind       TimelineEntryKind
	Discussion *Discussion
	LabelEvent *LabelEvent
}

// DiscussionEntry wraps a discussion as a timeline entry.
func DiscussionEntry(d Discussion) TimelineEntry {
	return TimelineEntry{Kind: EntryDiscussion, Discussion: &d}
}

// LabelEventEntry wraps a label event as a timeline entry.
func LabelEventEntry(e LabelEvent) TimelineEntry {
	return TimelineEntry{Kind: EntryLabelEvent, LabelEvent: &e}
}

// Timestamp is the time the entry sorts by: the label event's creation time,
// or the first note's creation time for a discussion.
func (e TimelineEntry) Timestamp() (time.Time, bool) {
	switch e.Kind {
	case EntryLabelEvent:
		if e.LabelEvent == nil || e.LabelEvent.CreatedAt.IsZero() {
			return time.Time{}, false
		}
		return e.LabelEvent.CreatedAt, true
	case EntryDiscussion:
		if e.Discussion == nil {
			return time.Time{}, false
		}
		return e.Discussion.FirstNoteCreatedAt()
	}
	return time.Time{}, false
}

// DiscussionSet is the reconciled view of an issuable's discussions.
type DiscussionSet struct {
	Timeline []TimelineEntry
	TextDiff []Discussion
	General  []Discussion
}
