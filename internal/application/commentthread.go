package application

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// DiscussionClient is the slice of the GitLab client that review sessions
// and their comment threads talk to.
type DiscussionClient interface {
	driven.MergeRequestReader
	driven.DiscussionReader
	driven.DiscussionWriter
}

// comment is a note plus its local lifecycle state.
type comment struct {
	note       model.Note
	state      model.CommentState
	snapshot   string // Fingerprint taken when editing began.
	submitting bool
}

// CommentView is a read-only copy of one comment of a thread.
type CommentView struct {
	Note  model.Note
	State model.CommentState
}

// ThreadView is a read-only copy of a thread's current state.
type ThreadView struct {
	DiscussionID string
	Path         string
	Line         int
	Resolvable   bool
	Resolved     bool
	Comments     []CommentView
}

// CommentThread owns the comments of one text-diff discussion bound to a
// file and line. All methods are safe for concurrent use. The mutex is never
// held across remote calls.
type CommentThread struct {
	client   DiscussionClient
	issuable model.Issuable
	id       string
	location model.AnchorLocation

	mu         sync.Mutex
	comments   []*comment
	resolvable bool
	resolved   bool
	resolving  bool
	disposed   bool
	onChange   func()
}

// NewCommentThread binds d to its anchor location. onChange, when non-nil,
// runs after every local state change and never under the thread's lock.
func NewCommentThread(client DiscussionClient, issuable model.Issuable, d model.Discussion, onChange func()) *CommentThread {
	t := &CommentThread{
		client:     client,
		issuable:   issuable,
		id:         d.ID,
		resolvable: d.Resolvable(),
		resolved:   d.Resolved(),
		onChange:   onChange,
	}
	if pos := d.AnchorPosition(); pos != nil {
		t.location = pos.Location()
	}
	for _, n := range d.Notes {
		if n.System {
			continue
		}
		t.comments = append(t.comments, &comment{note: n, state: model.CommentStateSynced})
	}
	return t
}

// DiscussionID returns the remote discussion id the thread replies to.
func (t *CommentThread) DiscussionID() string { return t.id }

// Location returns the file and line the thread is anchored at.
func (t *CommentThread) Location() model.AnchorLocation { return t.location }

// View returns a copy of the thread's current state.
func (t *CommentThread) View() ThreadView {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := ThreadView{
		DiscussionID: t.id,
		Path:         t.location.Path,
		Line:         t.location.Line,
		Resolvable:   t.resolvable,
		Resolved:     t.resolved,
		Comments:     make([]CommentView, 0, len(t.comments)),
	}
	for _, c := range t.comments {
		v.Comments = append(v.Comments, CommentView{Note: c.note, State: c.state})
	}
	return v
}

// BeginEdit moves a synced comment to editing and snapshots its fingerprint.
// Beginning an edit that is already open keeps the original snapshot.
func (t *CommentThread) BeginEdit(noteID int) error {
	t.mu.Lock()
	c, err := t.lookup(noteID)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	switch c.state {
	case model.CommentStateEditing:
		t.mu.Unlock()
		return nil
	case model.CommentStateSynced:
	default:
		t.mu.Unlock()
		return model.ErrCommentBusy
	}
	c.state = model.CommentStateEditing
	c.snapshot = c.note.Fingerprint()
	t.mu.Unlock()

	t.changed()
	return nil
}

// CancelEdit drops an open edit and returns the comment to synced.
func (t *CommentThread) CancelEdit(noteID int) error {
	t.mu.Lock()
	c, err := t.lookup(noteID)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if c.state != model.CommentStateEditing {
		t.mu.Unlock()
		return model.ErrNotEditing
	}
	if c.submitting {
		t.mu.Unlock()
		return model.ErrCommentBusy
	}
	c.state = model.CommentStateSynced
	c.snapshot = ""
	t.mu.Unlock()

	t.changed()
	return nil
}

// SubmitEdit saves body as the comment's new content. The note is re-fetched
// first; if its content no longer matches the snapshot taken by BeginEdit the
// comment adopts the remote content, returns to synced, and ErrStaleEdit is
// returned without writing. On a remote failure the comment stays in editing.
func (t *CommentThread) SubmitEdit(ctx context.Context, noteID int, body string) error {
	t.mu.Lock()
	c, err := t.lookup(noteID)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if c.state != model.CommentStateEditing {
		t.mu.Unlock()
		return model.ErrNotEditing
	}
	if c.submitting {
		t.mu.Unlock()
		return model.ErrCommentBusy
	}
	c.submitting = true
	snapshot := c.snapshot
	t.mu.Unlock()

	remote, err := t.client.GetNote(ctx, t.issuable, noteID)
	if err != nil {
		t.finishSubmit(c)
		return fmt.Errorf("re-fetch note %d: %w", noteID, err)
	}

	if remote.Fingerprint() != snapshot {
		t.mu.Lock()
		c.submitting = false
		if t.disposed {
			t.mu.Unlock()
			return model.ErrSessionDisposed
		}
		c.note = mergeNote(c.note, *remote)
		c.state = model.CommentStateSynced
		c.snapshot = ""
		t.mu.Unlock()

		t.changed()
		return model.ErrStaleEdit
	}

	updated, err := t.client.UpdateNote(ctx, t.issuable, t.id, noteID, body)
	if err != nil {
		t.finishSubmit(c)
		return fmt.Errorf("update note %d: %w", noteID, err)
	}

	t.mu.Lock()
	c.submitting = false
	if t.disposed {
		t.mu.Unlock()
		return model.ErrSessionDisposed
	}
	c.note = mergeNote(c.note, *updated)
	c.state = model.CommentStateSynced
	c.snapshot = ""
	t.mu.Unlock()

	t.changed()
	return nil
}

func (t *CommentThread) finishSubmit(c *comment) {
	t.mu.Lock()
	c.submitting = false
	t.mu.Unlock()
}

// Resolve marks the discussion resolved. Resolving a resolved thread is a
// successful no-op.
func (t *CommentThread) Resolve(ctx context.Context) error {
	return t.setResolved(ctx, true)
}

// Unresolve reopens the discussion. Unresolving an open thread is a
// successful no-op.
func (t *CommentThread) Unresolve(ctx context.Context) error {
	return t.setResolved(ctx, false)
}

func (t *CommentThread) setResolved(ctx context.Context, resolved bool) error {
	transient := model.CommentStateUnresolving
	if resolved {
		transient = model.CommentStateResolving
	}

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return model.ErrSessionDisposed
	}
	if t.resolved == resolved {
		t.mu.Unlock()
		return nil
	}
	if t.resolving {
		t.mu.Unlock()
		return model.ErrCommentBusy
	}
	t.resolving = true
	var moved []*comment
	for _, c := range t.comments {
		if c.state == model.CommentStateSynced {
			c.state = transient
			moved = append(moved, c)
		}
	}
	t.mu.Unlock()
	t.changed()

	d, err := t.client.SetResolved(ctx, t.issuable, t.id, resolved)

	t.mu.Lock()
	t.resolving = false
	for _, c := range moved {
		c.state = model.CommentStateSynced
	}
	if t.disposed {
		t.mu.Unlock()
		return model.ErrSessionDisposed
	}
	if err != nil {
		t.mu.Unlock()
		t.changed()
		return fmt.Errorf("set discussion %s resolved=%t: %w", t.id, resolved, err)
	}

	t.resolved = resolved
	remote := map[int]model.Note{}
	if d != nil {
		for _, n := range d.Notes {
			remote[n.ID] = n
		}
	}
	for _, c := range t.comments {
		if n, ok := remote[c.note.ID]; ok {
			c.note.Resolved = n.Resolved
		} else if c.note.Resolvable {
			c.note.Resolved = resolved
		}
	}
	t.mu.Unlock()

	t.changed()
	return nil
}

// Reply appends a note to the discussion.
func (t *CommentThread) Reply(ctx context.Context, body string) (*model.Note, error) {
	if t.isDisposed() {
		return nil, model.ErrSessionDisposed
	}

	note, err := t.client.Reply(ctx, t.issuable, t.id, body)
	if err != nil {
		return nil, fmt.Errorf("reply to discussion %s: %w", t.id, err)
	}

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return nil, model.ErrSessionDisposed
	}
	t.comments = append(t.comments, &comment{note: *note, state: model.CommentStateSynced})
	t.mu.Unlock()

	t.changed()
	return note, nil
}

// DeleteComment deletes a note remotely, then drops it from the thread. A
// failed delete leaves the comment in place.
func (t *CommentThread) DeleteComment(ctx context.Context, noteID int) error {
	t.mu.Lock()
	c, err := t.lookup(noteID)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if c.submitting {
		t.mu.Unlock()
		return model.ErrCommentBusy
	}
	t.mu.Unlock()

	if err := t.client.DeleteNote(ctx, t.issuable, t.id, noteID); err != nil {
		return fmt.Errorf("delete note %d: %w", noteID, err)
	}

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return model.ErrSessionDisposed
	}
	t.comments = slices.DeleteFunc(t.comments, func(c *comment) bool { return c.note.ID == noteID })
	t.mu.Unlock()

	t.changed()
	return nil
}

// Dispose detaches the thread. Later operations return ErrSessionDisposed and
// remote results that arrive afterwards are dropped.
func (t *CommentThread) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disposed = true
	t.onChange = nil
}

// Disposed reports whether Dispose has been called.
func (t *CommentThread) Disposed() bool {
	return t.isDisposed()
}

func (t *CommentThread) isDisposed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disposed
}

// lookup finds a comment by note id. Callers hold t.mu.
func (t *CommentThread) lookup(noteID int) (*comment, error) {
	if t.disposed {
		return nil, model.ErrSessionDisposed
	}
	for _, c := range t.comments {
		if c.note.ID == noteID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("note %d in discussion %s: %w", noteID, t.id, model.ErrCommentNotFound)
}

func (t *CommentThread) changed() {
	t.mu.Lock()
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// mergeNote takes remote content while keeping the anchor the single-note
// endpoints omit.
func mergeNote(local, remote model.Note) model.Note {
	if remote.Position == nil {
		remote.Position = local.Position
	}
	return remote
}
