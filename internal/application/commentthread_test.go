package application_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// newThread binds a two-note discussion at src/test.js:10 and mirrors its
// notes into the fake remote.
func newThread(t *testing.T) (*application.CommentThread, *fakeGitLab, *atomic.Int32) {
	t.Helper()

	d := diffDiscussion("disc-1", 1, "src/test.js", 10, at(1))
	d.Notes = append(d.Notes, model.Note{ID: 2, Body: "second", Author: "author", CreatedAt: at(2), Resolvable: true})

	fake := newMRFake()
	for _, n := range d.Notes {
		fake.notes[n.ID] = &n
	}

	var changes atomic.Int32
	th := application.NewCommentThread(fake, testMR(), d, func() { changes.Add(1) })
	return th, fake, &changes
}

func commentState(t *testing.T, th *application.CommentThread, noteID int) application.CommentView {
	t.Helper()
	for _, c := range th.View().Comments {
		if c.Note.ID == noteID {
			return c
		}
	}
	t.Fatalf("note %d not in thread", noteID)
	return application.CommentView{}
}

func TestCommentThread_AnchorLocation(t *testing.T) {
	th, _, _ := newThread(t)

	v := th.View()
	assert.Equal(t, "disc-1", v.DiscussionID)
	assert.Equal(t, "src/test.js", v.Path)
	assert.Equal(t, 10, v.Line)
	assert.Len(t, v.Comments, 2)
}

func TestCommentThread_SubmitEdit(t *testing.T) {
	th, fake, changes := newThread(t)
	ctx := context.Background()

	require.NoError(t, th.BeginEdit(1))
	assert.Equal(t, model.CommentStateEditing, commentState(t, th, 1).State)

	require.NoError(t, th.SubmitEdit(ctx, 1, "edited"))

	c := commentState(t, th, 1)
	assert.Equal(t, model.CommentStateSynced, c.State)
	assert.Equal(t, "edited", c.Note.Body)
	assert.NotNil(t, c.Note.Position, "anchor kept after update")
	assert.Equal(t, 1, fake.called("UpdateNote"))
	assert.Positive(t, changes.Load())
}

func TestCommentThread_SubmitEditStale(t *testing.T) {
	th, fake, _ := newThread(t)

	require.NoError(t, th.BeginEdit(1))
	fake.notes[1].Body = "changed by someone else"

	err := th.SubmitEdit(context.Background(), 1, "my edit")
	require.ErrorIs(t, err, model.ErrStaleEdit)
	assert.Equal(t, "this comment changed after you last viewed it, and can't be edited", err.Error())

	c := commentState(t, th, 1)
	assert.Equal(t, model.CommentStateSynced, c.State)
	assert.Equal(t, "changed by someone else", c.Note.Body)
	assert.Zero(t, fake.called("UpdateNote"))
	assert.Equal(t, "changed by someone else", fake.notes[1].Body)
}

func TestCommentThread_SubmitEditRemoteFailureKeepsEditing(t *testing.T) {
	th, fake, _ := newThread(t)
	fake.updateErr = driven.ErrTransport

	require.NoError(t, th.BeginEdit(1))
	err := th.SubmitEdit(context.Background(), 1, "edit")
	assert.ErrorIs(t, err, driven.ErrTransport)
	assert.Equal(t, model.CommentStateEditing, commentState(t, th, 1).State)
}

func TestCommentThread_EditGuards(t *testing.T) {
	th, _, _ := newThread(t)
	ctx := context.Background()

	assert.ErrorIs(t, th.SubmitEdit(ctx, 1, "x"), model.ErrNotEditing)
	assert.ErrorIs(t, th.CancelEdit(1), model.ErrNotEditing)
	assert.ErrorIs(t, th.BeginEdit(99), model.ErrCommentNotFound)

	require.NoError(t, th.BeginEdit(1))
	require.NoError(t, th.BeginEdit(1))
	require.NoError(t, th.CancelEdit(1))
	assert.Equal(t, model.CommentStateSynced, commentState(t, th, 1).State)
}

func TestCommentThread_EditsAreIndependent(t *testing.T) {
	th, fake, _ := newThread(t)
	ctx := context.Background()

	require.NoError(t, th.BeginEdit(1))
	require.NoError(t, th.BeginEdit(2))
	fake.notes[2].Body = "remote change"

	require.NoError(t, th.SubmitEdit(ctx, 1, "first edited"))
	assert.Equal(t, model.CommentStateEditing, commentState(t, th, 2).State)
	assert.ErrorIs(t, th.SubmitEdit(ctx, 2, "second edited"), model.ErrStaleEdit)
}

func TestCommentThread_ResolveIsIdempotent(t *testing.T) {
	th, fake, _ := newThread(t)
	ctx := context.Background()

	require.NoError(t, th.Resolve(ctx))
	require.NoError(t, th.Resolve(ctx))

	v := th.View()
	assert.True(t, v.Resolved)
	for _, c := range v.Comments {
		assert.Equal(t, model.CommentStateSynced, c.State)
		assert.True(t, c.Note.Resolved)
	}
	assert.Equal(t, 1, fake.called("SetResolved"))

	require.NoError(t, th.Unresolve(ctx))
	require.NoError(t, th.Unresolve(ctx))
	assert.False(t, th.View().Resolved)
	assert.Equal(t, 2, fake.called("SetResolved"))
}

func TestCommentThread_UnresolveOpenThreadIsNoop(t *testing.T) {
	th, fake, _ := newThread(t)

	require.NoError(t, th.Unresolve(context.Background()))
	assert.Zero(t, fake.called("SetResolved"))
}

func TestCommentThread_ResolveFailureReverts(t *testing.T) {
	th, fake, _ := newThread(t)
	fake.resolveErr = driven.ErrTransport

	err := th.Resolve(context.Background())
	assert.ErrorIs(t, err, driven.ErrTransport)

	v := th.View()
	assert.False(t, v.Resolved)
	for _, c := range v.Comments {
		assert.Equal(t, model.CommentStateSynced, c.State)
	}
}

func TestCommentThread_ResolvingStateDuringCall(t *testing.T) {
	th, fake, _ := newThread(t)
	fake.block = make(chan struct{})

	done := make(chan error)
	go func() { done <- th.Resolve(context.Background()) }()

	assert.Eventually(t, func() bool {
		return commentState(t, th, 1).State == model.CommentStateResolving
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, th.BeginEdit(1), model.ErrCommentBusy)

	close(fake.block)
	require.NoError(t, <-done)
	assert.Equal(t, model.CommentStateSynced, commentState(t, th, 1).State)
}

func TestCommentThread_Reply(t *testing.T) {
	th, _, _ := newThread(t)

	note, err := th.Reply(context.Background(), "thanks")
	require.NoError(t, err)
	assert.Equal(t, "thanks", note.Body)
	assert.Len(t, th.View().Comments, 3)
}

func TestCommentThread_DeleteAfterRemoteSuccess(t *testing.T) {
	th, fake, _ := newThread(t)
	ctx := context.Background()

	fake.deleteErr = errors.New("forbidden")
	require.Error(t, th.DeleteComment(ctx, 2))
	assert.Len(t, th.View().Comments, 2)

	fake.deleteErr = nil
	require.NoError(t, th.DeleteComment(ctx, 2))
	assert.Len(t, th.View().Comments, 1)
}

func TestCommentThread_Dispose(t *testing.T) {
	th, fake, changes := newThread(t)
	ctx := context.Background()

	th.Dispose()
	assert.True(t, th.Disposed())

	assert.ErrorIs(t, th.BeginEdit(1), model.ErrSessionDisposed)
	assert.ErrorIs(t, th.Resolve(ctx), model.ErrSessionDisposed)
	_, err := th.Reply(ctx, "x")
	assert.ErrorIs(t, err, model.ErrSessionDisposed)
	assert.ErrorIs(t, th.DeleteComment(ctx, 1), model.ErrSessionDisposed)
	assert.Zero(t, fake.called("Reply"))
	assert.Zero(t, changes.Load())
}

func TestCommentThread_ResultAfterDisposeIsDiscarded(t *testing.T) {
	th, fake, _ := newThread(t)
	fake.block = make(chan struct{})

	require.NoError(t, th.BeginEdit(1))
	done := make(chan error)
	go func() { done <- th.SubmitEdit(context.Background(), 1, "late") }()

	assert.Eventually(t, func() bool { return fake.called("UpdateNote") == 1 }, time.Second, 5*time.Millisecond)
	th.Dispose()
	close(fake.block)

	assert.ErrorIs(t, <-done, model.ErrSessionDisposed)
	assert.Equal(t, "diff note disc-1", commentState(t, th, 1).Note.Body)
}
