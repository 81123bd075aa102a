package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// EventKind names a review session state change.
type EventKind string

const (
	EventDiscussionsUpdated EventKind = "discussionsUpdated"
	EventVersionChanged     EventKind = "versionChanged"
	EventSessionDisposed    EventKind = "sessionDisposed"
)

// Event is published to session subscribers.
type Event struct {
	Kind      EventKind
	SessionID string
	VersionID int // Set for EventVersionChanged.
}

// ReviewSession is the in-memory review state of one issuable: its current
// version, comment threads, overview discussions and timeline. State is
// rebuilt from the remote on open and never persisted.
type ReviewSession struct {
	id       string
	client   DiscussionClient
	resolver *VersionResolver
	loader   *DiscussionLoader

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	issuable    model.Issuable
	version     *model.MrVersion
	versionErr  error
	versions    map[int]*model.MrVersion
	threads     []*CommentThread
	overview    []model.Discussion
	timeline    []model.TimelineEntry
	loaded      bool
	subscribers map[int]func(Event)
	nextSub     int
	disposed    bool
}

// OpenSession starts a session for issuable. Merge requests load their
// latest version before the session is returned. A merge request whose
// version cannot be read still opens: discussions work, and the file
// operations report the version error until RefreshVersion succeeds.
func OpenSession(ctx context.Context, client DiscussionClient, issuable model.Issuable, pageSize int) (*ReviewSession, error) {
	resolver := NewVersionResolver(client)

	var (
		version    *model.MrVersion
		versionErr error
	)
	if issuable.IsMergeRequest() {
		version, versionErr = resolver.LatestVersion(ctx, issuable)
		if versionErr != nil {
			if ctx.Err() != nil {
				return nil, versionErr
			}
			slog.Warn("review session opened without a version", "iid", issuable.IID, "error", versionErr)
		}
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &ReviewSession{
		id:          uuid.NewString(),
		client:      client,
		resolver:    resolver,
		loader:      NewDiscussionLoader(client, pageSize),
		ctx:         sctx,
		cancel:      cancel,
		issuable:    issuable,
		version:     version,
		versionErr:  versionErr,
		versions:    map[int]*model.MrVersion{},
		subscribers: map[int]func(Event){},
	}

	slog.Info("review session opened", "session", s.id, "kind", issuable.Kind,
		"project_id", issuable.ProjectID, "iid", issuable.IID)
	return s, nil
}

// ID returns the session's unique id.
func (s *ReviewSession) ID() string { return s.id }

// Issuable returns the issuable under review.
func (s *ReviewSession) Issuable() model.Issuable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issuable
}

// Version returns the current version, or nil for issues and for merge
// requests whose version could not be read.
func (s *ReviewSession) Version() *model.MrVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == nil {
		return nil
	}
	v := *s.version
	return &v
}

// VersionErr returns why the current version is missing, or nil.
func (s *ReviewSession) VersionErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versionErr
}

// ChangedFiles lists the files of the current version. Issues have none.
func (s *ReviewSession) ChangedFiles() ([]ChangedFileItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versionErr != nil {
		return nil, s.versionErr
	}
	if s.version == nil {
		return []ChangedFileItem{}, nil
	}
	return ChangedFiles(s.issuable, *s.version), nil
}

// Content returns one side of a changed file in the current version.
func (s *ReviewSession) Content(ctx context.Context, path string, side model.DiffSide) (string, error) {
	issuable, version, err := s.current()
	if err != nil {
		return "", err
	}

	ctx, done := s.bind(ctx)
	defer done()
	return s.resolver.BlobContent(ctx, issuable, version, side, path)
}

// ContentAt returns one side of a changed file in an earlier or current
// version of the merge request. Versions are cached per session.
func (s *ReviewSession) ContentAt(ctx context.Context, versionID int, path string, side model.DiffSide) (string, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return "", model.ErrSessionDisposed
	}
	issuable := s.issuable
	version, ok := s.versions[versionID]
	if !ok && s.version != nil && s.version.ID == versionID {
		version, ok = s.version, true
	}
	s.mu.Unlock()

	ctx, done := s.bind(ctx)
	defer done()

	if !ok {
		v, err := s.resolver.Version(ctx, issuable, versionID)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.versions[versionID] = v
		s.mu.Unlock()
		version = v
	}
	return s.resolver.BlobContent(ctx, issuable, version, side, path)
}

// current returns the issuable and version for file operations.
func (s *ReviewSession) current() (model.Issuable, *model.MrVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.disposed:
		return model.Issuable{}, nil, model.ErrSessionDisposed
	case s.versionErr != nil:
		return model.Issuable{}, nil, s.versionErr
	case s.version == nil:
		return model.Issuable{}, nil, model.ErrNotMergeRequest
	}
	return s.issuable, s.version, nil
}

// Threads returns the comment threads in discussion order.
func (s *ReviewSession) Threads() []*CommentThread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.threads)
}

// Thread finds a thread by discussion id.
func (s *ReviewSession) Thread(discussionID string) (*CommentThread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.threads {
		if t.DiscussionID() == discussionID {
			return t, true
		}
	}
	return nil, false
}

// Overview returns the general discussions.
func (s *ReviewSession) Overview() []model.Discussion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.overview)
}

// Timeline returns the merged discussion and label event timeline.
func (s *ReviewSession) Timeline() []model.TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.timeline)
}

// Loaded reports whether discussions have been loaded at least once.
func (s *ReviewSession) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LoadDiscussions fetches all discussions and rebuilds the threads, replacing
// and disposing the previous ones. On failure the previous state is kept.
func (s *ReviewSession) LoadDiscussions(ctx context.Context) (*model.DiscussionSet, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, model.ErrSessionDisposed
	}
	issuable := s.issuable
	s.mu.Unlock()

	ctx, done := s.bind(ctx)
	defer done()

	set, err := s.loader.Load(ctx, issuable)
	if err != nil {
		if s.isDisposed() {
			return nil, model.ErrSessionDisposed
		}
		return nil, err
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, model.ErrSessionDisposed
	}
	old := s.threads
	s.threads = make([]*CommentThread, 0, len(set.TextDiff))
	for _, d := range set.TextDiff {
		s.threads = append(s.threads, NewCommentThread(s.client, issuable, d, s.threadChanged))
	}
	s.overview = set.General
	s.timeline = set.Timeline
	s.loaded = true
	s.mu.Unlock()

	for _, t := range old {
		t.Dispose()
	}

	s.emit(Event{Kind: EventDiscussionsUpdated})
	return set, nil
}

// CreateThread starts a discussion at line of path on the given side of the
// current version and binds it as a new thread. Head-side comments anchor to
// the new path and line, base-side comments to the old ones.
func (s *ReviewSession) CreateThread(ctx context.Context, path string, line int, side model.DiffSide, body string) (*CommentThread, error) {
	issuable, version, err := s.current()
	if err != nil {
		return nil, err
	}
	diff, ok := version.FindDiff(path)
	if !ok {
		return nil, fmt.Errorf("%s is not changed in version %d: %w", path, version.ID, driven.ErrNotFound)
	}

	pos := model.Position{
		PositionType: model.PositionTypeText,
		BaseSHA:      version.BaseCommitSHA,
		StartSHA:     version.StartCommitSHA,
		HeadSHA:      version.HeadCommitSHA,
		OldPath:      diff.OldPath,
		NewPath:      diff.NewPath,
	}
	switch side {
	case model.DiffSideBase:
		pos.OldLine = line
	case model.DiffSideHead:
		pos.NewLine = line
	default:
		return nil, fmt.Errorf("unknown diff side %q", side)
	}

	ctx, done := s.bind(ctx)
	defer done()

	d, err := s.client.CreateDiscussion(ctx, issuable, body, &pos)
	if err != nil {
		return nil, fmt.Errorf("create discussion on %s:%d: %w", path, line, err)
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, model.ErrSessionDisposed
	}
	t := NewCommentThread(s.client, issuable, *d, s.threadChanged)
	s.threads = append(s.threads, t)
	s.timeline = append(s.timeline, model.DiscussionEntry(*d))
	s.mu.Unlock()

	s.emit(Event{Kind: EventDiscussionsUpdated})
	return t, nil
}

// AddComment posts a general note on the issuable and reloads discussions.
func (s *ReviewSession) AddComment(ctx context.Context, body string) (*model.Note, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, model.ErrSessionDisposed
	}
	issuable := s.issuable
	s.mu.Unlock()

	bctx, done := s.bind(ctx)
	note, err := s.client.AddNote(bctx, issuable, body)
	done()
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	if _, err := s.LoadDiscussions(ctx); err != nil {
		return note, err
	}
	return note, nil
}

// RefreshVersion re-reads the latest version and reports whether it changed.
// A change emits EventVersionChanged.
func (s *ReviewSession) RefreshVersion(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false, model.ErrSessionDisposed
	}
	issuable := s.issuable
	s.mu.Unlock()

	if !issuable.IsMergeRequest() {
		return false, nil
	}

	ctx, done := s.bind(ctx)
	defer done()

	latest, err := s.resolver.LatestVersion(ctx, issuable)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false, model.ErrSessionDisposed
	}
	s.versionErr = nil
	changed := s.version == nil || s.version.ID != latest.ID
	if changed {
		s.version = latest
	}
	s.mu.Unlock()

	if changed {
		slog.Info("merge request version changed", "session", s.id, "version", latest.ID)
		s.emit(Event{Kind: EventVersionChanged, VersionID: latest.ID})
	}
	return changed, nil
}

// Subscribe registers fn for session events and returns a function that
// removes it. Subscribing to a disposed session is a no-op.
func (s *ReviewSession) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Dispose cancels in-flight requests, disposes every thread, publishes
// EventSessionDisposed and drops all subscribers. It is idempotent.
func (s *ReviewSession) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.cancel()
	threads := s.threads
	subs := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subscribers = nil
	s.mu.Unlock()

	for _, t := range threads {
		t.Dispose()
	}
	for _, fn := range subs {
		fn(Event{Kind: EventSessionDisposed, SessionID: s.id})
	}
	slog.Info("review session disposed", "session", s.id)
}

// Done returns a channel that is closed once the session is disposed.
func (s *ReviewSession) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Disposed reports whether Dispose has been called.
func (s *ReviewSession) Disposed() bool {
	return s.isDisposed()
}

func (s *ReviewSession) isDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *ReviewSession) threadChanged() {
	s.emit(Event{Kind: EventDiscussionsUpdated})
}

func (s *ReviewSession) emit(e Event) {
	e.SessionID = s.id

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	subs := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// bind derives a context that is also cancelled when the session is disposed.
func (s *ReviewSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
