package httphandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// OpenSession loads an issue or merge request and starts a review session.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ProjectID <= 0 || req.IID <= 0 {
		writeError(w, http.StatusBadRequest, "project_id and iid must be positive")
		return
	}

	kind := model.IssuableKindMergeRequest
	if req.Kind != "" {
		k, ok := model.ParseIssuableKind(req.Kind)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown kind: "+req.Kind)
			return
		}
		kind = k
	}

	s, err := h.sessions.Open(r.Context(), req.ProjectID, req.IID, kind)
	if err != nil {
		h.fail(w, "failed to open session", err, "project_id", req.ProjectID, "iid", req.IID)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(s))
}

// GetSession describes an open session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

// CloseSession disposes a session.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Close(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFiles returns the changed files of the session's current version.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	files, err := s.ChangedFiles()
	if err != nil {
		h.fail(w, "failed to list files", err, "session", s.ID())
		return
	}
	writeJSON(w, http.StatusOK, toChangedFileResponses(files))
}

// GetContent returns one side of a changed file. The optional version query
// parameter reads the file at an earlier version of the merge request.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	side, ok := parseSide(r.URL.Query().Get("side"))
	if !ok {
		writeError(w, http.StatusBadRequest, "side must be base or head")
		return
	}

	var (
		versionID int
		content   string
		err       error
	)
	if v := r.URL.Query().Get("version"); v != "" {
		versionID, err = strconv.Atoi(v)
		if err != nil || versionID <= 0 {
			writeError(w, http.StatusBadRequest, "version must be a positive integer")
			return
		}
		content, err = s.ContentAt(r.Context(), versionID, path, side)
	} else {
		content, err = s.Content(r.Context(), path, side)
	}
	if err != nil {
		h.fail(w, "failed to load content", err, "session", s.ID(), "path", path)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Path: path, Side: string(side), VersionID: versionID, Content: content})
}

// RefreshVersion checks for a newer merge request version.
func (h *Handler) RefreshVersion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	changed, err := s.RefreshVersion(r.Context())
	if err != nil {
		h.fail(w, "failed to refresh version", err, "session", s.ID())
		return
	}
	resp := RefreshResponse{Changed: changed}
	if v := s.Version(); v != nil {
		resp.VersionID = v.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListDiscussions returns the session's timeline, threads and overview.
// Discussions load on first request or when reload=true.
func (h *Handler) ListDiscussions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if !s.Loaded() || r.URL.Query().Get("reload") == "true" {
		if _, err := s.LoadDiscussions(r.Context()); err != nil {
			h.fail(w, "failed to load discussions", err, "session", s.ID())
			return
		}
	}
	writeJSON(w, http.StatusOK, toDiscussionsResponse(s))
}

// CreateThread starts a discussion on a diff line.
func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req CreateThreadRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Path == "" || req.Line <= 0 || strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "path, line and body are required")
		return
	}
	side, ok := parseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "side must be base or head")
		return
	}

	t, err := s.CreateThread(r.Context(), req.Path, req.Line, side, req.Body)
	if err != nil {
		h.fail(w, "failed to create thread", err, "session", s.ID(), "path", req.Path)
		return
	}
	writeJSON(w, http.StatusCreated, toThreadResponse(t.View(), sessionMarkdown(s)))
}

// AddComment posts a general comment on the issuable.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	body, ok := h.body(w, r)
	if !ok {
		return
	}

	n, err := s.AddComment(r.Context(), body)
	if err != nil {
		h.fail(w, "failed to add comment", err, "session", s.ID())
		return
	}
	writeJSON(w, http.StatusCreated, toNoteResponse(*n, sessionMarkdown(s)))
}

// Reply appends a note to a thread.
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	s, t, ok := h.thread(w, r)
	if !ok {
		return
	}
	body, ok := h.body(w, r)
	if !ok {
		return
	}

	n, err := t.Reply(r.Context(), body)
	if err != nil {
		h.fail(w, "failed to reply", err, "discussion", t.DiscussionID())
		return
	}
	writeJSON(w, http.StatusCreated, toNoteResponse(*n, sessionMarkdown(s)))
}

// BeginEdit puts a comment into editing state.
func (h *Handler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(t *application.CommentThread, noteID int) error {
		return t.BeginEdit(noteID)
	})
}

// CancelEdit restores a comment to its state before editing.
func (h *Handler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(t *application.CommentThread, noteID int) error {
		return t.CancelEdit(noteID)
	})
}

// SubmitEdit saves an edited comment body.
func (h *Handler) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	body, ok := h.body(w, r)
	if !ok {
		return
	}
	h.noteAction(w, r, func(t *application.CommentThread, noteID int) error {
		return t.SubmitEdit(r.Context(), noteID, body)
	})
}

// DeleteComment removes a comment from its thread.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(t *application.CommentThread, noteID int) error {
		return t.DeleteComment(r.Context(), noteID)
	})
}

// Resolve marks a thread resolved.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.threadAction(w, r, (*application.CommentThread).Resolve)
}

// Unresolve marks a thread unresolved.
func (h *Handler) Unresolve(w http.ResponseWriter, r *http.Request) {
	h.threadAction(w, r, (*application.CommentThread).Unresolve)
}

func (h *Handler) threadAction(w http.ResponseWriter, r *http.Request, fn func(*application.CommentThread, context.Context) error) {
	s, t, ok := h.thread(w, r)
	if !ok {
		return
	}
	if err := fn(t, r.Context()); err != nil {
		h.fail(w, "thread action failed", err, "discussion", t.DiscussionID())
		return
	}
	writeJSON(w, http.StatusOK, toThreadResponse(t.View(), sessionMarkdown(s)))
}

func (h *Handler) noteAction(w http.ResponseWriter, r *http.Request, fn func(*application.CommentThread, int) error) {
	s, t, ok := h.thread(w, r)
	if !ok {
		return
	}
	noteID, ok := pathInt(r, "nid")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	if err := fn(t, noteID); err != nil {
		h.fail(w, "comment action failed", err, "discussion", t.DiscussionID(), "note", noteID)
		return
	}
	writeJSON(w, http.StatusOK, toThreadResponse(t.View(), sessionMarkdown(s)))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*application.ReviewSession, bool) {
	s, ok := h.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func (h *Handler) thread(w http.ResponseWriter, r *http.Request) (*application.ReviewSession, *application.CommentThread, bool) {
	s, ok := h.session(w, r)
	if !ok {
		return nil, nil, false
	}
	t, ok := s.Thread(r.PathValue("did"))
	if !ok {
		writeError(w, http.StatusNotFound, "thread not found")
		return nil, nil, false
	}
	return s, t, true
}

func sessionMarkdown(s *application.ReviewSession) *Markdown {
	return markdownFor(s.Issuable().WebURL)
}

func (h *Handler) body(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req BodyRequest
	if !h.decode(w, r, &req) {
		return "", false
	}
	if strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "body is required")
		return "", false
	}
	return req.Body, true
}

// parseSide defaults to the head side.
func parseSide(s string) (model.DiffSide, bool) {
	if s == "" {
		return model.DiffSideHead, true
	}
	return model.ParseDiffSide(s)
}
