package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/domain/model"
	"github.com/ericfisherdev/mrpanel/internal/domain/port/driven"
)

// maxBodyBytes caps JSON request bodies. CI configs are the largest payload.
const maxBodyBytes = 1 << 20

// Handler is the HTTP driving adapter that serves the review panel API.
type Handler struct {
	sessions      *application.SessionManager
	workspace     *application.WorkspaceService
	tokens        *application.TokenService
	workspaceRoot string
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. workspaceRoot
// is the working copy used when a workspace request carries no path.
func NewHandler(
	sessions *application.SessionManager,
	workspace *application.WorkspaceService,
	tokens *application.TokenService,
	workspaceRoot string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		sessions:      sessions,
		workspace:     workspace,
		tokens:        tokens,
		workspaceRoot: workspaceRoot,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("PUT /api/v1/token", h.SetToken)
	mux.HandleFunc("DELETE /api/v1/token", h.RemoveToken)

	mux.HandleFunc("POST /api/v1/sessions", h.OpenSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.GetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", h.CloseSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/files", h.ListFiles)
	mux.HandleFunc("GET /api/v1/sessions/{id}/content", h.GetContent)
	mux.HandleFunc("POST /api/v1/sessions/{id}/version/refresh", h.RefreshVersion)
	mux.HandleFunc("GET /api/v1/sessions/{id}/discussions", h.ListDiscussions)
	mux.HandleFunc("GET /api/v1/sessions/{id}/events", h.Events)
	mux.HandleFunc("POST /api/v1/sessions/{id}/threads", h.CreateThread)
	mux.HandleFunc("POST /api/v1/sessions/{id}/comments", h.AddComment)
	mux.HandleFunc("POST /api/v1/sessions/{id}/threads/{did}/replies", h.Reply)
	mux.HandleFunc("POST /api/v1/sessions/{id}/threads/{did}/notes/{nid}/edit", h.BeginEdit)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}/threads/{did}/notes/{nid}/edit", h.CancelEdit)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/threads/{did}/notes/{nid}", h.SubmitEdit)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}/threads/{did}/notes/{nid}", h.DeleteComment)
	mux.HandleFunc("POST /api/v1/sessions/{id}/threads/{did}/resolve", h.Resolve)
	mux.HandleFunc("POST /api/v1/sessions/{id}/threads/{did}/unresolve", h.Unresolve)

	mux.HandleFunc("GET /api/v1/workspace/status", h.BranchStatus)
	mux.HandleFunc("POST /api/v1/workspace/pipeline", h.PipelineAction)
	mux.HandleFunc("POST /api/v1/workspace/search", h.Search)
	mux.HandleFunc("GET /api/v1/workspace/search", h.SearchText)
	mux.HandleFunc("POST /api/v1/workspace/lint", h.Lint)
	mux.HandleFunc("GET /api/v1/workspace/snippets", h.ListSnippets)
	mux.HandleFunc("POST /api/v1/workspace/snippets", h.CreateSnippet)
	mux.HandleFunc("GET /api/v1/workspace/snippets/patches", h.ListPatchSnippets)
	mux.HandleFunc("GET /api/v1/workspace/snippets/{sid}/content", h.SnippetContent)
	mux.HandleFunc("POST /api/v1/workspace/snippets/{sid}/apply", h.ApplySnippetPatch)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns service liveness plus whether a GitLab token is installed.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Time:     time.Now().UTC().Format(time.RFC3339),
		HasToken: h.tokens.HasToken(),
		Sessions: h.sessions.Len(),
	})
}

// SetToken stores a personal access token and swaps the GitLab client.
func (h *Handler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.tokens.SetToken(r.Context(), req.Token); err != nil {
		h.fail(w, "failed to set token", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveToken deletes the stored token and disables GitLab access.
func (h *Handler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.RemoveToken(r.Context()); err != nil {
		h.fail(w, "failed to remove token", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v. It writes a 400 and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// fail maps a domain or driven-port error to a status code and writes it.
// Server-side failures are logged; client errors are not.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error, args ...any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, append(args, "error", err)...)
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, driven.ErrNotFound), errors.Is(err, model.ErrCommentNotFound),
		errors.Is(err, model.ErrNoPatchSnippets):
		return http.StatusNotFound
	case errors.Is(err, driven.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrStaleEdit), errors.Is(err, model.ErrCommentBusy),
		errors.Is(err, model.ErrPatchDoesNotApply):
		return http.StatusConflict
	case errors.Is(err, model.ErrUnsupportedContent):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, model.ErrInvalidQuery), errors.Is(err, model.ErrInvalidSnippet),
		errors.Is(err, model.ErrNotEditing),
		errors.Is(err, model.ErrNotMergeRequest), errors.Is(err, model.ErrUnsupportedKind):
		return http.StatusBadRequest
	case errors.Is(err, driven.ErrTransport), errors.Is(err, driven.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrSessionDisposed):
		return http.StatusGone
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
