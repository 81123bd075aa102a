package httphandler

import (
	"net/http"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// workspacePath returns the ?path= query value, defaulting to the configured root.
func (h *Handler) workspacePath(r *http.Request) string {
	if p := r.URL.Query().Get("path"); p != "" {
		return p
	}
	return h.workspaceRoot
}

// BranchStatus reports pipeline, merge request and closing issues of the
// workspace branch. Segment failures are returned inline.
func (h *Handler) BranchStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.workspace.BranchStatus(r.Context(), h.workspacePath(r))
	if err != nil {
		h.fail(w, "failed to load branch status", err)
		return
	}
	writeJSON(w, http.StatusOK, toBranchStatusResponse(status))
}

// PipelineAction creates, retries or cancels the branch pipeline.
func (h *Handler) PipelineAction(w http.ResponseWriter, r *http.Request) {
	var req PipelineActionRequest
	if !h.decode(w, r, &req) {
		return
	}
	action, ok := model.ParsePipelineAction(req.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "action must be create, retry or cancel")
		return
	}

	p, err := h.workspace.PipelineAction(r.Context(), h.workspacePath(r), action)
	if err != nil {
		h.fail(w, "pipeline action failed", err, "action", action)
		return
	}
	writeJSON(w, http.StatusOK, toPipelineResponse(p))
}

// Search runs a custom query against the workspace project.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}

	q, err := req.toCustomQuery().Normalize()
	if err != nil {
		h.fail(w, "invalid query", err)
		return
	}

	items, err := h.workspace.Search(r.Context(), h.workspacePath(r), q)
	if err != nil {
		h.fail(w, "search failed", err, "query", q.Name)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Name:       q.Name,
		NoItemText: q.NoItemText,
		Items:      toIssuableResponses(items),
	})
}

// SearchText runs a free-text search given as ?q=, for example
// "label:bug author:me". ?type= defaults to merge requests.
func (h *Handler) SearchText(w http.ResponseWriter, r *http.Request) {
	typ := model.QueryType(r.URL.Query().Get("type"))
	if typ == "" {
		typ = model.QueryTypeMergeRequests
	}

	q, items, err := h.workspace.SearchText(r.Context(), h.workspacePath(r), r.URL.Query().Get("q"), typ)
	if err != nil {
		h.fail(w, "search failed", err, "type", typ)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Name:       q.Name,
		NoItemText: q.NoItemText,
		Items:      toIssuableResponses(items),
	})
}

// Lint validates a CI configuration.
func (h *Handler) Lint(w http.ResponseWriter, r *http.Request) {
	var req LintRequest
	if !h.decode(w, r, &req) {
		return
	}

	v, err := h.workspace.ValidateCIConfig(r.Context(), h.workspacePath(r), req.Content)
	if err != nil {
		h.fail(w, "CI lint failed", err)
		return
	}
	writeJSON(w, http.StatusOK, CIValidationResponse{
		Valid:    v.Valid,
		Errors:   nonNil(v.Errors),
		Warnings: nonNil(v.Warnings),
	})
}

// ListSnippets lists the snippets of the workspace project.
func (h *Handler) ListSnippets(w http.ResponseWriter, r *http.Request) {
	snippets, err := h.workspace.Snippets(r.Context(), h.workspacePath(r))
	if err != nil {
		h.fail(w, "failed to list snippets", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnippetResponses(snippets))
}

// SnippetContent returns one snippet file as plain text.
func (h *Handler) SnippetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "sid")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid snippet id")
		return
	}
	file := r.URL.Query().Get("file")
	if file == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}

	content, err := h.workspace.SnippetContent(r.Context(), h.workspacePath(r), id, file)
	if err != nil {
		h.fail(w, "failed to read snippet", err, "snippet", id)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

// CreateSnippet creates a snippet from a file or a line range of it.
func (h *Handler) CreateSnippet(w http.ResponseWriter, r *http.Request) {
	var req CreateSnippetRequest
	if !h.decode(w, r, &req) {
		return
	}
	content := req.Content
	if req.FromLine != 0 || req.ToLine != 0 {
		var err error
		if content, err = model.SelectLines(req.Content, req.FromLine, req.ToLine); err != nil {
			h.fail(w, "invalid snippet", err)
			return
		}
	}

	s, err := h.workspace.CreateSnippet(r.Context(), h.workspacePath(r), model.NewSnippet{
		Title:      req.Title,
		FileName:   req.FileName,
		Content:    content,
		Visibility: model.SnippetVisibility(req.Visibility),
	})
	if err != nil {
		h.fail(w, "failed to create snippet", err, "file", req.FileName)
		return
	}
	writeJSON(w, http.StatusCreated, toSnippetResponse(*s))
}

// ListPatchSnippets lists the snippets that carry a .patch file.
func (h *Handler) ListPatchSnippets(w http.ResponseWriter, r *http.Request) {
	snippets, err := h.workspace.PatchSnippets(r.Context(), h.workspacePath(r))
	if err != nil {
		h.fail(w, "failed to list patch snippets", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnippetResponses(snippets))
}

// ApplySnippetPatch applies a snippet's .patch file to the working copy.
func (h *Handler) ApplySnippetPatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "sid")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid snippet id")
		return
	}

	applied, err := h.workspace.ApplySnippetPatch(r.Context(), h.workspacePath(r), id)
	if err != nil {
		h.fail(w, "failed to apply snippet patch", err, "snippet", id)
		return
	}
	writeJSON(w, http.StatusOK, AppliedPatchResponse{
		SnippetID: applied.SnippetID,
		File:      applied.Blob,
		Changed:   nonNil(applied.Files),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
