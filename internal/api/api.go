// ABOUTME: HTTP JSON endpoints exposing the entity repository
// ABOUTME: GET/POST /api/entities/{kind} and PATCH/DELETE /api/entities/{kind}/{id}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/2389/folio/internal/store"
)

// maxBodyBytes caps request bodies for write endpoints.
const maxBodyBytes = 1 << 20

// WriteRequest is the JSON body for POST and PATCH.
type WriteRequest struct {
	Fields store.Fields `json:"fields"`
}

// ListResponse is the JSON response for GET /api/entities/{kind}.
type ListResponse struct {
	Records []*store.Record `json:"records"`
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the entity API over a repository.
type Handler struct {
	repo   store.Repository
	logger *slog.Logger

	// OnChange runs after every successful write with the written kind.
	OnChange func(kind store.Kind)
}

// New creates a Handler. Pass nil logger for default.
func New(repo store.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger.With("component", "api"),
	}
}

// RegisterRoutes adds the entity routes to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/entities/{kind}", h.handleList)
	mux.HandleFunc("POST /api/entities/{kind}", h.handleCreate)
	mux.HandleFunc("PATCH /api/entities/{kind}/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/entities/{kind}/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}

	records, err := h.repo.List(r.Context(), kind, r.URL.Query().Get("sort"))
	if err != nil {
		h.sendError(w, err, "listing entities", "kind", kind)
		return
	}
	if records == nil {
		records = []*store.Record{}
	}

	h.sendJSON(w, http.StatusOK, ListResponse{Records: records})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	req, ok := h.parseBody(w, r)
	if !ok {
		return
	}

	rec, err := h.repo.Create(r.Context(), kind, req.Fields)
	if err != nil {
		h.sendError(w, err, "creating entity", "kind", kind)
		return
	}

	h.logger.Info("entity created", "kind", kind, "id", rec.ID)
	h.changed(kind)
	h.sendJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	req, ok := h.parseBody(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	rec, err := h.repo.Update(r.Context(), kind, id, req.Fields)
	if err != nil {
		h.sendError(w, err, "updating entity", "kind", kind, "id", id)
		return
	}

	h.logger.Info("entity updated", "kind", kind, "id", id)
	h.changed(kind)
	h.sendJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.parseKind(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	if err := h.repo.Delete(r.Context(), kind, id); err != nil {
		h.sendError(w, err, "deleting entity", "kind", kind, "id", id)
		return
	}

	h.logger.Info("entity deleted", "kind", kind, "id", id)
	h.changed(kind)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changed(kind store.Kind) {
	if h.OnChange != nil {
		h.OnChange(kind)
	}
}

func (h *Handler) parseKind(w http.ResponseWriter, r *http.Request) (store.Kind, bool) {
	kind, err := store.ParseKind(r.PathValue("kind"))
	if err != nil {
		h.sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return "", false
	}
	return kind, true
}

func (h *Handler) parseBody(w http.ResponseWriter, r *http.Request) (*WriteRequest, bool) {
	var req WriteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid JSON body: %v", err)})
		return nil, false
	}
	if req.Fields == nil {
		h.sendJSON(w, http.StatusBadRequest, ErrorResponse{Error: "fields is required"})
		return nil, false
	}
	return &req, true
}

// sendError maps repository errors onto HTTP statuses.
func (h *Handler) sendError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, append(attrs, "error", err)...)
	} else {
		h.logger.Debug(msg, append(attrs, "error", err)...)
	}
	h.sendJSON(w, status, ErrorResponse{Error: err.Error()})
}

// StatusFor returns the HTTP status for a repository error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrRepositoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("writing response", "error", err)
	}
}
