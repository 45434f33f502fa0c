// Package handler contains the HTTP adapters: they parse requests, delegate
// to the service layer, and serialize results or errors. No business rules
// live here.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/script-archive/internal/apperror"
	"github.com/sakif/script-archive/internal/model"
	"github.com/sakif/script-archive/internal/service"
)

// ScriptHandler serves the /scripts routes.
type ScriptHandler struct {
	service *service.ScriptService
	logger  *slog.Logger
}

func NewScriptHandler(service *service.ScriptService, logger *slog.Logger) *ScriptHandler {
	return &ScriptHandler{
		service: service,
		logger:  logger,
	}
}

// CreateScriptRequest is the POST /scripts body.
type CreateScriptRequest struct {
	Title      string       `json:"title"`
	Characters []string     `json:"characters"`
	Lines      []model.Line `json:"lines"`
}

// UpdateScriptRequest is the PUT /scripts/{id} body. Pointer fields
// distinguish "absent" from "set to empty" so partial updates work.
type UpdateScriptRequest struct {
	Title      *string       `json:"title"`
	Characters *[]string     `json:"characters"`
	Lines      *[]model.Line `json:"lines"`
}

// BatchRequest is the POST /scripts/batch body.
type BatchRequest struct {
	IDs []string `json:"ids"`
}

// HandleList serves GET /scripts?page=&limit=&search=&sortBy=&sortOrder=.
// All parameters pass through raw; the service owns the validation and
// normalization contract.
func (h *ScriptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.List(r.Context(), service.ListParams{
		Page:      q.Get("page"),
		Limit:     q.Get("limit"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleGetByID serves GET /scripts/{id}.
func (h *ScriptHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	script, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

// HandleCreate serves POST /scripts.
func (h *ScriptHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid script JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	script, err := h.service.Create(r.Context(), req.Title, req.Characters, req.Lines)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, script)
}

// HandleUpdate serves PUT /scripts/{id}.
func (h *ScriptHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid script JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	script, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), service.ScriptUpdate{
		Title:      req.Title,
		Characters: req.Characters,
		Lines:      req.Lines,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

// HandleDelete serves DELETE /scripts/{id}.
func (h *ScriptHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRandom serves GET /scripts/random: one uniformly random script from
// the whole collection.
func (h *ScriptHandler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	script, err := h.service.Random(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

// HandleRandomMultiple serves GET /scripts/random-multiple?count=&excludeIds=.
// excludeIds is a comma-delimited id list; blank segments are dropped.
func (h *ScriptHandler) HandleRandomMultiple(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var excludeIDs []string
	for _, id := range strings.Split(q.Get("excludeIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			excludeIDs = append(excludeIDs, id)
		}
	}

	scripts, err := h.service.RandomMany(r.Context(), q.Get("count"), excludeIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scripts)
}

// HandleBatch serves POST /scripts/batch {ids: [...]}: returns the found
// subset, skipping ids that do not exist. A body that fails to decode (for
// example non-string entries) gets the same validation message as an empty
// list.
func (h *ScriptHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid batch JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("ids", service.MsgInvalidBatchIDs))
		return
	}

	scripts, err := h.service.GetBatch(r.Context(), req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scripts)
}
