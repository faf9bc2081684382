package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ryos-web/ryos-memory/internal/api/respond"
	"github.com/ryos-web/ryos-memory/internal/model"
	"github.com/ryos-web/ryos-memory/internal/services"
)

// MemoryHandler exposes the per-user memory operations over HTTP.
//
// Mutations answer 200 with the OpResult envelope whether or not the
// business rule passed; callers branch on the success flag the same way the
// web client does. Only malformed requests (400) and storage failures (500)
// use error status codes.
type MemoryHandler struct {
	svc *services.MemoryService
}

func NewMemoryHandler(svc *services.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type mutationBody struct {
	Key       string           `json:"key"`
	Summary   string           `json:"summary"`
	Content   string           `json:"content"`
	Mode      model.UpsertMode `json:"mode,omitempty"`
	Type      model.MemoryType `json:"type,omitempty"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
}

func (b mutationBody) request() services.MutationRequest {
	return services.MutationRequest{
		Key:       b.Key,
		Summary:   b.Summary,
		Content:   b.Content,
		Type:      b.Type,
		ExpiresAt: b.ExpiresAt,
	}
}

func (h *MemoryHandler) writeMutation(w http.ResponseWriter, res *model.OpResult, err error) {
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// Upsert POST /api/users/{username}/memories
// The body's mode field selects add (default), update, or merge.
func (h *MemoryHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	var body mutationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	mode := body.Mode
	if mode == "" {
		mode = model.ModeAdd
	}
	res, err := h.svc.Upsert(r.Context(), username, mode, body.request())
	h.writeMutation(w, res, err)
}

// Update PUT /api/users/{username}/memories/{key}
func (h *MemoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body mutationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.WriteBadRequest(w, "invalid JSON")
		return
	}
	req := body.request()
	req.Key = vars["key"]
	res, err := h.svc.Update(r.Context(), vars["username"], req)
	h.writeMutation(w, res, err)
}

// Delete DELETE /api/users/{username}/memories/{key}
func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := h.svc.Delete(r.Context(), vars["username"], vars["key"])
	h.writeMutation(w, res, err)
}

// Promote POST /api/users/{username}/memories/{key}/promote
func (h *MemoryHandler) Promote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := h.svc.PromoteToLongterm(r.Context(), vars["username"], vars["key"])
	h.writeMutation(w, res, err)
}

// GetIndex GET /api/users/{username}/memories
// Returns active entries; ?view=raw includes expired ones.
func (h *MemoryHandler) GetIndex(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var idx *model.MemoryIndex
	var err error
	if r.URL.Query().Get("view") == "raw" {
		idx, err = h.svc.RawIndex(r.Context(), username)
	} else {
		idx, err = h.svc.ActiveIndex(r.Context(), username)
	}
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "user has no memories")
		return
	}
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"memories": idx.Memories,
		"count":    len(idx.Memories),
		"version":  idx.Version,
	})
}

// ListKeys GET /api/users/{username}/memories/keys
func (h *MemoryHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	keys, err := h.svc.ListKeys(r.Context(), username)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"keys":  keys,
		"count": len(keys),
	})
}

// Prompt GET /api/users/{username}/memories/prompt
// Returns the prompt-ready summary block or 404 when nothing is active.
func (h *MemoryHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	out, err := h.svc.SummariesForPrompt(r.Context(), username)
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	if out == "" {
		respond.WriteNotFound(w, "no active memories")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"prompt": out})
}

// GetDetail GET /api/users/{username}/memories/{key}
func (h *MemoryHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	det, err := h.svc.GetDetail(r.Context(), vars["username"], vars["key"])
	if errors.Is(err, model.ErrValidation) {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "memory not found")
		return
	}
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, det)
}

// Clear DELETE /api/users/{username}/memories
// Admin surface: drops the index and every detail for the user.
func (h *MemoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	n, err := h.svc.Clear(r.Context(), username)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]int{"removed": n})
}
