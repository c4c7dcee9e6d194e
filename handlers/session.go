package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/giygas/pharmacy-notifier/identity"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

// sessionRequest accepts numeric or string user ids
type sessionRequest struct {
	Role     string          `json:"role"`
	ID       json.RawMessage `json:"id"`
	Username string          `json:"username"`
}

// GetSession returns the current identity, or 204 when logged out
func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.session.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	RespondWithJSON(w, http.StatusOK, id)
}

// PutSession logs in the identity of the request body. Switching to another
// identity drops everything computed for the previous one.
func (h *HTTPHandler) PutSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	id := identity.Identity{
		Role:     strings.TrimSpace(req.Role),
		UserID:   entities.DecodeIdentifier(req.ID),
		Username: strings.TrimSpace(req.Username),
	}
	if !id.Complete() {
		logging.Warn("Unusual user input", "role", req.Role, "id", string(req.ID))
		RespondWithError(w, http.StatusBadRequest, "role and id are required")
		return
	}

	h.session.Set(id)
	RespondWithJSON(w, http.StatusOK, id)
}

// DeleteSession logs out
func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}
