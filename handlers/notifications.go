package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/notifier"
	"github.com/go-chi/chi/v5"
)

// refreshTimeout bounds a navigation-triggered fetch
const refreshTimeout = 30 * time.Second

// BadgeResponse is the unread badge
type BadgeResponse struct {
	Unread int `json:"unread_count"`
}

// NotificationsResponse is the grouped, paginated content of one view
type NotificationsResponse struct {
	View         notifier.View `json:"view"`
	Unread       int           `json:"unread_count"`
	SnapshotAt   *time.Time    `json:"snapshot_at,omitempty"`
	Expired      Page          `json:"expired"`
	LowStock     Page          `json:"low_stock"`
	ExpiringSoon Page          `json:"expiring_soon"`
}

// Badge returns the unread count. Without an identity it is zero.
func (h *HTTPHandler) Badge(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, BadgeResponse{Unread: h.notifier.UnreadCount()})
}

// Notifications returns the grouped lists of the requested view
func (h *HTTPHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	view, err := notifier.ParseView(q.Get("view"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, size, err := parsePaging(q)
	if err != nil {
		logging.Warn("Unusual user input", "query", r.URL.RawQuery)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	lists, err := h.notifier.VisibleLists(view)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	state := h.notifier.State()

	resp := NotificationsResponse{
		View:         view,
		Unread:       state.Unread,
		Expired:      paginate(lists.Expired, page, size),
		LowStock:     paginate(lists.LowStock, page, size),
		ExpiringSoon: paginate(lists.ExpiringSoon, page, size),
	}
	if !state.SnapshotAt.IsZero() {
		resp.SnapshotAt = &state.SnapshotAt
	}

	RespondWithJSON(w, http.StatusOK, resp)
}

// Visit marks every visible notification as seen and resets the badge
func (h *HTTPHandler) Visit(w http.ResponseWriter, r *http.Request) {
	state, err := h.notifier.MarkVisitedSeen(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, state)
}

// Dismiss hides one notification from every view of the current identity
func (h *HTTPHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing notification id")
		return
	}

	if err := h.notifier.Dismiss(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"id":           id,
		"dismissed":    true,
		"unread_count": h.notifier.UnreadCount(),
	})
}

// Item returns one medicine with its classes under the view's horizon
func (h *HTTPHandler) Item(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	view := notifier.View(r.URL.Query().Get("view"))

	item, err := h.notifier.Item(r.Context(), view, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, item)
}

// Refresh fetches a new snapshot right away, as a page navigation does
func (h *HTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session.Current(); !ok {
		h.respondServiceError(w, notifier.ErrNoIdentity)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	if err := h.scheduler.RunNow(ctx); err != nil {
		logging.Warn("Refresh failed, keeping previous snapshot", "error", err)
		RespondWithError(w, http.StatusBadGateway, "Could not refresh the inventory snapshot")
		return
	}
	RespondWithJSON(w, http.StatusOK, h.notifier.State())
}

func (h *HTTPHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notifier.ErrNoIdentity):
		RespondWithError(w, http.StatusUnauthorized, "No identity, log in first")
	case errors.Is(err, notifier.ErrUnknownView):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, notifier.ErrUnknownItem):
		RespondWithError(w, http.StatusNotFound, "Medicine not in the current snapshot")
	default:
		logging.Error("Notification request failed", "error", err)
		RespondWithError(w, http.StatusServiceUnavailable, "Dismissal storage unavailable")
	}
}
