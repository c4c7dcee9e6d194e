// Package handlers provides the HTTP handlers of the notification service:
// session management, badge and grouped lists per view, dismissals, the
// server-sent event stream and health reporting.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/giygas/pharmacy-notifier/interfaces"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/notifier"
	"github.com/giygas/pharmacy-notifier/session"
)

// DefaultHeartbeat is the interval of SSE keep-alive comments
const DefaultHeartbeat = 15 * time.Second

// HTTPHandler serves the notification endpoints
type HTTPHandler struct {
	notifier  *notifier.Service
	session   *session.Session
	scheduler interfaces.Scheduler
	dataStore interfaces.DataStore
	health    interfaces.HealthChecker
	heartbeat time.Duration
	startedAt time.Time
}

// Deps are the collaborators of the handlers
type Deps struct {
	Notifier  *notifier.Service
	Session   *session.Session
	Scheduler interfaces.Scheduler
	DataStore interfaces.DataStore
	Health    interfaces.HealthChecker
	Heartbeat time.Duration
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(deps Deps) *HTTPHandler {
	heartbeat := deps.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &HTTPHandler{
		notifier:  deps.Notifier,
		session:   deps.Session,
		scheduler: deps.Scheduler,
		dataStore: deps.DataStore,
		health:    deps.Health,
		heartbeat: heartbeat,
		startedAt: time.Now(),
	}
}

// ErrorResponse is the JSON error envelope of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// RespondWithJSON writes payload as JSON with the given status code
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write response", "error", err)
	}
}

// RespondWithError writes the JSON error envelope
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

// HealthResponse keeps a stable field order in /health
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
}

// HealthCheck returns the service health
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, code := h.health.HealthCheck()

	RespondWithJSON(w, code, HealthResponse{
		Status:        status,
		UptimeSeconds: time.Since(h.startedAt).Round(time.Second).Seconds(),
		Data:          details,
	})
}

// DataQuality returns the validation report of the current snapshot
func (h *HTTPHandler) DataQuality(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, h.dataStore.GetDataQualityReport())
}
