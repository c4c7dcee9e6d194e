package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/metrics"
	"github.com/giygas/pharmacy-notifier/notifier"
	"github.com/go-chi/chi/v5/middleware"
)

// Stream pushes notification state as server-sent events. An open stream is
// an active view: polling runs while at least one stream is connected and
// stops when the last one goes away.
func (h *HTTPHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Streams outlive the server write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		logging.Debug("Write deadline not adjustable", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logging.Error("Streaming unsupported", "error", err)
		return
	}

	// Latest state wins, a slow client never blocks the notifier
	updates := make(chan notifier.State, 1)
	unsubscribe := h.notifier.Subscribe(func(s notifier.State) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	release := h.scheduler.Activate()
	defer release()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	requestID := middleware.GetReqID(r.Context())
	logging.Debug("Notification stream opened", "request_id", requestID, "subscribers", h.notifier.Subscribers())
	defer logging.Debug("Notification stream closed", "request_id", requestID)

	if err := writeEvent(w, rc, h.notifier.State()); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case state := <-updates:
			if err := writeEvent(w, rc, state); err != nil {
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, state notifier.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		logging.Error("Failed to marshal notification state", "error", err)
		return err
	}
	if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}
