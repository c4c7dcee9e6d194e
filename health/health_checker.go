// Package health reports whether the notification service can serve fresh data.
package health

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/giygas/pharmacy-notifier/interfaces"
	"github.com/giygas/pharmacy-notifier/kvstore"
)

// probeKey is read, never written, to check the dismissal storage
const probeKey = "health:probe"

const probeTimeout = 2 * time.Second

// staleAfter is how many poll intervals a snapshot may age while views are active
const staleAfter = 3

type activeCounter interface {
	Active() int
}

type snapshotCounter interface {
	SnapshotCount() uint64
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	scheduler interfaces.Scheduler
	storage   kvstore.KeyValueStore
	interval  time.Duration
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(dataStore interfaces.DataStore, scheduler interfaces.Scheduler, storage kvstore.KeyValueStore, interval time.Duration) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		scheduler: scheduler,
		storage:   storage,
		interval:  interval,
	}
}

// HealthCheck returns the status, its details and the HTTP code for /health.
// An idle service with no snapshot is healthy: nothing is fetched until a
// view is active.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	medicines := h.dataStore.GetMedicines()
	lastUpdate := h.dataStore.GetLastUpdated()
	lastErr := h.dataStore.GetLastError()
	isUpdating := h.dataStore.IsUpdating()
	storageErr := h.checkStorage()

	active := 0
	if c, ok := h.scheduler.(activeCounter); ok {
		active = c.Active()
	}

	var dataAge time.Duration
	if !lastUpdate.IsZero() {
		dataAge = time.Since(lastUpdate)
	}

	switch {
	case storageErr != nil:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case active > 0 && !lastUpdate.IsZero() && dataAge > staleAfter*h.interval:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case lastErr != nil:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"medicines":        len(medicines),
		"is_updating":      isUpdating,
		"active_views":     active,
		"poll_interval":    h.interval.String(),
		"data_age_seconds": math.Round(dataAge.Seconds()),
		"storage":          "ok",
	}
	if !lastUpdate.IsZero() {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
	}
	if lastAttempt := h.dataStore.GetLastAttempt(); !lastAttempt.IsZero() {
		data["last_attempt"] = lastAttempt.Format(time.RFC3339)
	}
	if c, ok := h.dataStore.(snapshotCounter); ok {
		data["snapshots_applied"] = c.SnapshotCount()
	}
	if lastErr != nil {
		data["last_error"] = lastErr.Error()
	}
	if storageErr != nil {
		data["storage"] = storageErr.Error()
	}
	if h.scheduler != nil {
		if next := h.scheduler.NextRun(); !next.IsZero() {
			data["next_update"] = next.Format(time.RFC3339)
		}
	}

	return status, data, httpStatus
}

func (h *HealthCheckerImpl) checkStorage() error {
	if h.storage == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if _, err := h.storage.Get(ctx, probeKey); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return err
	}
	return nil
}
