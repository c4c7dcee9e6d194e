// Package scheduler drives the snapshot refresh pipeline: fetch from the
// backend, validate, store, and announce the new snapshot on the event bus.
// The interval job only exists while at least one consuming view is active.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/pharmacy-notifier/clock"
	"github.com/giygas/pharmacy-notifier/events"
	"github.com/giygas/pharmacy-notifier/interfaces"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
	"github.com/giygas/pharmacy-notifier/metrics"
	"github.com/giygas/pharmacy-notifier/validation"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

type resetter interface {
	Reset()
}

// ErrStale is returned by RunNow when the schedule changed while the fetch was
// in flight and its result was discarded.
var ErrStale = errors.New("scheduler: snapshot discarded after deactivation or identity switch")

// DefaultInterval is the polling period when none is configured
const DefaultInterval = 60 * time.Second

// Scheduler polls the snapshot provider while views are active
type Scheduler struct {
	dataStore interfaces.DataStore
	provider  interfaces.SnapshotProvider
	validator interfaces.DataValidator
	bus       *events.Bus
	interval  time.Duration

	gateMu sync.RWMutex
	gate   func() bool

	mu      sync.Mutex
	started bool
	active  int
	cron    *gocron.Scheduler
	done    chan struct{}

	// epoch changes on every deactivation, restart and stop. A run applies
	// its result only if the epoch it started with is still current.
	epoch   atomic.Uint64
	applyMu sync.RWMutex
	pending atomic.Bool
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, provider interfaces.SnapshotProvider, bus *events.Bus, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		dataStore: dataStore,
		provider:  provider,
		validator: validation.NewDataValidator(),
		bus:       bus,
		interval:  interval,
	}
}

// SetGate installs a predicate checked before every fetch. Runs are skipped
// while it returns false, used to avoid fetching without a logged-in identity.
func (s *Scheduler) SetGate(gate func() bool) {
	s.gateMu.Lock()
	defer s.gateMu.Unlock()
	s.gate = gate
}

// Start enables polling. The interval job starts with the first activation.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	s.done = make(chan struct{})

	if s.active > 0 {
		if err := s.startJobLocked(); err != nil {
			s.started = false
			return err
		}
	}

	// Start health monitoring
	s.startHealthMonitoring(s.done)

	return nil
}

// Stop cancels the interval job and discards any fetch still in flight
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.stopJobLocked()
	s.bumpEpoch()
	close(s.done)
}

// Activate registers a consuming view. The first activation runs the pipeline
// immediately and starts the interval job; the last release cancels it.
func (s *Scheduler) Activate() (release func()) {
	s.mu.Lock()
	s.active++
	if s.active == 1 && s.started {
		if err := s.startJobLocked(); err != nil {
			logging.Error("Failed to schedule snapshot polling", "error", err)
		}
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(s.deactivate)
	}
}

func (s *Scheduler) deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active--
	if s.active > 0 {
		return
	}
	s.active = 0
	s.stopJobLocked()
	s.bumpEpoch()
}

// Restart discards in-flight work and the current snapshot, then, when
// active, starts a fresh job with an immediate run. Used when the identity
// changes, since the backend may serve each user a different inventory.
func (s *Scheduler) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopJobLocked()
	s.bumpEpoch()
	if r, ok := s.dataStore.(resetter); ok {
		r.Reset()
	}

	if s.started && s.active > 0 {
		if err := s.startJobLocked(); err != nil {
			logging.Error("Failed to reschedule snapshot polling", "error", err)
		}
	}
}

// RunNow runs the pipeline once, outside the interval
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.run(ctx, s.epoch.Load())
}

// NextRun returns the next scheduled tick, zero when no job is running
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}
	}
	_, next := s.cron.NextRun()
	if next.IsZero() {
		return time.Time{}
	}
	return next
}

// Active returns the number of registered views
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// startJobLocked schedules the interval job and fires the immediate run.
// Caller must hold mu.
func (s *Scheduler) startJobLocked() error {
	cron := gocron.NewScheduler(clock.Zone)
	cron.SingletonModeAll()

	epoch := s.epoch.Load()
	_, err := cron.Every(s.interval).WaitForSchedule().Do(func() {
		s.tick(epoch)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule updates: %w", err)
	}

	cron.StartAsync()
	s.cron = cron

	go s.tick(epoch)

	logging.Debug("Snapshot polling started", "interval", s.interval.String())
	return nil
}

// stopJobLocked cancels the interval job. The gocron scheduler is stopped off
// the lock since a running tick may still be finishing; the epoch bump that
// always follows makes its result stale. Caller must hold mu.
func (s *Scheduler) stopJobLocked() {
	if s.cron == nil {
		return
	}
	go s.cron.Stop()
	s.cron = nil
	logging.Debug("Snapshot polling stopped")
}

// bumpEpoch waits for an in-progress apply to finish so no stale snapshot can
// land after the caller returns.
func (s *Scheduler) bumpEpoch() {
	s.applyMu.Lock()
	s.epoch.Add(1)
	s.applyMu.Unlock()
}

func (s *Scheduler) tick(epoch uint64) {
	if err := s.run(context.Background(), epoch); err != nil && !errors.Is(err, ErrStale) {
		logging.Warn("Scheduled snapshot update failed, keeping previous snapshot", "error", err)
	}
}

func (s *Scheduler) allowed() bool {
	s.gateMu.RLock()
	gate := s.gate
	s.gateMu.RUnlock()
	return gate == nil || gate()
}

// run performs one fetch, validate and apply cycle for epoch
func (s *Scheduler) run(ctx context.Context, epoch uint64) error {
	if s.epoch.Load() != epoch {
		return ErrStale
	}
	if !s.allowed() {
		logging.Debug("No identity, skipping snapshot update")
		return nil
	}

	// Prevent concurrent updates. A skipped run is replayed once the
	// current one finishes, so an identity switch never waits a full interval.
	if !s.dataStore.BeginUpdate() {
		s.pending.Store(true)
		logging.Info("Update already in progress, queued...")
		return nil
	}
	defer func() {
		s.dataStore.EndUpdate()
		if s.pending.CompareAndSwap(true, false) && s.Active() > 0 {
			go s.tick(s.epoch.Load())
		}
	}()

	start := time.Now()
	medicines, err := s.provider.FetchMedicines(ctx)
	metrics.SnapshotFetchDuration.Observe(time.Since(start).Seconds())

	report, err := s.apply(epoch, medicines, err)
	if err != nil {
		return err
	}

	logging.Info("Snapshot update completed",
		"duration", time.Since(start).String(),
		"medicine_count", len(medicines),
		"valid_count", report.ValidRecords,
	)

	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.SnapshotUpdated})
	}

	return nil
}

// apply stores the fetch outcome unless epoch went stale meanwhile
func (s *Scheduler) apply(epoch uint64, medicines []entities.Medicine, fetchErr error) (*interfaces.DataQualityReport, error) {
	s.applyMu.RLock()
	defer s.applyMu.RUnlock()

	if s.epoch.Load() != epoch {
		metrics.SnapshotFetchTotal.WithLabelValues(metrics.FetchStale).Inc()
		logging.Debug("Discarding stale snapshot response")
		return nil, ErrStale
	}

	if fetchErr != nil {
		metrics.SnapshotFetchTotal.WithLabelValues(metrics.FetchFailure).Inc()
		s.dataStore.RecordFailure(fetchErr)
		return nil, fmt.Errorf("failed to fetch medicines: %w", fetchErr)
	}

	report := s.validator.ReportDataQuality(medicines)
	validation.LogReport(report)

	// Atomic update using injected data store (including report)
	s.dataStore.UpdateData(medicines, report)
	metrics.SnapshotFetchTotal.WithLabelValues(metrics.FetchSuccess).Inc()
	metrics.SnapshotMedicines.Set(float64(len(medicines)))

	return report, nil
}

// startHealthMonitoring warns when an active scheduler has not produced a
// snapshot for several intervals
func (s *Scheduler) startHealthMonitoring(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if s.Active() == 0 {
					continue
				}
				lastUpdate := s.dataStore.GetLastUpdated()
				if !lastUpdate.IsZero() && time.Since(lastUpdate) > 5*s.interval {
					logging.Warn("Snapshot hasn't been updated in over 5 intervals",
						"last_updated", lastUpdate.Format(time.RFC3339),
						"last_error", fmt.Sprint(s.dataStore.GetLastError()),
					)
				}
			}
		}
	}()
}
