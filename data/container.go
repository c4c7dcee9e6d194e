// Package data provides thread-safe snapshot storage for the notification service.
// The DataContainer swaps whole snapshots atomically so aggregation passes never
// observe a half-applied refresh, and keeps the last good snapshot when a fetch fails.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/pharmacy-notifier/interfaces"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// failure wraps an error so atomic.Value always stores the same concrete type
type failure struct {
	err error
}

// DataContainer holds the latest snapshot with atomic pointers for zero-downtime updates
type DataContainer struct {
	medicines     atomic.Value // []entities.Medicine
	medicinesMap  atomic.Value // map[string]entities.Medicine
	report        atomic.Value // *interfaces.DataQualityReport
	lastUpdated   atomic.Value // time.Time
	lastAttempt   atomic.Value // time.Time
	lastError     atomic.Value // failure
	updating      atomic.Bool
	snapshotCount atomic.Uint64
}

// NewDataContainer creates a new DataContainer with empty data
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.medicines.Store(make([]entities.Medicine, 0))
	dc.medicinesMap.Store(make(map[string]entities.Medicine))
	dc.report.Store(&interfaces.DataQualityReport{})
	dc.lastUpdated.Store(time.Time{})
	dc.lastAttempt.Store(time.Time{})
	dc.lastError.Store(failure{})
	return dc
}

// Thread-safe getters with type check

// GetMedicines returns the medicines of the latest snapshot
func (dc *DataContainer) GetMedicines() []entities.Medicine {
	if v := dc.medicines.Load(); v != nil {
		if medicines, ok := v.([]entities.Medicine); ok {
			return medicines
		}
	}

	logging.Warn("Medicines list is empty or invalid")
	return []entities.Medicine{}
}

// GetMedicinesMap returns the medicines indexed by identifier
func (dc *DataContainer) GetMedicinesMap() map[string]entities.Medicine {
	if v := dc.medicinesMap.Load(); v != nil {
		if medicinesMap, ok := v.(map[string]entities.Medicine); ok {
			return medicinesMap
		}
	}

	logging.Warn("MedicinesMap is empty or invalid")
	return make(map[string]entities.Medicine)
}

// GetDataQualityReport returns the report computed for the latest snapshot
func (dc *DataContainer) GetDataQualityReport() *interfaces.DataQualityReport {
	if v := dc.report.Load(); v != nil {
		if report, ok := v.(*interfaces.DataQualityReport); ok && report != nil {
			return report
		}
	}
	return &interfaces.DataQualityReport{}
}

// GetLastUpdated returns the time of the last successful snapshot
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// GetLastAttempt returns the time of the last fetch attempt, successful or not
func (dc *DataContainer) GetLastAttempt() time.Time {
	if v := dc.lastAttempt.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// GetLastError returns the error of the last attempt, nil after a success
func (dc *DataContainer) GetLastError() error {
	if v := dc.lastError.Load(); v != nil {
		if f, ok := v.(failure); ok {
			return f.err
		}
	}
	return nil
}

// SnapshotCount returns how many snapshots have been applied
func (dc *DataContainer) SnapshotCount() uint64 {
	return dc.snapshotCount.Load()
}

// IsUpdating returns true if a fetch is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// UpdateData atomically replaces the snapshot
func (dc *DataContainer) UpdateData(medicines []entities.Medicine, report *interfaces.DataQualityReport) {
	medicinesMap := make(map[string]entities.Medicine, len(medicines))
	for i := range medicines {
		if medicines[i].ID == "" {
			continue
		}
		// First occurrence wins on duplicate identifiers
		if _, exists := medicinesMap[medicines[i].ID]; !exists {
			medicinesMap[medicines[i].ID] = medicines[i]
		}
	}
	if report == nil {
		report = &interfaces.DataQualityReport{}
	}

	now := time.Now()

	// Atomic swap (zero downtime replacement)
	dc.medicines.Store(medicines)
	dc.medicinesMap.Store(medicinesMap)
	dc.report.Store(report)
	dc.lastUpdated.Store(now)
	dc.lastAttempt.Store(now)
	dc.lastError.Store(failure{})
	dc.snapshotCount.Add(1)
}

// RecordFailure notes a failed fetch. The previous snapshot stays in place.
func (dc *DataContainer) RecordFailure(err error) {
	dc.lastAttempt.Store(time.Now())
	dc.lastError.Store(failure{err: err})
}

// BeginUpdate marks the start of a fetch
// Returns true if the fetch can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a fetch
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}

// Reset drops the snapshot, used when the identity changes so nothing computed
// for the previous user is shown to the next one.
func (dc *DataContainer) Reset() {
	dc.medicines.Store(make([]entities.Medicine, 0))
	dc.medicinesMap.Store(make(map[string]entities.Medicine))
	dc.report.Store(&interfaces.DataQualityReport{})
	dc.lastUpdated.Store(time.Time{})
	dc.lastError.Store(failure{})
}
