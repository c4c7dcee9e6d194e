// Package interfaces defines core abstractions for the notification service
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"time"

	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

// DataQualityReport provides a summary of data quality issues found in a snapshot
type DataQualityReport struct {
	TotalRecords        int      `json:"total_records"`
	ValidRecords        int      `json:"valid_records"`
	MalformedCount      int      `json:"malformed_count"`
	MalformedIDs        []string `json:"malformed_ids"`
	MissingIDCount      int      `json:"missing_id_count"`
	DuplicateIDs        []string `json:"duplicate_ids"`
	NegativeQuantityIDs []string `json:"negative_quantity_ids"`
}

// SnapshotProvider fetches the full, current medicine list from the backend.
// Each call is treated as a complete snapshot.
type SnapshotProvider interface {
	FetchMedicines(ctx context.Context) ([]entities.Medicine, error)
}

// DataStore defines the contract for snapshot storage.
// It provides thread-safe access with atomic replacement so readers never see
// a partially applied snapshot.
type DataStore interface {
	// Data retrieval methods
	GetMedicines() []entities.Medicine
	GetMedicinesMap() map[string]entities.Medicine
	GetLastUpdated() time.Time
	GetLastError() error
	GetLastAttempt() time.Time
	GetDataQualityReport() *DataQualityReport
	IsUpdating() bool

	// Data update methods
	UpdateData(medicines []entities.Medicine, report *DataQualityReport)
	RecordFailure(err error)
	BeginUpdate() bool
	EndUpdate()
}

// DataValidator defines the contract for snapshot validation.
type DataValidator interface {
	// ValidateMedicine checks whether a record can be classified
	ValidateMedicine(m *entities.Medicine) error

	// ReportDataQuality generates a data quality report with all issues found
	ReportDataQuality(medicines []entities.Medicine) *DataQualityReport
}

// Scheduler defines the contract for the polling driver.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()

	// Activate marks a consuming view as active; the returned func releases it
	Activate() (release func())

	// Restart drops the running job and starts a fresh one, used on identity switches
	Restart()

	// RunNow runs the pipeline immediately, outside the interval
	RunNow(ctx context.Context) error

	// NextRun returns the next scheduled tick, zero when inactive
	NextRun() time.Time
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck() (status string, details map[string]any, httpStatus int)
}
