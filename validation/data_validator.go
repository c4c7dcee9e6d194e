// Package validation provides snapshot validation for the notification service.
// Malformed records are never fatal: they are reported and skipped by the classifier.
package validation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/giygas/pharmacy-notifier/interfaces"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

var (
	// ErrMissingID means the record has no identifier and cannot be dismissed
	ErrMissingID = errors.New("medicine has no identifier")
	// ErrMissingQuantity means quantity was absent or unparseable
	ErrMissingQuantity = errors.New("medicine quantity is missing or malformed")
	// ErrMissingExpireDate means expire_date was absent or unparseable
	ErrMissingExpireDate = errors.New("medicine expire date is missing or malformed")
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateMedicine checks if a medicine can take part in classification
func (v *DataValidatorImpl) ValidateMedicine(m *entities.Medicine) error {
	if m == nil {
		return fmt.Errorf("medicine is nil")
	}

	if m.ID == "" {
		return ErrMissingID
	}

	if m.Quantity == nil {
		return fmt.Errorf("%w: id %s", ErrMissingQuantity, m.ID)
	}

	if m.ExpireDate == nil {
		return fmt.Errorf("%w: id %s", ErrMissingExpireDate, m.ID)
	}

	return nil
}

// ReportDataQuality generates a data quality report for a snapshot
func (v *DataValidatorImpl) ReportDataQuality(medicines []entities.Medicine) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		TotalRecords:        len(medicines),
		MalformedIDs:        []string{},
		DuplicateIDs:        []string{},
		NegativeQuantityIDs: []string{},
	}

	seen := make(map[string]int, len(medicines))

	for i := range medicines {
		m := &medicines[i]

		if m.ID == "" {
			report.MissingIDCount++
		} else {
			seen[m.ID]++
		}

		if err := v.ValidateMedicine(m); err != nil {
			report.MalformedCount++
			if m.ID != "" {
				report.MalformedIDs = append(report.MalformedIDs, m.ID)
			}
			continue
		}

		report.ValidRecords++

		if *m.Quantity < 0 {
			report.NegativeQuantityIDs = append(report.NegativeQuantityIDs, m.ID)
		}
	}

	for id, count := range seen {
		if count > 1 {
			report.DuplicateIDs = append(report.DuplicateIDs, id)
		}
	}
	sort.Strings(report.DuplicateIDs)

	return report
}

// LogReport writes the notable parts of a report at warn level
func LogReport(report *interfaces.DataQualityReport) {
	if report == nil {
		return
	}

	if report.MalformedCount > 0 {
		logging.Warn("Malformed medicines excluded from notifications",
			"count", report.MalformedCount,
			"id_list", report.MalformedIDs,
		)
	}

	if report.MissingIDCount > 0 {
		logging.Warn("Medicines without identifier", "count", report.MissingIDCount)
	}

	if len(report.DuplicateIDs) > 0 {
		logging.Warn("Duplicate medicine identifiers detected",
			"total", len(report.DuplicateIDs),
			"id_list", report.DuplicateIDs,
		)
	}

	if len(report.NegativeQuantityIDs) > 0 {
		logging.Warn("Medicines with negative quantity",
			"count", len(report.NegativeQuantityIDs),
			"id_list", report.NegativeQuantityIDs,
		)
	}
}
