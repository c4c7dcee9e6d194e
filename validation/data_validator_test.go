package validation

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

func TestValidateMedicine(t *testing.T) {
	validator := NewDataValidator()
	exp := timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		m       *entities.Medicine
		wantErr error
	}{
		{"valid", &entities.Medicine{ID: "1", Quantity: intPtr(3), ExpireDate: exp}, nil},
		{"missing id", &entities.Medicine{Quantity: intPtr(3), ExpireDate: exp}, ErrMissingID},
		{"missing quantity", &entities.Medicine{ID: "1", ExpireDate: exp}, ErrMissingQuantity},
		{"missing expire date", &entities.Medicine{ID: "1", Quantity: intPtr(3)}, ErrMissingExpireDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateMedicine(tt.m)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if err := validator.ValidateMedicine(nil); err == nil {
		t.Error("Expected error for nil medicine")
	}
}

func TestReportDataQuality(t *testing.T) {
	validator := NewDataValidator()
	exp := timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	medicines := []entities.Medicine{
		{ID: "1", Quantity: intPtr(3), ExpireDate: exp},
		{ID: "2", Quantity: intPtr(-1), ExpireDate: exp},
		{ID: "3", ExpireDate: exp},
		{ID: "1", Quantity: intPtr(5), ExpireDate: exp},
		{Quantity: intPtr(5), ExpireDate: exp},
	}

	report := validator.ReportDataQuality(medicines)

	if report.TotalRecords != 5 {
		t.Errorf("Expected 5 records, got %d", report.TotalRecords)
	}
	if report.ValidRecords != 3 {
		t.Errorf("Expected 3 valid records, got %d", report.ValidRecords)
	}
	if report.MalformedCount != 2 {
		t.Errorf("Expected 2 malformed records, got %d", report.MalformedCount)
	}
	if !slices.Equal(report.MalformedIDs, []string{"3"}) {
		t.Errorf("Unexpected malformed ids %v", report.MalformedIDs)
	}
	if report.MissingIDCount != 1 {
		t.Errorf("Expected 1 record without id, got %d", report.MissingIDCount)
	}
	if !slices.Equal(report.DuplicateIDs, []string{"1"}) {
		t.Errorf("Unexpected duplicate ids %v", report.DuplicateIDs)
	}
	if !slices.Equal(report.NegativeQuantityIDs, []string{"2"}) {
		t.Errorf("Unexpected negative quantity ids %v", report.NegativeQuantityIDs)
	}

	// Must not panic
	LogReport(report)
	LogReport(nil)
}

func TestReportDataQualityEmpty(t *testing.T) {
	report := NewDataValidator().ReportDataQuality(nil)

	if report.TotalRecords != 0 || report.MalformedCount != 0 {
		t.Errorf("Unexpected report for empty snapshot: %+v", report)
	}
	if report.DuplicateIDs == nil || report.MalformedIDs == nil {
		t.Error("Report slices should be non-nil for stable JSON output")
	}
}
