package data

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/giygas/pharmacy-notifier/interfaces"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

func intPtr(i int) *int { return &i }

func TestNewDataContainer(t *testing.T) {
	logging.InitLogger("")

	dc := NewDataContainer()

	if dc == nil {
		t.Fatal("NewDataContainer returned nil")
	}

	if dc.IsUpdating() {
		t.Error("NewDataContainer should not be updating")
	}

	if !dc.GetLastUpdated().IsZero() {
		t.Error("NewDataContainer should have zero lastUpdated time")
	}

	if len(dc.GetMedicines()) != 0 {
		t.Error("NewDataContainer should have empty medicines")
	}

	if len(dc.GetMedicinesMap()) != 0 {
		t.Error("NewDataContainer should have empty medicines map")
	}

	if dc.GetLastError() != nil {
		t.Error("NewDataContainer should not carry an error")
	}
}

func TestUpdateData(t *testing.T) {
	logging.InitLogger("")

	dc := NewDataContainer()

	medicines := []entities.Medicine{
		{ID: "1", Name: "Test1", Quantity: intPtr(1)},
		{ID: "2", Name: "Test2", Quantity: intPtr(2)},
		{ID: "2", Name: "Duplicate", Quantity: intPtr(3)},
		{ID: "", Name: "No id"},
	}
	report := &interfaces.DataQualityReport{TotalRecords: 4, DuplicateIDs: []string{"2"}}

	dc.UpdateData(medicines, report)

	if len(dc.GetMedicines()) != 4 {
		t.Errorf("Expected 4 medicines, got %d", len(dc.GetMedicines()))
	}

	m := dc.GetMedicinesMap()
	if len(m) != 2 {
		t.Errorf("Expected 2 medicines in map, got %d", len(m))
	}
	if m["2"].Name != "Test2" {
		t.Errorf("Expected first occurrence to win, got %q", m["2"].Name)
	}

	if dc.GetLastUpdated().IsZero() {
		t.Error("lastUpdated should be set after UpdateData")
	}

	if dc.GetDataQualityReport().TotalRecords != 4 {
		t.Error("Report should be stored with the snapshot")
	}

	if dc.SnapshotCount() != 1 {
		t.Errorf("Expected snapshot count 1, got %d", dc.SnapshotCount())
	}
}

func TestRecordFailureKeepsPreviousSnapshot(t *testing.T) {
	logging.InitLogger("")

	dc := NewDataContainer()
	dc.UpdateData([]entities.Medicine{{ID: "1"}}, nil)
	updated := dc.GetLastUpdated()

	time.Sleep(time.Millisecond)
	fetchErr := errors.New("backend down")
	dc.RecordFailure(fetchErr)

	if len(dc.GetMedicines()) != 1 {
		t.Error("A failed fetch must not drop the previous snapshot")
	}
	if !errors.Is(dc.GetLastError(), fetchErr) {
		t.Errorf("Expected last error to be recorded, got %v", dc.GetLastError())
	}
	if !dc.GetLastUpdated().Equal(updated) {
		t.Error("lastUpdated must only move on success")
	}
	if !dc.GetLastAttempt().After(updated) {
		t.Error("lastAttempt should move on failure")
	}

	dc.UpdateData([]entities.Medicine{{ID: "1"}, {ID: "2"}}, nil)
	if dc.GetLastError() != nil {
		t.Error("A successful update should clear the last error")
	}
}

func TestBeginEndUpdate(t *testing.T) {
	dc := NewDataContainer()

	if !dc.BeginUpdate() {
		t.Fatal("First BeginUpdate should succeed")
	}
	if dc.BeginUpdate() {
		t.Error("Second BeginUpdate should fail while updating")
	}
	if !dc.IsUpdating() {
		t.Error("IsUpdating should be true")
	}

	dc.EndUpdate()

	if dc.IsUpdating() {
		t.Error("IsUpdating should be false after EndUpdate")
	}
	if !dc.BeginUpdate() {
		t.Error("BeginUpdate should succeed again after EndUpdate")
	}
}

func TestReset(t *testing.T) {
	dc := NewDataContainer()
	dc.UpdateData([]entities.Medicine{{ID: "1"}}, nil)

	dc.Reset()

	if len(dc.GetMedicines()) != 0 || len(dc.GetMedicinesMap()) != 0 {
		t.Error("Reset should drop the snapshot")
	}
	if !dc.GetLastUpdated().IsZero() {
		t.Error("Reset should clear lastUpdated")
	}
}

func TestConcurrentAccess(t *testing.T) {
	logging.InitLogger("")

	dc := NewDataContainer()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			dc.UpdateData([]entities.Medicine{{ID: "a", Quantity: intPtr(n)}}, nil)
		}(i)
		go func() {
			defer wg.Done()
			_ = dc.GetMedicines()
			_ = dc.GetMedicinesMap()
			_ = dc.GetLastUpdated()
		}()
	}

	wg.Wait()

	if dc.SnapshotCount() != 10 {
		t.Errorf("Expected 10 snapshots, got %d", dc.SnapshotCount())
	}
}
