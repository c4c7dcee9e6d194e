package clock

import (
	"testing"
	"time"
)

func TestSystemClockUsesFixedOffset(t *testing.T) {
	now := System().Now()

	_, offset := now.Zone()
	if offset != 3*60*60 {
		t.Errorf("Expected offset of 3h, got %ds", offset)
	}
}

func TestFixedClock(t *testing.T) {
	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	c := Fixed(base)

	if !c.Now().Equal(base) {
		t.Errorf("Expected %v, got %v", base, c.Now())
	}

	if c.Now().Location() != Zone {
		t.Errorf("Expected fixed clock to report in %v, got %v", Zone, c.Now().Location())
	}

	c.Advance(24 * time.Hour)
	if !c.Now().Equal(base.Add(24 * time.Hour)) {
		t.Errorf("Advance did not move the clock: %v", c.Now())
	}

	later := base.AddDate(0, 1, 0)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Set did not move the clock: %v", c.Now())
	}
}

func TestFixedClockIsDeterministic(t *testing.T) {
	c := Fixed(time.Date(2025, 6, 1, 0, 0, 0, 0, Zone))

	first := c.Now()
	for i := 0; i < 10; i++ {
		if !c.Now().Equal(first) {
			t.Fatalf("FixedClock returned different instants: %v and %v", first, c.Now())
		}
	}
}
