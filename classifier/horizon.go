package classifier

import (
	"fmt"
	"time"
)

// Horizon is how far ahead of now a medicine counts as expiring soon. Months
// and days are calendar based, so a 3 month horizon from Jan 31 ends on May 1.
type Horizon struct {
	Months int
	Days   int
}

// Months returns a horizon of n calendar months
func Months(n int) Horizon {
	return Horizon{Months: n}
}

// Days returns a horizon of n days
func Days(n int) Horizon {
	return Horizon{Days: n}
}

// From returns the inclusive end of the horizon starting at now
func (h Horizon) From(now time.Time) time.Time {
	return now.AddDate(0, h.Months, h.Days)
}

func (h Horizon) String() string {
	switch {
	case h.Months != 0 && h.Days != 0:
		return fmt.Sprintf("%dm%dd", h.Months, h.Days)
	case h.Months != 0:
		return fmt.Sprintf("%dm", h.Months)
	default:
		return fmt.Sprintf("%dd", h.Days)
	}
}
