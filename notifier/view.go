package notifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/giygas/pharmacy-notifier/classifier"
)

// View is a consuming page with its own expiring-soon horizon
type View string

const (
	// ViewNotifications is the notifications page, sharing the badge horizon
	ViewNotifications View = "notifications"
	// ViewAlerts is the alerts page
	ViewAlerts View = "alerts"
	// ViewReport is the expiry report
	ViewReport View = "report"
)

// Views lists every supported view
var Views = []View{ViewNotifications, ViewAlerts, ViewReport}

var (
	ErrUnknownView = errors.New("unknown view")
	ErrNoIdentity  = errors.New("no identity")
	ErrUnknownItem = errors.New("unknown medicine")
)

// ParseView maps a query value to a View. Empty selects ViewNotifications.
func ParseView(s string) (View, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ViewNotifications, nil
	}
	for _, v := range Views {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Horizons are the per-view expiring-soon horizons. They are deliberately
// independent: the badge and alerts pages do not agree on one value.
type Horizons struct {
	Badge  classifier.Horizon
	Alerts classifier.Horizon
	Report classifier.Horizon
}

// DefaultHorizons returns 3 months for the badge, 6 for alerts and 30 days for reports
func DefaultHorizons() Horizons {
	return Horizons{
		Badge:  classifier.Months(3),
		Alerts: classifier.Months(6),
		Report: classifier.Days(30),
	}
}

func (h Horizons) forView(v View) classifier.Horizon {
	switch v {
	case ViewAlerts:
		return h.Alerts
	case ViewReport:
		return h.Report
	default:
		return h.Badge
	}
}
