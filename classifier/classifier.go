// Package classifier derives notification classes from a medicine snapshot.
// Classification is a pure function of the medicine, the current time and the
// horizon: nothing is cached between calls.
package classifier

import (
	"time"

	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

// LowStockThreshold is the exclusive upper bound for low stock quantities
const LowStockThreshold = 10

// Classification of a single medicine
type Classification string

const (
	Expired      Classification = "expired"
	ExpiringSoon Classification = "expiring_soon"
	LowStock     Classification = "low_stock"
	Normal       Classification = "normal"
)

// Result holds the identifiers of each class, in snapshot order
type Result struct {
	Expired      []string `json:"expired"`
	LowStock     []string `json:"low_stock"`
	ExpiringSoon []string `json:"expiring_soon"`
}

// All returns the union of the three classes without duplicates
func (r Result) All() []string {
	n := len(r.Expired) + len(r.LowStock) + len(r.ExpiringSoon)
	seen := make(map[string]struct{}, n)
	all := make([]string, 0, n)
	for _, group := range [][]string{r.Expired, r.LowStock, r.ExpiringSoon} {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			all = append(all, id)
		}
	}
	return all
}

// Empty reports whether no medicine was classified
func (r Result) Empty() bool {
	return len(r.Expired) == 0 && len(r.LowStock) == 0 && len(r.ExpiringSoon) == 0
}

// Classify splits medicines into expired, low stock and expiring soon sets.
// Expired and expiring soon never overlap; low stock is independent of both.
// Records without an identifier or with unparsed quantity or expire date are
// skipped.
func Classify(medicines []entities.Medicine, now time.Time, h Horizon) Result {
	res := Result{
		Expired:      []string{},
		LowStock:     []string{},
		ExpiringSoon: []string{},
	}
	end := h.From(now)

	for i := range medicines {
		m := &medicines[i]
		if m.ID == "" || !m.Valid() {
			continue
		}

		expire := *m.ExpireDate
		switch {
		case expire.Before(now):
			res.Expired = append(res.Expired, m.ID)
		case !expire.After(end):
			res.ExpiringSoon = append(res.ExpiringSoon, m.ID)
		}

		if isLowStock(*m.Quantity) {
			res.LowStock = append(res.LowStock, m.ID)
		}
	}

	return res
}

// ClassifyOne returns every class m belongs to, or [Normal]
func ClassifyOne(m entities.Medicine, now time.Time, h Horizon) []Classification {
	if !m.Valid() {
		return []Classification{Normal}
	}

	var classes []Classification
	expire := *m.ExpireDate
	switch {
	case expire.Before(now):
		classes = append(classes, Expired)
	case !expire.After(h.From(now)):
		classes = append(classes, ExpiringSoon)
	}
	if isLowStock(*m.Quantity) {
		classes = append(classes, LowStock)
	}

	if len(classes) == 0 {
		return []Classification{Normal}
	}
	return classes
}

func isLowStock(quantity int) bool {
	return quantity >= 0 && quantity < LowStockThreshold
}
