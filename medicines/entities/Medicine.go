package entities

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/pharmacy-notifier/clock"
)

// Defaults used when the backend omits a nested record
const (
	DefaultCategoryName   = "Uncategorized"
	DefaultSupplierName   = "Unknown supplier"
	DefaultDosageFormName = "Unspecified"
)

// Ref is a nested {id, name} record (category, supplier, dosage form)
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Medicine is one record of the inventory snapshot. Quantity and ExpireDate are
// nil when the backend sent a missing or unparseable value.
type Medicine struct {
	ID          string     `json:"id"`
	Name        string     `json:"medicine_name"`
	Quantity    *int       `json:"quantity"`
	ExpireDate  *time.Time `json:"expire_date"`
	Price       *float64   `json:"price,omitempty"`
	BatchNumber string     `json:"batch_number,omitempty"`
	Category    *Ref       `json:"category,omitempty"`
	Supplier    *Ref       `json:"supplier,omitempty"`
	DosageForm  *Ref       `json:"dosage_form,omitempty"`
}

// Valid reports whether both classification inputs were parsed
func (m Medicine) Valid() bool {
	return m.Quantity != nil && m.ExpireDate != nil
}

// CategoryName returns the category name or DefaultCategoryName
func (m Medicine) CategoryName() string {
	return refName(m.Category, DefaultCategoryName)
}

// SupplierName returns the supplier name or DefaultSupplierName
func (m Medicine) SupplierName() string {
	return refName(m.Supplier, DefaultSupplierName)
}

// DosageFormName returns the dosage form name or DefaultDosageFormName
func (m Medicine) DosageFormName() string {
	return refName(m.DosageForm, DefaultDosageFormName)
}

func refName(r *Ref, fallback string) string {
	if r == nil || strings.TrimSpace(r.Name) == "" {
		return fallback
	}
	return r.Name
}

// dateLayouts are tried in order. Layouts without an offset are read in clock.Zone.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseExpireDate parses the backend's expire_date representations
func ParseExpireDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, clock.Zone); err == nil {
			return t.In(clock.Zone), true
		}
	}
	return time.Time{}, false
}

type rawMedicine struct {
	ID           json.RawMessage `json:"id"`
	MedicineName json.RawMessage `json:"medicine_name"`
	Name         json.RawMessage `json:"name"`
	Quantity     json.RawMessage `json:"quantity"`
	ExpireDate   json.RawMessage `json:"expire_date"`
	Price        json.RawMessage `json:"price"`
	BatchNumber  json.RawMessage `json:"batch_number"`
	Category     json.RawMessage `json:"category"`
	Supplier     json.RawMessage `json:"supplier"`
	DosageForm   json.RawMessage `json:"dosage_form"`
}

// UnmarshalJSON decodes a backend record leniently. Bad field values never fail
// the whole record; they are left nil so the classifier can skip the medicine.
// An element that is not an object decodes to a Medicine without ID, which the
// validator reports and the classifier skips.
func (m *Medicine) UnmarshalJSON(b []byte) error {
	var raw rawMedicine
	if err := json.Unmarshal(b, &raw); err != nil {
		*m = Medicine{}
		return nil
	}

	*m = Medicine{
		ID:         DecodeIdentifier(raw.ID),
		Quantity:   decodeQuantity(raw.Quantity),
		ExpireDate: decodeDate(raw.ExpireDate),
		Price:      decodeFloat(raw.Price),
		Category:   decodeRef(raw.Category),
		Supplier:   decodeRef(raw.Supplier),
		DosageForm: decodeRef(raw.DosageForm),
	}

	if isNull(raw.MedicineName) {
		m.Name = decodeText(raw.Name)
	} else {
		m.Name = decodeText(raw.MedicineName)
	}
	m.BatchNumber = decodeText(raw.BatchNumber)

	return nil
}

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

// DecodeIdentifier accepts numbers and strings, both end up as their string form
func DecodeIdentifier(b json.RawMessage) string {
	if isNull(b) {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeText keeps strings as sent and numbers as their literal; anything else
// is dropped.
func decodeText(b json.RawMessage) string {
	if isNull(b) {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return n.String()
	}
	return ""
}

func decodeQuantity(b json.RawMessage) *int {
	if isNull(b) {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		n = json.Number(strings.TrimSpace(s))
	}

	if i, err := strconv.Atoi(n.String()); err == nil {
		return &i
	}
	// Integral floats such as 12.0 are accepted, fractional quantities are not
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
		i := int(f)
		return &i
	}
	return nil
}

func decodeDate(b json.RawMessage) *time.Time {
	if isNull(b) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	t, ok := ParseExpireDate(s)
	if !ok {
		return nil
	}
	return &t
}

func decodeFloat(b json.RawMessage) *float64 {
	if isNull(b) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		n = json.Number(strings.TrimSpace(s))
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}

func decodeRef(b json.RawMessage) *Ref {
	if isNull(b) {
		return nil
	}
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Name *string         `json:"name"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	ref := &Ref{ID: DecodeIdentifier(raw.ID)}
	if raw.Name != nil {
		ref.Name = *raw.Name
	}
	return ref
}
