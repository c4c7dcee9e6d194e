package classifier

import (
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/giygas/pharmacy-notifier/clock"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, clock.Zone)

func med(id string, quantity int, expire time.Time) entities.Medicine {
	return entities.Medicine{ID: id, Name: "med-" + id, Quantity: &quantity, ExpireDate: &expire}
}

func TestClassifyScenario(t *testing.T) {
	medicines := []entities.Medicine{
		med("1", 5, now.AddDate(0, 0, -1)),
		med("2", 20, now.AddDate(0, 0, 10)),
	}

	got := Classify(medicines, now, Days(90))

	if !reflect.DeepEqual(got.Expired, []string{"1"}) {
		t.Errorf("Expected expired [1], got %v", got.Expired)
	}
	if !reflect.DeepEqual(got.LowStock, []string{"1"}) {
		t.Errorf("Expected lowStock [1], got %v", got.LowStock)
	}
	if !reflect.DeepEqual(got.ExpiringSoon, []string{"2"}) {
		t.Errorf("Expected expiringSoon [2], got %v", got.ExpiringSoon)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	h := Months(3)
	end := h.From(now)

	tests := []struct {
		name         string
		medicine     entities.Medicine
		expired      bool
		expiringSoon bool
		lowStock     bool
	}{
		{"expires exactly now", med("a", 50, now), false, true, false},
		{"one second before now", med("b", 50, now.Add(-time.Second)), true, false, false},
		{"expires at horizon end", med("c", 50, end), false, true, false},
		{"one second past horizon", med("d", 50, end.Add(time.Second)), false, false, false},
		{"quantity zero", med("e", 0, now.AddDate(1, 0, 0)), false, false, true},
		{"quantity nine", med("f", 9, now.AddDate(1, 0, 0)), false, false, true},
		{"quantity ten", med("g", 10, now.AddDate(1, 0, 0)), false, false, false},
		{"negative quantity", med("h", -1, now.AddDate(1, 0, 0)), false, false, false},
		{"expired and low stock", med("i", 3, now.AddDate(-1, 0, 0)), true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify([]entities.Medicine{tt.medicine}, now, h)

			if (len(got.Expired) == 1) != tt.expired {
				t.Errorf("Expected expired=%v, got %v", tt.expired, got.Expired)
			}
			if (len(got.ExpiringSoon) == 1) != tt.expiringSoon {
				t.Errorf("Expected expiringSoon=%v, got %v", tt.expiringSoon, got.ExpiringSoon)
			}
			if (len(got.LowStock) == 1) != tt.lowStock {
				t.Errorf("Expected lowStock=%v, got %v", tt.lowStock, got.LowStock)
			}
		})
	}
}

func TestClassifySkipsMalformed(t *testing.T) {
	qty := 1
	expire := now.AddDate(0, 0, -3)
	medicines := []entities.Medicine{
		{ID: "no-date", Quantity: &qty},
		{ID: "no-quantity", ExpireDate: &expire},
		{ID: "", Quantity: &qty, ExpireDate: &expire},
		med("ok", 1, expire),
	}

	got := Classify(medicines, now, Months(3))

	if !reflect.DeepEqual(got.All(), []string{"ok"}) {
		t.Errorf("Expected only the well-formed record, got %v", got.All())
	}
}

func TestClassifyUnparseableDateFromJSON(t *testing.T) {
	var m entities.Medicine
	if err := m.UnmarshalJSON([]byte(`{"id": 6, "medicine_name": "Broken", "quantity": 2, "expire_date": ""}`)); err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}

	got := Classify([]entities.Medicine{m}, now, Months(3))

	if !got.Empty() {
		t.Errorf("Expected no classification, got %+v", got)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	medicines := []entities.Medicine{
		med("1", 5, now.AddDate(0, 0, -1)),
		med("2", 20, now.AddDate(0, 1, 0)),
		med("3", 2, now.AddDate(2, 0, 0)),
	}

	first := Classify(medicines, now, Months(6))
	second := Classify(medicines, now, Months(6))

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results, got %+v and %+v", first, second)
	}
}

func TestExpiredAndExpiringSoonAreDisjoint(t *testing.T) {
	var medicines []entities.Medicine
	for d := -400; d <= 400; d += 7 {
		medicines = append(medicines, med(strconv.Itoa(d), d%15, now.AddDate(0, 0, d)))
	}

	got := Classify(medicines, now, Months(6))

	expired := make(map[string]bool)
	for _, id := range got.Expired {
		expired[id] = true
	}
	for _, id := range got.ExpiringSoon {
		if expired[id] {
			t.Errorf("Medicine %s is both expired and expiring soon", id)
		}
	}
}

func TestHorizonsDiffer(t *testing.T) {
	m := []entities.Medicine{med("1", 50, now.AddDate(0, 4, 0))}

	if got := Classify(m, now, Months(3)); len(got.ExpiringSoon) != 0 {
		t.Errorf("Expected 3 month horizon to exclude, got %v", got.ExpiringSoon)
	}
	if got := Classify(m, now, Months(6)); len(got.ExpiringSoon) != 1 {
		t.Errorf("Expected 6 month horizon to include, got %v", got.ExpiringSoon)
	}
	if got := Classify(m, now, Days(30)); len(got.ExpiringSoon) != 0 {
		t.Errorf("Expected 30 day horizon to exclude, got %v", got.ExpiringSoon)
	}
}

func TestClassifyOne(t *testing.T) {
	tests := []struct {
		name     string
		medicine entities.Medicine
		want     []Classification
	}{
		{"normal", med("1", 50, now.AddDate(1, 0, 0)), []Classification{Normal}},
		{"expired low stock", med("2", 1, now.AddDate(0, 0, -1)), []Classification{Expired, LowStock}},
		{"expiring soon", med("3", 50, now.AddDate(0, 0, 5)), []Classification{ExpiringSoon}},
		{"malformed", entities.Medicine{ID: "4"}, []Classification{Normal}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyOne(tt.medicine, now, Months(3))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResultAll(t *testing.T) {
	r := Result{Expired: []string{"1"}, LowStock: []string{"1", "2"}, ExpiringSoon: []string{"3"}}

	want := []string{"1", "2", "3"}
	if got := r.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestHorizonFrom(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, clock.Zone)

	if got := Months(3).From(start); !got.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, clock.Zone)) {
		t.Errorf("Expected May 1, got %v", got)
	}
	if got := Days(30).From(start); !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, clock.Zone)) {
		t.Errorf("Expected Mar 1, got %v", got)
	}
	if got := (Horizon{Months: 1, Days: 2}).String(); got != "1m2d" {
		t.Errorf("Expected 1m2d, got %s", got)
	}
}
