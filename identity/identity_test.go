package identity

import "testing"

func TestComplete(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want bool
	}{
		{"complete", Identity{Role: "admin", UserID: "1"}, true},
		{"missing role", Identity{UserID: "1"}, false},
		{"missing user", Identity{Role: "pharmacist"}, false},
		{"zero value", Identity{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameIgnoresUsername(t *testing.T) {
	a := Identity{Role: "admin", UserID: "1", Username: "alice"}
	b := Identity{Role: "admin", UserID: "1", Username: "renamed"}
	c := Identity{Role: "cashier", UserID: "1"}

	if !a.Same(b) {
		t.Error("Identities differing only by username must be the same")
	}
	if a.Same(c) {
		t.Error("Identities with different roles must differ")
	}
}
