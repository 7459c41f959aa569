package tz

import (
	"testing"
	"time"
)

func TestIsValid(t *testing.T) {
	c := NewCatalog()

	tests := []struct {
		name string
		want bool
	}{
		{"America/New_York", true},
		{"Europe/Berlin", true},
		{"UTC", true},
		{"", false},
		{"Local", false},
		{"Mars/Olympus_Mons", false},
	}
	for _, tt := range tests {
		if got := c.IsValid(tt.name); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	// Second lookup hits the negative cache.
	if c.IsValid("Mars/Olympus_Mons") {
		t.Error("cached invalid zone should stay invalid")
	}
}

func TestResolveFallsBack(t *testing.T) {
	c := NewCatalog()

	loc := c.Resolve("Nowhere/Special", "Europe/Paris")
	if loc.String() != "Europe/Paris" {
		t.Errorf("Resolve = %q, want %q", loc.String(), "Europe/Paris")
	}
	if got := c.Resolve("bogus"); got != time.UTC {
		t.Errorf("Resolve(bogus) = %v, want UTC", got)
	}
}

func TestAbbreviation(t *testing.T) {
	c := NewCatalog()

	summer := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	winter := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if got := c.Abbreviation("America/New_York", summer); got != "EDT" {
		t.Errorf("summer abbreviation = %q, want EDT", got)
	}
	if got := c.Abbreviation("America/New_York", winter); got != "EST" {
		t.Errorf("winter abbreviation = %q, want EST", got)
	}
	if got := c.Abbreviation("bogus", summer); got != "" {
		t.Errorf("bogus abbreviation = %q, want empty", got)
	}
}
