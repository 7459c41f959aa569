package recurrence

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAnnualAcrossYearBoundary(t *testing.T) {
	got := Annual(time.January, 1, date(2024, 12, 20), date(2025, 1, 10))
	if len(got) != 1 {
		t.Fatalf("got %d dates, want 1", len(got))
	}
	if !got[0].Equal(date(2025, 1, 1)) {
		t.Errorf("date = %v, want 2025-01-01", got[0])
	}
}

func TestAnnualMultipleYears(t *testing.T) {
	got := Annual(time.July, 4, date(2023, 1, 1), date(2025, 12, 31))
	want := []time.Time{date(2023, 7, 4), date(2024, 7, 4), date(2025, 7, 4)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAnnualLeapDay(t *testing.T) {
	tests := []struct {
		year int
		want time.Time
	}{
		{2024, date(2024, 2, 29)},
		{2023, date(2023, 2, 28)},
		{1900, date(1900, 2, 28)},
	}
	for _, tt := range tests {
		got := Annual(time.February, 29, date(tt.year, 2, 1), date(tt.year, 3, 31))
		if len(got) != 1 || !got[0].Equal(tt.want) {
			t.Errorf("Annual(Feb 29) in %d = %v, want %v", tt.year, got, tt.want)
		}
	}
}

func TestAnnualOutsideWindow(t *testing.T) {
	if got := Annual(time.March, 15, date(2024, 4, 1), date(2024, 12, 31)); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
	if got := Annual(time.March, 15, date(2024, 4, 1), date(2024, 3, 1)); got != nil {
		t.Errorf("inverted window = %v, want nil", got)
	}
}

func TestIsYearly(t *testing.T) {
	tests := []struct {
		rule string
		want bool
	}{
		{"FREQ=YEARLY", true},
		{"RRULE:FREQ=YEARLY;BYMONTH=7;BYMONTHDAY=4", true},
		{"FREQ=YEARLY;INTERVAL=2", false},
		{"FREQ=WEEKLY;BYDAY=MO", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := IsYearly(tt.rule); got != tt.want {
			t.Errorf("IsYearly(%q) = %v, want %v", tt.rule, got, tt.want)
		}
	}
}

func TestExpand(t *testing.T) {
	got, err := Expand("FREQ=MONTHLY;BYDAY=1MO", date(2024, 1, 1), date(2024, 1, 1), date(2024, 3, 31))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []time.Time{date(2024, 1, 1), date(2024, 2, 5), date(2024, 3, 4)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := Expand("FREQ=SOMETIMES", date(2024, 1, 1), date(2024, 1, 1), date(2024, 2, 1)); err == nil {
		t.Error("expected error for invalid rule")
	}
}
