package usecase

import (
	"testing"
	"time"
)

func defaultHours() *BusinessHours {
	return NewBusinessHours(DefaultBusinessHoursConfig())
}

func TestSnapForwardInsideWindowIsUnchanged(t *testing.T) {
	hours := defaultHours()
	// Thursday 10:00 UTC
	in := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	if got := hours.SnapForward(in); !got.Equal(in) {
		t.Errorf("in-window time moved: %v -> %v", in, got)
	}
}

func TestSnapForwardWeekendRollsToMondayOpen(t *testing.T) {
	hours := defaultHours()
	// Saturday 14:00 UTC
	in := time.Date(2025, 6, 7, 14, 0, 0, 0, time.UTC)
	want := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC) // Monday 09:00
	if got := hours.SnapForward(in); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSnapForwardBeforeOpenClampsToOpen(t *testing.T) {
	hours := defaultHours()
	// Tuesday 06:30 UTC
	in := time.Date(2025, 6, 3, 6, 30, 0, 0, time.UTC)
	want := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	if got := hours.SnapForward(in); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSnapForwardAfterCloseRollsToNextDay(t *testing.T) {
	hours := defaultHours()
	// Friday 18:00 UTC rolls over the weekend
	in := time.Date(2025, 6, 6, 18, 0, 0, 0, time.UTC)
	want := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC) // Monday 09:00
	if got := hours.SnapForward(in); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSnapForwardSkipsHolidays(t *testing.T) {
	cfg := DefaultBusinessHoursConfig()
	cfg.Holidays = []string{"2025-06-09"} // the Monday after
	hours := NewBusinessHours(cfg)

	in := time.Date(2025, 6, 7, 14, 0, 0, 0, time.UTC) // Saturday
	want := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	if got := hours.SnapForward(in); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestIsBusinessHours(t *testing.T) {
	hours := defaultHours()
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"weekday morning", time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC), true},
		{"weekday before open", time.Date(2025, 6, 5, 8, 59, 0, 0, time.UTC), false},
		{"weekday at close", time.Date(2025, 6, 5, 17, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := hours.IsBusinessHours(tc.t); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
