package usecase

import "time"

// BusinessHoursConfig describes the sending window
type BusinessHoursConfig struct {
	StartHour int
	EndHour   int
	Timezone  string
	WorkDays  []time.Weekday
	Holidays  []string // yyyy-mm-dd
}

// DefaultBusinessHoursConfig is Mon-Fri 9-17 UTC
func DefaultBusinessHoursConfig() BusinessHoursConfig {
	return BusinessHoursConfig{
		StartHour: 9,
		EndHour:   17,
		Timezone:  "UTC",
		WorkDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
	}
}

// BusinessHours answers whether a time falls inside the sending window and
// snaps computed follow-up times forward into it
type BusinessHours struct {
	startHour int
	endHour   int
	timezone  *time.Location
	workDays  map[time.Weekday]bool
	holidays  map[string]bool
}

// NewBusinessHours creates a business hours calendar from config
func NewBusinessHours(cfg BusinessHoursConfig) *BusinessHours {
	bh := &BusinessHours{
		startHour: cfg.StartHour,
		endHour:   cfg.EndHour,
		workDays:  make(map[time.Weekday]bool),
		holidays:  make(map[string]bool),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	bh.timezone = loc

	for _, day := range cfg.WorkDays {
		bh.workDays[day] = true
	}
	for _, holiday := range cfg.Holidays {
		bh.holidays[holiday] = true
	}

	return bh
}

// IsWorkingDay reports whether the date is a work day and not a holiday
func (bh *BusinessHours) IsWorkingDay(t time.Time) bool {
	localTime := t.In(bh.timezone)
	if bh.holidays[localTime.Format("2006-01-02")] {
		return false
	}
	return bh.workDays[localTime.Weekday()]
}

// IsBusinessHours reports whether t falls inside the sending window
func (bh *BusinessHours) IsBusinessHours(t time.Time) bool {
	if !bh.IsWorkingDay(t) {
		return false
	}
	hour := t.In(bh.timezone).Hour()
	return hour >= bh.startHour && hour < bh.endHour
}

// SnapForward moves t to the nearest business-hours instant at or after it:
// non-working days advance to the next working day's opening hour, times
// before opening clamp to opening the same day, times at or past closing
// roll to opening on the next working day.
func (bh *BusinessHours) SnapForward(t time.Time) time.Time {
	localTime := t.In(bh.timezone)

	for !bh.IsWorkingDay(localTime) {
		localTime = bh.atOpen(localTime.AddDate(0, 0, 1))
	}

	switch {
	case localTime.Hour() < bh.startHour:
		localTime = bh.atOpen(localTime)
	case localTime.Hour() >= bh.endHour:
		localTime = bh.atOpen(localTime.AddDate(0, 0, 1))
		for !bh.IsWorkingDay(localTime) {
			localTime = bh.atOpen(localTime.AddDate(0, 0, 1))
		}
	}

	return localTime
}

func (bh *BusinessHours) atOpen(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), bh.startHour, 0, 0, 0, bh.timezone)
}
