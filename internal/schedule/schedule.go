package schedule

import (
	"errors"
	"fmt"
	"time"

	"portfolio-backend/internal/models"
)

var (
	ErrInvalidDate     = errors.New("invalid date format")
	ErrInvalidTime     = errors.New("invalid time format")
	ErrInvalidSchedule = errors.New("weekly schedule must have 7 entries")
)

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse("15:04", timeStr); err != nil {
		return time.Time{}, ErrInvalidTime
	}
	if _, err := ParseDate(dateStr, loc); err != nil {
		return time.Time{}, err
	}

	parsed, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return parsed, nil
}

func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse("15:04", timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

func MinutesToClock(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// DayBounds returns the start of the given date and the start of the next
// day in loc. Appointments belong to the calendar day [start, end).
func DayBounds(dateStr string, loc *time.Location) (time.Time, time.Time, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return date, date.AddDate(0, 0, 1), nil
}

func isBlackout(dateStr string, settings models.AvailabilitySettings) bool {
	for _, d := range settings.BlackoutDates {
		if d == dateStr {
			return true
		}
	}
	return false
}

// IsBookable reports whether a calendar date accepts bookings at all under
// the policy. All rules must hold: the date is not past, at least one
// instant of the date satisfies the minimum lead time, the date does not
// exceed the advance-booking horizon, the date is not blacked out and the
// weekday is marked available. Callers supply now explicitly.
func IsBookable(dateStr string, settings models.AvailabilitySettings, now time.Time) (bool, error) {
	if len(settings.WeeklySchedule) != 7 {
		return false, ErrInvalidSchedule
	}

	loc, err := settings.Location()
	if err != nil {
		return false, err
	}

	dayStart, dayEnd, err := DayBounds(dateStr, loc)
	if err != nil {
		return false, err
	}

	now = now.In(loc)
	if !dayEnd.After(now) {
		return false, nil
	}
	if !dayEnd.After(now.Add(time.Duration(settings.MinLeadTime) * time.Hour)) {
		return false, nil
	}
	if dayStart.After(now.AddDate(0, 0, settings.MaxAdvanceBooking)) {
		return false, nil
	}
	if isBlackout(dateStr, settings) {
		return false, nil
	}

	day := settings.WeeklySchedule[int(dayStart.Weekday())]
	if !day.Available {
		return false, nil
	}
	return true, nil
}

// GenerateSlots returns the candidate slot start times ("15:04") for a date.
// For each window of the weekday a cursor walks from the window start in
// steps of slotDuration+buffer minutes, emitting the cursor while the slot
// still fits inside the window. Windows are processed in policy order and
// the result is not re-sorted across windows; overlapping or out-of-order
// windows are a policy-authoring error, not corrected here. Returns an
// empty slice when IsBookable fails.
func GenerateSlots(dateStr string, settings models.AvailabilitySettings, now time.Time) ([]string, error) {
	bookable, err := IsBookable(dateStr, settings, now)
	if err != nil {
		return nil, err
	}
	if !bookable {
		return []string{}, nil
	}

	loc, err := settings.Location()
	if err != nil {
		return nil, err
	}
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return nil, err
	}

	day := settings.WeeklySchedule[int(date.Weekday())]
	step := settings.SlotDuration + settings.BufferBetweenSlots

	slots := make([]string, 0)
	for _, win := range day.Windows {
		startMin, err := ParseClockToMinutes(win.Start)
		if err != nil {
			return nil, err
		}
		endMin, err := ParseClockToMinutes(win.End)
		if err != nil {
			return nil, err
		}

		for cursor := startMin; cursor+settings.SlotDuration <= endMin; cursor += step {
			slots = append(slots, MinutesToClock(cursor))
		}
	}

	return slots, nil
}

// Contains reports whether timeStr is one of the generated slot starts.
// Admission re-derives slots server-side instead of trusting the client's
// view of availability.
func Contains(slots []string, timeStr string) bool {
	for _, s := range slots {
		if s == timeStr {
			return true
		}
	}
	return false
}

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the half-open ranges [a.Start,a.End) and
// [b.Start,b.End) intersect.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
