package settings

import (
	"errors"
	"fmt"
	"time"

	"portfolio-backend/internal/models"
)

// Bounds for the policy fields. Updates outside these ranges are rejected
// before anything is written.
const (
	MinSlotDuration       = 15
	MaxSlotDuration       = 120
	MinBuffer             = 0
	MaxBuffer             = 60
	MinLeadTimeHours      = 0
	MaxLeadTimeHours      = 168
	MinAdvanceBookingDays = 1
	MaxAdvanceBookingDays = 365
	MinPerDay             = 1
	MaxPerDay             = 50
)

var ErrInvalidSettings = errors.New("invalid availability settings")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSettings, fmt.Sprintf(format, args...))
}

// Default returns the policy used when no settings document exists yet.
func Default(timezone string) models.AvailabilitySettings {
	week := make([]models.DaySchedule, 7)
	weekdayWindows := []models.Window{
		{Start: "09:00", End: "12:00"},
		{Start: "14:00", End: "17:00"},
	}
	for day := time.Monday; day <= time.Friday; day++ {
		week[int(day)] = models.DaySchedule{Available: true, Windows: weekdayWindows}
	}
	week[int(time.Saturday)] = models.DaySchedule{Available: false, Windows: []models.Window{}}
	week[int(time.Sunday)] = models.DaySchedule{Available: false, Windows: []models.Window{}}

	return models.AvailabilitySettings{
		WeeklySchedule:        week,
		BlackoutDates:         []string{},
		SlotDuration:          30,
		BufferBetweenSlots:    0,
		MinLeadTime:           24,
		MaxAdvanceBooking:     60,
		MaxAppointmentsPerDay: 8,
		Timezone:              timezone,
	}
}

// Validate checks the full policy invariant set: exactly 7 weekday entries,
// strict clock formats with start < end per window, strict blackout date
// format, numeric bounds and a loadable IANA timezone.
func Validate(s models.AvailabilitySettings) error {
	if len(s.WeeklySchedule) != 7 {
		return invalidf("weeklySchedule must have exactly 7 entries, got %d", len(s.WeeklySchedule))
	}
	for day, entry := range s.WeeklySchedule {
		for _, win := range entry.Windows {
			startMin, err := clockMinutes(win.Start)
			if err != nil {
				return invalidf("weekday %d window start %q is not HH:MM", day, win.Start)
			}
			endMin, err := clockMinutes(win.End)
			if err != nil {
				return invalidf("weekday %d window end %q is not HH:MM", day, win.End)
			}
			if startMin >= endMin {
				return invalidf("weekday %d window %s-%s: start must be before end", day, win.Start, win.End)
			}
		}
	}

	for _, d := range s.BlackoutDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return invalidf("blackout date %q is not YYYY-MM-DD", d)
		}
	}

	if s.SlotDuration < MinSlotDuration || s.SlotDuration > MaxSlotDuration {
		return invalidf("slotDuration must be in [%d,%d]", MinSlotDuration, MaxSlotDuration)
	}
	if s.BufferBetweenSlots < MinBuffer || s.BufferBetweenSlots > MaxBuffer {
		return invalidf("bufferBetweenSlots must be in [%d,%d]", MinBuffer, MaxBuffer)
	}
	if s.MinLeadTime < MinLeadTimeHours || s.MinLeadTime > MaxLeadTimeHours {
		return invalidf("minLeadTime must be in [%d,%d]", MinLeadTimeHours, MaxLeadTimeHours)
	}
	if s.MaxAdvanceBooking < MinAdvanceBookingDays || s.MaxAdvanceBooking > MaxAdvanceBookingDays {
		return invalidf("maxAdvanceBooking must be in [%d,%d]", MinAdvanceBookingDays, MaxAdvanceBookingDays)
	}
	if s.MaxAppointmentsPerDay < MinPerDay || s.MaxAppointmentsPerDay > MaxPerDay {
		return invalidf("maxAppointmentsPerDay must be in [%d,%d]", MinPerDay, MaxPerDay)
	}

	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return invalidf("timezone %q is not a valid IANA zone", s.Timezone)
	}
	return nil
}

func clockMinutes(v string) (int, error) {
	tm, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

// UpdateRequest carries a full or partial settings update. Nil fields keep
// their current value.
type UpdateRequest struct {
	WeeklySchedule        []models.DaySchedule `json:"weeklySchedule"`
	BlackoutDates         []string             `json:"blackoutDates"`
	SlotDuration          *int                 `json:"slotDuration"`
	BufferBetweenSlots    *int                 `json:"bufferBetweenSlots"`
	MinLeadTime           *int                 `json:"minLeadTime"`
	MaxAdvanceBooking     *int                 `json:"maxAdvanceBooking"`
	MaxAppointmentsPerDay *int                 `json:"maxAppointmentsPerDay"`
	Timezone              *string              `json:"timezone"`
}

// Apply merges the request onto current and returns the candidate settings.
// The result still has to pass Validate before being stored.
func Apply(current models.AvailabilitySettings, req UpdateRequest) models.AvailabilitySettings {
	next := current
	if req.WeeklySchedule != nil {
		next.WeeklySchedule = req.WeeklySchedule
	}
	if req.BlackoutDates != nil {
		next.BlackoutDates = req.BlackoutDates
	}
	if req.SlotDuration != nil {
		next.SlotDuration = *req.SlotDuration
	}
	if req.BufferBetweenSlots != nil {
		next.BufferBetweenSlots = *req.BufferBetweenSlots
	}
	if req.MinLeadTime != nil {
		next.MinLeadTime = *req.MinLeadTime
	}
	if req.MaxAdvanceBooking != nil {
		next.MaxAdvanceBooking = *req.MaxAdvanceBooking
	}
	if req.MaxAppointmentsPerDay != nil {
		next.MaxAppointmentsPerDay = *req.MaxAppointmentsPerDay
	}
	if req.Timezone != nil {
		next.Timezone = *req.Timezone
	}
	return next
}
