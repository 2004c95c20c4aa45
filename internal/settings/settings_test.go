package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/models"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestDefaultIsValid(t *testing.T) {
	def := Default("Europe/London")
	require.NoError(t, Validate(def))

	assert.Len(t, def.WeeklySchedule, 7)
	assert.False(t, def.WeeklySchedule[0].Available) // Sunday
	assert.True(t, def.WeeklySchedule[1].Available)  // Monday
	assert.False(t, def.WeeklySchedule[6].Available) // Saturday
	assert.Equal(t, 30, def.SlotDuration)
}

func TestValidateRejectsWrongWeekLength(t *testing.T) {
	s := Default("UTC")
	s.WeeklySchedule = s.WeeklySchedule[:6]
	assert.ErrorIs(t, Validate(s), ErrInvalidSettings)
}

func TestValidateRejectsBadWindows(t *testing.T) {
	cases := []struct {
		name   string
		window models.Window
	}{
		{"bad start format", models.Window{Start: "9am", End: "12:00"}},
		{"bad end format", models.Window{Start: "09:00", End: "noon"}},
		{"start equals end", models.Window{Start: "09:00", End: "09:00"}},
		{"start after end", models.Window{Start: "14:00", End: "12:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Default("UTC")
			s.WeeklySchedule[1].Windows = []models.Window{tc.window}
			assert.ErrorIs(t, Validate(s), ErrInvalidSettings)
		})
	}
}

func TestValidateRejectsBadBlackoutDate(t *testing.T) {
	s := Default("UTC")
	s.BlackoutDates = []string{"25/12/2026"}
	assert.ErrorIs(t, Validate(s), ErrInvalidSettings)
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.AvailabilitySettings)
	}{
		{"slot duration too short", func(s *models.AvailabilitySettings) { s.SlotDuration = 10 }},
		{"slot duration too long", func(s *models.AvailabilitySettings) { s.SlotDuration = 180 }},
		{"negative buffer", func(s *models.AvailabilitySettings) { s.BufferBetweenSlots = -5 }},
		{"buffer too long", func(s *models.AvailabilitySettings) { s.BufferBetweenSlots = 90 }},
		{"negative lead time", func(s *models.AvailabilitySettings) { s.MinLeadTime = -1 }},
		{"lead time too long", func(s *models.AvailabilitySettings) { s.MinLeadTime = 200 }},
		{"zero advance window", func(s *models.AvailabilitySettings) { s.MaxAdvanceBooking = 0 }},
		{"advance window too long", func(s *models.AvailabilitySettings) { s.MaxAdvanceBooking = 400 }},
		{"zero per day", func(s *models.AvailabilitySettings) { s.MaxAppointmentsPerDay = 0 }},
		{"per day too high", func(s *models.AvailabilitySettings) { s.MaxAppointmentsPerDay = 100 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Default("UTC")
			tc.mutate(&s)
			assert.ErrorIs(t, Validate(s), ErrInvalidSettings)
		})
	}
}

func TestValidateRejectsUnknownTimezone(t *testing.T) {
	s := Default("UTC")
	s.Timezone = "Mars/Olympus"
	assert.ErrorIs(t, Validate(s), ErrInvalidSettings)
}

func TestApplyPartialUpdate(t *testing.T) {
	current := Default("UTC")

	next := Apply(current, UpdateRequest{
		SlotDuration: intPtr(45),
		Timezone:     strPtr("Europe/Paris"),
	})

	assert.Equal(t, 45, next.SlotDuration)
	assert.Equal(t, "Europe/Paris", next.Timezone)
	// Untouched fields keep their current values.
	assert.Equal(t, current.BufferBetweenSlots, next.BufferBetweenSlots)
	assert.Equal(t, current.MinLeadTime, next.MinLeadTime)
	assert.Equal(t, current.WeeklySchedule, next.WeeklySchedule)
}

func TestApplyReplacesSchedule(t *testing.T) {
	current := Default("UTC")

	closed := make([]models.DaySchedule, 7)
	for i := range closed {
		closed[i] = models.DaySchedule{Available: false, Windows: []models.Window{}}
	}

	next := Apply(current, UpdateRequest{
		WeeklySchedule: closed,
		BlackoutDates:  []string{"2026-12-25"},
	})

	assert.Equal(t, closed, next.WeeklySchedule)
	assert.Equal(t, []string{"2026-12-25"}, next.BlackoutDates)
	require.NoError(t, Validate(next))
}
