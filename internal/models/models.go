package models

import "time"

const (
	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusRejected  = "rejected"
	AppointmentStatusCancelled = "cancelled"

	UserRoleAdmin = "admin"
)

// ActiveAppointmentStatuses are the statuses that occupy a slot. Two
// appointments in these statuses must never overlap.
var ActiveAppointmentStatuses = []string{AppointmentStatusPending, AppointmentStatusConfirmed}

// Window is a start-end clock range ("15:04") within a weekday during which
// slots may be generated.
type Window struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// DaySchedule is one weekday entry of the weekly schedule. The wire name of
// Windows is "slots" for compatibility with the settings contract.
type DaySchedule struct {
	Available bool     `bson:"available" json:"available"`
	Windows   []Window `bson:"slots" json:"slots"`
}

// AvailabilitySettings is the operator-owned booking policy. Exactly one
// document exists; it is created at startup if absent and mutated only
// through the authenticated settings endpoint.
type AvailabilitySettings struct {
	ID                    string        `bson:"_id,omitempty" json:"-"`
	WeeklySchedule        []DaySchedule `bson:"weeklySchedule" json:"weeklySchedule"`
	BlackoutDates         []string      `bson:"blackoutDates" json:"blackoutDates"`
	SlotDuration          int           `bson:"slotDuration" json:"slotDuration"`
	BufferBetweenSlots    int           `bson:"bufferBetweenSlots" json:"bufferBetweenSlots"`
	MinLeadTime           int           `bson:"minLeadTime" json:"minLeadTime"`
	MaxAdvanceBooking     int           `bson:"maxAdvanceBooking" json:"maxAdvanceBooking"`
	MaxAppointmentsPerDay int           `bson:"maxAppointmentsPerDay" json:"maxAppointmentsPerDay"`
	Timezone              string        `bson:"timezone" json:"timezone"`
	UpdatedAt             time.Time     `bson:"updatedAt" json:"updatedAt"`
}

func (s AvailabilitySettings) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Appointment is a booked slot. Duration is frozen from the policy at
// creation time; EndTime - StartTime always equals Duration minutes even if
// the policy changes later.
type Appointment struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	Name        string     `bson:"name" json:"name"`
	Email       string     `bson:"email" json:"email"`
	Topic       string     `bson:"topic" json:"topic"`
	Details     string     `bson:"details,omitempty" json:"details,omitempty"`
	Date        string     `bson:"date" json:"date"`
	Time        string     `bson:"time" json:"time"`
	Duration    int        `bson:"duration" json:"duration"`
	StartTime   time.Time  `bson:"startTime" json:"startTime"`
	EndTime     time.Time  `bson:"endTime" json:"endTime"`
	Timezone    string     `bson:"timezone" json:"timezone"`
	Status      string     `bson:"status" json:"status"`
	IPAddress   string     `bson:"ipAddress,omitempty" json:"-"`
	UserAgent   string     `bson:"userAgent,omitempty" json:"-"`
	AdminNotes  string     `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`
	ConfirmedAt *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	RejectedAt  *time.Time `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type ContactMessage struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Subject   string    `bson:"subject" json:"subject"`
	Message   string    `bson:"message" json:"message"`
	IPAddress string    `bson:"ipAddress,omitempty" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type Project struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Slug        string    `bson:"slug" json:"slug"`
	Description string    `bson:"description" json:"description"`
	Tech        []string  `bson:"tech" json:"tech"`
	RepoURL     string    `bson:"repoUrl,omitempty" json:"repoUrl,omitempty"`
	LiveURL     string    `bson:"liveUrl,omitempty" json:"liveUrl,omitempty"`
	Featured    bool      `bson:"featured" json:"featured"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Snippet struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Language    string    `bson:"language" json:"language"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Code        string    `bson:"code" json:"code"`
	Tags        []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
