package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/models"
	"portfolio-backend/internal/schedule"
)

var (
	ErrInvalidInput      = errors.New("invalid request")
	ErrDateNotAvailable  = errors.New("date not available")
	ErrSlotNotAvailable  = errors.New("slot not available")
	ErrSlotConflict      = errors.New("slot already booked")
	ErrDayCapacity       = errors.New("daily booking limit reached")
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// allowedTransitions is the lifecycle state machine. Rejected and cancelled
// are terminal; only note edits are accepted there.
var allowedTransitions = map[string]map[string]bool{
	models.AppointmentStatusPending: {
		models.AppointmentStatusConfirmed: true,
		models.AppointmentStatusRejected:  true,
		models.AppointmentStatusCancelled: true,
	},
	models.AppointmentStatusConfirmed: {
		models.AppointmentStatusRejected:  true,
		models.AppointmentStatusCancelled: true,
	},
	models.AppointmentStatusRejected:  {},
	models.AppointmentStatusCancelled: {},
}

// SettingsProvider returns the current availability policy. The service
// reads it fresh on every call; it is never cached across requests.
type SettingsProvider interface {
	Get(ctx context.Context) (models.AvailabilitySettings, error)
}

// Notifier is the best-effort email sink. Failures are logged and swallowed;
// they never roll back a booking.
type Notifier interface {
	SendBookingRequest(ctx context.Context, appt models.Appointment) (string, error)
	SendBookingConfirmed(ctx context.Context, appt models.Appointment) (string, error)
}

// SubmitRequest is a booking admission request. Honeypot carries the hidden
// "website" form field; bots fill it, humans never see it.
type SubmitRequest struct {
	Name      string
	Email     string
	Topic     string
	Details   string
	Date      string
	Time      string
	Timezone  string
	Honeypot  string
	IPAddress string
	UserAgent string
}

type Service struct {
	repo     Repository
	settings SettingsProvider
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, provider SettingsProvider, notifier Notifier, log *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		settings: provider,
		notifier: notifier,
		log:      log,
		now:      now,
	}
}

// Submit validates and admits a booking request. On success exactly one new
// pending appointment exists; on any failure path nothing was written. The
// in-process overlap check is a fast path only; the storage layer's unique
// constraint is what actually prevents two concurrent submissions from both
// committing.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (models.Appointment, error) {
	// A filled honeypot means a bot. Respond with the generic invalid-input
	// error so the detection stays invisible.
	if strings.TrimSpace(req.Honeypot) != "" {
		return models.Appointment{}, ErrInvalidInput
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Topic = strings.TrimSpace(req.Topic)
	req.Details = strings.TrimSpace(req.Details)

	if err := validateSubmit(req); err != nil {
		return models.Appointment{}, err
	}

	policy, err := s.settings.Get(ctx)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("load settings: %w", err)
	}
	loc, err := policy.Location()
	if err != nil {
		return models.Appointment{}, fmt.Errorf("load policy timezone: %w", err)
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = policy.Timezone
	} else if _, err := time.LoadLocation(tz); err != nil {
		return models.Appointment{}, fmt.Errorf("%w: unknown timezone", ErrInvalidInput)
	}

	start, err := schedule.ParseDateTime(req.Date, req.Time, loc)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	now := s.now()
	bookable, err := schedule.IsBookable(req.Date, policy, now)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if !bookable {
		return models.Appointment{}, ErrDateNotAvailable
	}

	// Re-derive the slot list instead of trusting the client's view; a
	// stale client cannot book a slot the current policy no longer offers.
	slots, err := schedule.GenerateSlots(req.Date, policy, now)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("generate slots: %w", err)
	}
	if !schedule.Contains(slots, req.Time) {
		return models.Appointment{}, ErrSlotNotAvailable
	}
	if start.Before(now.Add(time.Duration(policy.MinLeadTime) * time.Hour)) {
		return models.Appointment{}, ErrSlotNotAvailable
	}

	end := start.Add(time.Duration(policy.SlotDuration) * time.Minute)

	existing, err := s.repo.FindOverlapping(ctx, start, end, models.ActiveAppointmentStatuses)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("overlap check: %w", err)
	}
	if existing != nil {
		return models.Appointment{}, ErrSlotConflict
	}

	dayStart, dayEnd, err := schedule.DayBounds(req.Date, loc)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	count, err := s.repo.CountByDay(ctx, dayStart, dayEnd, models.ActiveAppointmentStatuses)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("day count: %w", err)
	}
	if count >= int64(policy.MaxAppointmentsPerDay) {
		return models.Appointment{}, ErrDayCapacity
	}

	appt := models.Appointment{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Topic:     req.Topic,
		Details:   req.Details,
		Date:      req.Date,
		Time:      req.Time,
		Duration:  policy.SlotDuration,
		StartTime: start,
		EndTime:   end,
		Timezone:  tz,
		Status:    models.AppointmentStatusPending,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		CreatedAt: now.In(loc),
		UpdatedAt: now.In(loc),
	}

	if err := s.repo.Insert(ctx, appt); err != nil {
		if errors.Is(err, ErrDuplicateSlot) {
			return models.Appointment{}, ErrSlotConflict
		}
		return models.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}

	if s.notifier != nil {
		go s.sendBookingRequestEmail(appt)
	}

	return appt, nil
}

func validateSubmit(req SubmitRequest) error {
	if len(req.Name) < 2 || len(req.Name) > 100 {
		return fmt.Errorf("%w: name must be 2-100 characters", ErrInvalidInput)
	}
	if !emailShape.MatchString(req.Email) {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(req.Topic) < 3 || len(req.Topic) > 200 {
		return fmt.Errorf("%w: topic must be 3-200 characters", ErrInvalidInput)
	}
	if len(req.Details) > 1000 {
		return fmt.Errorf("%w: details too long", ErrInvalidInput)
	}
	if req.Date == "" || req.Time == "" {
		return fmt.Errorf("%w: date and time are required", ErrInvalidInput)
	}
	return nil
}

// BookedSlots returns the occupied slot starts for a date, for the public
// availability listing. Clients combine it with the policy to render free
// slots; admission re-validates server-side regardless.
func (s *Service) BookedSlots(ctx context.Context, date string) ([]string, error) {
	policy, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	loc, err := policy.Location()
	if err != nil {
		return nil, fmt.Errorf("load policy timezone: %w", err)
	}
	if _, err := schedule.ParseDate(date, loc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return s.repo.BookedTimes(ctx, date, models.ActiveAppointmentStatuses)
}

// LifecycleRequest updates an appointment's status and/or admin notes. Nil
// fields are left untouched; notes may change in any state.
type LifecycleRequest struct {
	Status     *string
	AdminNotes *string
}

// UpdateAppointment runs the lifecycle state machine. The first transition
// into a state stamps its timestamp; the stamp is never overwritten.
func (s *Service) UpdateAppointment(ctx context.Context, id string, req LifecycleRequest) (models.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, ErrNoAppointment) {
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, err
	}

	now := s.now()
	confirmed := false

	if req.Status != nil {
		next := strings.ToLower(strings.TrimSpace(*req.Status))
		allowed, known := allowedTransitions[appt.Status]
		if !known || !allowed[next] {
			return models.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, next)
		}

		appt.Status = next
		switch next {
		case models.AppointmentStatusConfirmed:
			if appt.ConfirmedAt == nil {
				stamp := now
				appt.ConfirmedAt = &stamp
			}
			confirmed = true
		case models.AppointmentStatusRejected:
			if appt.RejectedAt == nil {
				stamp := now
				appt.RejectedAt = &stamp
			}
		case models.AppointmentStatusCancelled:
			if appt.CancelledAt == nil {
				stamp := now
				appt.CancelledAt = &stamp
			}
		}
	}

	if req.AdminNotes != nil {
		appt.AdminNotes = *req.AdminNotes
	}

	appt.UpdatedAt = now

	updated, err := s.repo.Replace(ctx, appt)
	if err != nil {
		if errors.Is(err, ErrNoAppointment) {
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, err
	}

	if confirmed && s.notifier != nil {
		go s.sendBookingConfirmedEmail(updated)
	}

	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (models.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, ErrNoAppointment) {
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, err
	}
	return appt, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if errors.Is(err, ErrNoAppointment) {
		return ErrNotFound
	}
	return err
}

func (s *Service) ListAppointments(ctx context.Context, filter ListFilter, limit, offset int64) ([]models.Appointment, int64, error) {
	items, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) sendBookingRequestEmail(appt models.Appointment) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	messageID, err := s.notifier.SendBookingRequest(ctx, appt)
	if err != nil {
		s.log.Warn("booking email: operator notification failed",
			slog.String("appointment_id", appt.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.log.Info("booking email: operator notified",
		slog.String("appointment_id", appt.ID),
		slog.String("message_id", messageID),
	)
}

func (s *Service) sendBookingConfirmedEmail(appt models.Appointment) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	messageID, err := s.notifier.SendBookingConfirmed(ctx, appt)
	if err != nil {
		s.log.Warn("booking email: confirmation failed",
			slog.String("appointment_id", appt.ID),
			slog.String("email", appt.Email),
			slog.String("error", err.Error()),
		)
		return
	}
	s.log.Info("booking email: confirmation sent",
		slog.String("appointment_id", appt.ID),
		slog.String("email", appt.Email),
		slog.String("message_id", messageID),
	)
}
