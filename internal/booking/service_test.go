package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/models"
)

type fakeRepo struct {
	mu    sync.Mutex
	byID  map[string]models.Appointment
	slots map[string]string

	insertErr      error
	overlapping    *models.Appointment
	overlappingErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:  make(map[string]models.Appointment),
		slots: make(map[string]string),
	}
}

func slotKey(appt models.Appointment) string {
	return appt.Date + "T" + appt.Time
}

func (f *fakeRepo) Insert(ctx context.Context, appt models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	key := slotKey(appt)
	if _, taken := f.slots[key]; taken {
		return ErrDuplicateSlot
	}
	f.slots[key] = appt.ID
	f.byID[appt.ID] = appt
	return nil
}

func (f *fakeRepo) FindOverlapping(ctx context.Context, start, end time.Time, statuses []string) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.overlappingErr != nil {
		return nil, f.overlappingErr
	}
	if f.overlapping != nil {
		return f.overlapping, nil
	}
	for _, appt := range f.byID {
		if !activeStatus(appt.Status, statuses) {
			continue
		}
		if appt.StartTime.Before(end) && appt.EndTime.After(start) {
			match := appt
			return &match, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CountByDay(ctx context.Context, dayStart, dayEnd time.Time, statuses []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, appt := range f.byID {
		if !activeStatus(appt.Status, statuses) {
			continue
		}
		if !appt.StartTime.Before(dayStart) && appt.StartTime.Before(dayEnd) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) BookedTimes(ctx context.Context, date string, statuses []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	times := make([]string, 0)
	for _, appt := range f.byID {
		if appt.Date == date && activeStatus(appt.Status, statuses) {
			times = append(times, appt.Time)
		}
	}
	return times, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.byID[id]
	if !ok {
		return models.Appointment{}, ErrNoAppointment
	}
	return appt, nil
}

func (f *fakeRepo) Replace(ctx context.Context, appt models.Appointment) (models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[appt.ID]; !ok {
		return models.Appointment{}, ErrNoAppointment
	}
	f.byID[appt.ID] = appt
	return appt, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.byID[id]
	if !ok {
		return ErrNoAppointment
	}
	delete(f.byID, id)
	delete(f.slots, slotKey(appt))
	return nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]models.Appointment, 0)
	for _, appt := range f.byID {
		if filter.Status != "" && appt.Status != filter.Status {
			continue
		}
		if filter.Date != "" && appt.Date != filter.Date {
			continue
		}
		items = append(items, appt)
	}
	return items, nil
}

func (f *fakeRepo) Count(ctx context.Context, filter ListFilter) (int64, error) {
	items, _ := f.List(ctx, filter, 0, 0)
	return int64(len(items)), nil
}

func activeStatus(status string, statuses []string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fixedSettings struct {
	settings models.AvailabilitySettings
	err      error
}

func (f fixedSettings) Get(ctx context.Context) (models.AvailabilitySettings, error) {
	return f.settings, f.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	requests  []models.Appointment
	confirmed []models.Appointment
	err       error
}

func (n *recordingNotifier) SendBookingRequest(ctx context.Context, appt models.Appointment) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	n.requests = append(n.requests, appt)
	return "msg-req", nil
}

func (n *recordingNotifier) SendBookingConfirmed(ctx context.Context, appt models.Appointment) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	n.confirmed = append(n.confirmed, appt)
	return "msg-conf", nil
}

func (n *recordingNotifier) requestCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.requests)
}

func (n *recordingNotifier) confirmedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmed)
}

func testPolicy() models.AvailabilitySettings {
	week := make([]models.DaySchedule, 7)
	for i := range week {
		week[i] = models.DaySchedule{Available: false, Windows: []models.Window{}}
	}
	week[int(time.Monday)] = models.DaySchedule{
		Available: true,
		Windows:   []models.Window{{Start: "09:00", End: "11:00"}},
	}
	return models.AvailabilitySettings{
		WeeklySchedule:        week,
		BlackoutDates:         []string{},
		SlotDuration:          30,
		BufferBetweenSlots:    0,
		MinLeadTime:           0,
		MaxAdvanceBooking:     60,
		MaxAppointmentsPerDay: 8,
		Timezone:              "UTC",
	}
}

// 2026-03-02 is a Monday.
const testMonday = "2026-03-02"

func testClock() func() time.Time {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Topic: "Project kickoff",
		Date:  testMonday,
		Time:  "09:00",
	}
}

func newTestService(repo Repository, notifier Notifier) *Service {
	return NewService(repo, fixedSettings{settings: testPolicy()}, notifier, testLogger(), testClock())
}

func TestSubmitCreatesPendingAppointment(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	appt, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, models.AppointmentStatusPending, appt.Status)
	assert.Equal(t, testMonday, appt.Date)
	assert.Equal(t, "09:00", appt.Time)
	assert.Equal(t, 30, appt.Duration)
	assert.Equal(t, "UTC", appt.Timezone)
	assert.Equal(t, 30*time.Minute, appt.EndTime.Sub(appt.StartTime))

	stored, err := repo.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, stored.ID)
}

func TestSubmitHoneypot(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	req := validRequest()
	req.Honeypot = "http://spam.example"

	_, err := svc.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, repo.byID)
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)

	cases := []struct {
		name   string
		mutate func(*SubmitRequest)
	}{
		{"short name", func(r *SubmitRequest) { r.Name = "A" }},
		{"bad email", func(r *SubmitRequest) { r.Email = "not-an-email" }},
		{"short topic", func(r *SubmitRequest) { r.Topic = "hi" }},
		{"missing date", func(r *SubmitRequest) { r.Date = "" }},
		{"missing time", func(r *SubmitRequest) { r.Time = "" }},
		{"unknown timezone", func(r *SubmitRequest) { r.Timezone = "Mars/Olympus" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := svc.Submit(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSubmitDateNotAvailable(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)

	req := validRequest()
	req.Date = "2026-03-03" // Tuesday, closed

	_, err := svc.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrDateNotAvailable)
}

func TestSubmitBlackoutDate(t *testing.T) {
	policy := testPolicy()
	policy.BlackoutDates = []string{testMonday}
	svc := NewService(newFakeRepo(), fixedSettings{settings: policy}, nil, testLogger(), testClock())

	_, err := svc.Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrDateNotAvailable)
}

func TestSubmitSlotNotOffered(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)

	req := validRequest()
	req.Time = "09:10" // not on the slot grid

	_, err := svc.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
}

func TestSubmitSlotWithinLeadTime(t *testing.T) {
	policy := testPolicy()
	policy.MinLeadTime = 26 // now is 08:00 the day before; 09:00 is 25h away
	svc := NewService(newFakeRepo(), fixedSettings{settings: policy}, nil, testLogger(), testClock())

	req := validRequest()
	req.Time = "09:00"
	_, err := svc.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotNotAvailable)

	// A later slot the same day clears the lead window.
	req.Time = "10:30"
	_, err = svc.Submit(context.Background(), req)
	assert.NoError(t, err)
}

func TestSubmitSlotConflict(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestSubmitDuplicateKeyMapsToConflict(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr = ErrDuplicateSlot
	svc := newTestService(repo, nil)

	_, err := svc.Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestSubmitDayCapacity(t *testing.T) {
	policy := testPolicy()
	policy.MaxAppointmentsPerDay = 1
	repo := newFakeRepo()
	svc := NewService(repo, fixedSettings{settings: policy}, nil, testLogger(), testClock())

	_, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.Time = "09:30"
	_, err = svc.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrDayCapacity)
}

func TestSubmitConcurrentSameSlot(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), validRequest())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrSlotConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicted)
}

func TestSubmitNotifiesOperator(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := newTestService(newFakeRepo(), notifier)

	_, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return notifier.requestCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSubmitNotifierFailureIsSwallowed(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	repo := newFakeRepo()
	svc := newTestService(repo, notifier)

	appt, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	// The appointment stays booked even though the notification failed.
	stored, err := repo.GetByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusPending, stored.Status)
}

func TestBookedSlots(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	booked, err := svc.BookedSlots(context.Background(), testMonday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, booked)

	_, err = svc.BookedSlots(context.Background(), "not-a-date")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func strPtr(s string) *string { return &s }

func TestLifecycleTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{models.AppointmentStatusPending, models.AppointmentStatusConfirmed, true},
		{models.AppointmentStatusPending, models.AppointmentStatusRejected, true},
		{models.AppointmentStatusPending, models.AppointmentStatusCancelled, true},
		{models.AppointmentStatusConfirmed, models.AppointmentStatusRejected, true},
		{models.AppointmentStatusConfirmed, models.AppointmentStatusCancelled, true},
		{models.AppointmentStatusConfirmed, models.AppointmentStatusConfirmed, false},
		{models.AppointmentStatusRejected, models.AppointmentStatusConfirmed, false},
		{models.AppointmentStatusRejected, models.AppointmentStatusCancelled, false},
		{models.AppointmentStatusCancelled, models.AppointmentStatusConfirmed, false},
		{models.AppointmentStatusCancelled, models.AppointmentStatusRejected, false},
	}

	for _, tc := range cases {
		t.Run(tc.from+"_to_"+tc.to, func(t *testing.T) {
			repo := newFakeRepo()
			svc := newTestService(repo, nil)

			appt, err := svc.Submit(context.Background(), validRequest())
			require.NoError(t, err)

			if tc.from != models.AppointmentStatusPending {
				_, err = svc.UpdateAppointment(context.Background(), appt.ID, LifecycleRequest{Status: strPtr(tc.from)})
				require.NoError(t, err)
			}

			_, err = svc.UpdateAppointment(context.Background(), appt.ID, LifecycleRequest{Status: strPtr(tc.to)})
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestLifecycleStampsTimestampOnce(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	appt, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	confirmed, err := svc.UpdateAppointment(context.Background(), appt.ID, LifecycleRequest{Status: strPtr(models.AppointmentStatusConfirmed)})
	require.NoError(t, err)
	require.NotNil(t, confirmed.ConfirmedAt)
	firstStamp := *confirmed.ConfirmedAt

	cancelled, err := svc.UpdateAppointment(context.Background(), appt.ID, LifecycleRequest{Status: strPtr(models.AppointmentStatusCancelled)})
	require.NoError(t, err)
	require.NotNil(t, cancelled.ConfirmedAt)
	assert.Equal(t, firstStamp, *cancelled.ConfirmedAt)
	require.NotNil(t, cancelled.CancelledAt)
}

func TestLifecycleNotesOnlyUpdate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	appt, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.UpdateAppointment(context.Background(), appt.ID, LifecycleRequest{Status: strPtr(models.AppointmentStatusRejected)})
	require.NoError(t, err)

	// Terminal state: no further transitions, but notes still editable.
	updated, err := svc.UpdateAppointment(context.Background(), appt.ID, LifecycleRequest{AdminNotes: strPtr("spam, blocked sender")})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusRejected, updated.Status)
	assert.Equal(t, "spam, blocked sender", updated.AdminNotes)
	assert.Nil(t, updated.ConfirmedAt)
}

func TestLifecycleConfirmNotifiesSubmitter(t *testing.T) {
	notifier := &recordingNotifier{}
	repo := newFakeRepo()
	svc := newTestService(repo, notifier)

	appt, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.UpdateAppointment(context.Background(), appt.ID, LifecycleRequest{Status: strPtr(models.AppointmentStatusConfirmed)})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return notifier.confirmedCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUpdateAppointmentNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)

	_, err := svc.UpdateAppointment(context.Background(), "missing", LifecycleRequest{Status: strPtr(models.AppointmentStatusConfirmed)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAppointment(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	appt, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAppointment(context.Background(), appt.ID))
	assert.ErrorIs(t, svc.DeleteAppointment(context.Background(), appt.ID), ErrNotFound)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	appt, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.UpdateAppointment(context.Background(), appt.ID, LifecycleRequest{Status: strPtr(models.AppointmentStatusCancelled)})
	require.NoError(t, err)

	// The fake repo frees the unique slot the same way the partial index
	// does once the status leaves the active set.
	repo.mu.Lock()
	delete(repo.slots, slotKey(appt))
	repo.mu.Unlock()

	_, err = svc.Submit(context.Background(), validRequest())
	assert.NoError(t, err)
}
