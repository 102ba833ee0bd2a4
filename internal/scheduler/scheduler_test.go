package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hospadmin/internal/ledger"
	"hospadmin/internal/models"
	"hospadmin/internal/store"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) LookupRole(ctx context.Context, id string) (models.Role, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Role), args.Error(1)
}

type fixture struct {
	scheduler *Scheduler
	ledger    *ledger.Ledger
	appts     *store.MemStore
	directory *mockDirectory
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	appts := store.NewMemStore()
	ldg := ledger.New(store.NewMemStore(), nil, logger)
	dir := new(mockDirectory)
	catalog := store.NewMemCatalog()
	return &fixture{
		scheduler: New(appts, ldg, dir, catalog, nil, opts, logger),
		ledger:    ldg,
		appts:     appts,
		directory: dir,
	}
}

func (f *fixture) expectDoctor(id string) {
	f.directory.On("LookupRole", mock.Anything, id).Return(models.RoleDoctor, nil)
}

func (f *fixture) slotStatus(t *testing.T, doctorID, date, ts string) models.SlotStatus {
	t.Helper()
	slot, err := f.ledger.FindSlot(context.Background(), doctorID, date, ts)
	require.NoError(t, err)
	require.NotNil(t, slot)
	return slot.Status
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.expectDoctor("DR001")
	require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24",
		[]string{"10:00-10:30", "11:00-11:30"}))

	id, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "10:00")
	require.NoError(t, err)
	assert.Equal(t, "AP001", id)

	// The booked slot is BOOKED and the appointment is PENDING.
	assert.Equal(t, models.SlotBooked, f.slotStatus(t, "DR001", "01-06-24", "10:00-10:30"))
	status, err := f.scheduler.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status)

	// IDs are strictly increasing.
	id2, err := f.scheduler.Schedule(ctx, "PT002", "DR001", "01-06-24", "11:00")
	require.NoError(t, err)
	assert.Equal(t, "AP002", id2)
}

func TestSchedule_ValidationOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownDoctor", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.directory.On("LookupRole", mock.Anything, "PT009").Return(models.RolePatient, nil)

		_, err := f.scheduler.Schedule(ctx, "PT001", "PT009", "01-06-24", "10:00")
		assert.ErrorIs(t, err, ErrUnknownDoctor)
	})

	t.Run("FullyBookedBeforeDateChecked", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.expectDoctor("DR001")

		// No AVAILABLE rows anywhere: fails even with a garbage date,
		// because the doctor check comes first.
		_, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "not-a-date", "10:00")
		assert.ErrorIs(t, err, ErrDoctorFullyBooked)
	})

	t.Run("ImpossibleCalendarDate", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.expectDoctor("DR001")
		require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24", []string{"10:00-10:30"}))

		_, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "31-02-24", "10:00")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("UnavailableOnDate", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.expectDoctor("DR001")
		require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24", []string{"10:00-10:30"}))

		_, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "02-06-24", "10:00")
		assert.ErrorIs(t, err, ErrDoctorUnavailableOnDate)
	})

	t.Run("SlotUnavailable", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.expectDoctor("DR001")
		require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24", []string{"10:00-10:30"}))

		_, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "12:00")
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("BadTimeInput", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.expectDoctor("DR001")
		require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24", []string{"10:00-10:30"}))

		_, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "ten o'clock")
		assert.ErrorIs(t, err, ErrInvalidTimeSlot)
	})
}

func TestSchedule_PastDates(t *testing.T) {
	ctx := context.Background()
	now := func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	t.Run("AcceptedByDefault", func(t *testing.T) {
		f := newFixture(t, Options{Now: now})
		f.expectDoctor("DR001")
		require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24", []string{"10:00-10:30"}))

		_, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "10:00")
		assert.NoError(t, err)
	})

	t.Run("RejectedWhenConfigured", func(t *testing.T) {
		f := newFixture(t, Options{Now: now, RejectPastDates: true})
		f.expectDoctor("DR001")
		require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24", []string{"10:00-10:30"}))

		_, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "10:00")
		assert.ErrorIs(t, err, ErrDateInPast)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.expectDoctor("DR001")
	require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24", []string{"10:00-10:30"}))

	id, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "10:00")
	require.NoError(t, err)

	require.NoError(t, f.scheduler.Cancel(ctx, id))

	status, err := f.scheduler.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, status)
	assert.Equal(t, models.SlotAvailable, f.slotStatus(t, "DR001", "01-06-24", "10:00-10:30"))

	t.Run("NotFound", func(t *testing.T) {
		assert.ErrorIs(t, f.scheduler.Cancel(ctx, "AP999"), ErrAppointmentNotFound)
	})

	t.Run("NoResurrection", func(t *testing.T) {
		assert.ErrorIs(t, f.scheduler.Cancel(ctx, id), ErrInvalidTransition)
		assert.ErrorIs(t, f.scheduler.Confirm(ctx, id), ErrInvalidTransition)
	})
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.expectDoctor("DR001")
	require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24",
		[]string{"10:00-10:30", "11:00-11:30"}))

	id, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "10:00")
	require.NoError(t, err)

	require.NoError(t, f.scheduler.Reschedule(ctx, id, "01-06-24", "11:00"))

	// Old slot freed, new slot claimed, appointment moved and PENDING.
	assert.Equal(t, models.SlotAvailable, f.slotStatus(t, "DR001", "01-06-24", "10:00-10:30"))
	assert.Equal(t, models.SlotBooked, f.slotStatus(t, "DR001", "01-06-24", "11:00-11:30"))

	appt, err := f.scheduler.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "01-06-24", appt.Date)
	assert.Equal(t, "11:00-11:30", appt.TimeSlot)
	assert.Equal(t, models.StatusPending, appt.Status)

	t.Run("NotFound", func(t *testing.T) {
		err := f.scheduler.Reschedule(ctx, "AP999", "01-06-24", "10:00")
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})

	t.Run("TargetSlotTaken", func(t *testing.T) {
		// The appointment occupies 11:00-11:30; moving onto it again
		// fails because a BOOKED slot is not AVAILABLE.
		err := f.scheduler.Reschedule(ctx, id, "01-06-24", "11:00")
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})
}

func TestReschedule_AbortedWriteRestoresLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.expectDoctor("DR001")
	require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24",
		[]string{"10:00-10:30", "11:00-11:30"}))

	id, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "10:00")
	require.NoError(t, err)

	f.appts.FailNextSave = true
	err = f.scheduler.Reschedule(ctx, id, "01-06-24", "11:00")
	assert.ErrorIs(t, err, store.ErrStorage)

	// The ledger was compensated back: nothing moved.
	assert.Equal(t, models.SlotBooked, f.slotStatus(t, "DR001", "01-06-24", "10:00-10:30"))
	assert.Equal(t, models.SlotAvailable, f.slotStatus(t, "DR001", "01-06-24", "11:00-11:30"))
	appt, err := f.scheduler.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "10:00-10:30", appt.TimeSlot)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	t.Run("NotFoundSentinel", func(t *testing.T) {
		status, err := f.scheduler.Status(ctx, "AP123")
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnknown, status)
	})

	t.Run("Idempotent", func(t *testing.T) {
		f.expectDoctor("DR001")
		require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24", []string{"10:00-10:30"}))
		id, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "10:00")
		require.NoError(t, err)

		first, err := f.scheduler.Status(ctx, id)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			again, err := f.scheduler.Status(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func TestLifecycle_BookRescheduleDecline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.expectDoctor("D1")
	require.NoError(t, f.ledger.Publish(ctx, "D1", "Dr. Who", "01-06-24",
		[]string{"10:00-10:30", "11:00-11:30"}))

	// Patient books 10:00.
	id, err := f.scheduler.Schedule(ctx, "P1", "D1", "01-06-24", "10:00")
	require.NoError(t, err)
	status, _ := f.scheduler.Status(ctx, id)
	assert.Equal(t, models.StatusPending, status)
	assert.Equal(t, models.SlotBooked, f.slotStatus(t, "D1", "01-06-24", "10:00-10:30"))

	// Patient reschedules to 11:00.
	require.NoError(t, f.scheduler.Reschedule(ctx, id, "01-06-24", "11:00"))
	assert.Equal(t, models.SlotAvailable, f.slotStatus(t, "D1", "01-06-24", "10:00-10:30"))
	assert.Equal(t, models.SlotBooked, f.slotStatus(t, "D1", "01-06-24", "11:00-11:30"))
	status, _ = f.scheduler.Status(ctx, id)
	assert.Equal(t, models.StatusPending, status)

	// Doctor declines.
	require.NoError(t, f.scheduler.Cancel(ctx, id))
	status, _ = f.scheduler.Status(ctx, id)
	assert.Equal(t, models.StatusCancelled, status)
	assert.Equal(t, models.SlotAvailable, f.slotStatus(t, "D1", "01-06-24", "11:00-11:30"))
}

func TestConfirmAndComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.expectDoctor("DR001")
	require.NoError(t, f.ledger.Publish(ctx, "DR001", "Dr. Grey", "01-06-24", []string{"10:00-10:30"}))

	id, err := f.scheduler.Schedule(ctx, "PT001", "DR001", "01-06-24", "10:00")
	require.NoError(t, err)

	// Completing a pending appointment is not allowed.
	assert.ErrorIs(t, f.scheduler.Complete(ctx, id), ErrInvalidTransition)

	require.NoError(t, f.scheduler.Confirm(ctx, id))
	require.NoError(t, f.scheduler.Complete(ctx, id))

	status, err := f.scheduler.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, status)

	// COMPLETED is terminal; the slot stays claimed.
	assert.ErrorIs(t, f.scheduler.Cancel(ctx, id), ErrInvalidTransition)
	assert.Equal(t, models.SlotBooked, f.slotStatus(t, "DR001", "01-06-24", "10:00-10:30"))
}

func TestNextID_SkipsOddHistoricalIDs(t *testing.T) {
	appts := []models.Appointment{
		{ID: "AP007"},
		{ID: "AP412"},
		{ID: "legacy"},
	}
	assert.Equal(t, "AP413", nextID(appts))
	assert.Equal(t, "AP001", nextID(nil))
}
