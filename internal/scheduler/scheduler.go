// Package scheduler implements the appointment lifecycle: booking,
// rescheduling, cancellation and completion, kept consistent with the
// availability ledger.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hospadmin/internal/events"
	"hospadmin/internal/ledger"
	"hospadmin/internal/models"
	"hospadmin/internal/store"
	"hospadmin/internal/timeslot"
)

const idPrefix = "AP"

// RoleLookup resolves a directory user id to its role.
type RoleLookup interface {
	LookupRole(ctx context.Context, id string) (models.Role, error)
}

// EventPublisher notifies subscribers of lifecycle events.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// Options tune scheduler behavior.
type Options struct {
	// RejectPastDates refuses bookings on dates before today. The
	// original tool accepts them, so the default is off.
	RejectPastDates bool

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// Scheduler is the sole writer of appointment rows and of slot status.
type Scheduler struct {
	appointments store.RecordStore
	ledger       *ledger.Ledger
	directory    RoleLookup
	tx           store.TxRunner
	bus          EventPublisher
	opts         Options
	logger       zerolog.Logger
}

// New creates a scheduler. bus may be nil when no subscriber cares.
func New(appointments store.RecordStore, ldg *ledger.Ledger, directory RoleLookup, tx store.TxRunner, bus EventPublisher, opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		appointments: appointments,
		ledger:       ldg,
		directory:    directory,
		tx:           tx,
		bus:          bus,
		opts:         opts,
		logger:       logger.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) load(ctx context.Context) ([]models.Appointment, error) {
	records, err := s.appointments.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	appts := make([]models.Appointment, 0, len(records))
	for _, rec := range records {
		a, err := models.AppointmentFromRow(rec)
		if err != nil {
			return nil, fmt.Errorf("decode appointment: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, nil
}

func (s *Scheduler) save(ctx context.Context, appts []models.Appointment) error {
	records := make([]store.Record, len(appts))
	for i, a := range appts {
		records[i] = a.Row()
	}
	if err := s.appointments.Save(ctx, records); err != nil {
		return fmt.Errorf("save appointments: %w", err)
	}
	return nil
}

// nextID returns the next strictly increasing AP identifier. The original
// drew 3-digit random ids with a real collision chance; deriving the next
// id from the highest stored one keeps the AP prefix without the risk.
func nextID(appts []models.Appointment) string {
	max := 0
	for _, a := range appts {
		n, err := strconv.Atoi(strings.TrimPrefix(a.ID, idPrefix))
		if err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%03d", idPrefix, max+1)
}

// validateDate checks the DD-MM-YY format strictly and, when configured,
// rejects past dates.
func (s *Scheduler) validateDate(date string) error {
	d, err := timeslot.ParseDate(date)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if s.opts.RejectPastDates {
		now := s.opts.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if d.Before(today) {
			return ErrDateInPast
		}
	}
	return nil
}

// validateSlot normalizes the bare HH:MM input and checks the resulting
// range is published and AVAILABLE for the doctor on that date.
func (s *Scheduler) validateSlot(ctx context.Context, doctorID, date, timeInput string) (string, error) {
	ts, err := timeslot.Normalize(timeInput)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTimeSlot, err)
	}
	slot, err := s.ledger.FindSlot(ctx, doctorID, date, ts)
	if err != nil {
		return "", err
	}
	if slot == nil || slot.Status != models.SlotAvailable {
		return "", fmt.Errorf("%s on %s: %w", ts, date, ErrSlotUnavailable)
	}
	return ts, nil
}

// Schedule books a new appointment and claims the slot. Validation follows
// the interactive order: doctor first, then date, then time.
func (s *Scheduler) Schedule(ctx context.Context, patientID, doctorID, date, timeInput string) (string, error) {
	role, err := s.directory.LookupRole(ctx, doctorID)
	if err != nil || role != models.RoleDoctor {
		return "", fmt.Errorf("%s: %w", doctorID, ErrUnknownDoctor)
	}
	hasAny, err := s.ledger.HasAnyAvailable(ctx, doctorID)
	if err != nil {
		return "", err
	}
	if !hasAny {
		return "", fmt.Errorf("%s: %w", doctorID, ErrDoctorFullyBooked)
	}

	if err := s.validateDate(date); err != nil {
		return "", err
	}
	onDate, err := s.ledger.IsAvailableOn(ctx, doctorID, date)
	if err != nil {
		return "", err
	}
	if !onDate {
		return "", fmt.Errorf("%s on %s: %w", doctorID, date, ErrDoctorUnavailableOnDate)
	}

	ts, err := s.validateSlot(ctx, doctorID, date, timeInput)
	if err != nil {
		return "", err
	}

	appts, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	id := nextID(appts)
	appts = append(appts, models.Appointment{
		ID:        id,
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      date,
		TimeSlot:  ts,
		Status:    models.StatusPending,
	})

	key := models.SlotKey{DoctorID: doctorID, Date: date, TimeSlot: ts}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.SetStatus(ctx, key.DoctorID, key.Date, key.TimeSlot, models.SlotBooked); err != nil {
			return err
		}
		if err := s.save(ctx, appts); err != nil {
			// Release the slot again so a half-applied booking cannot
			// shadow the ledger.
			if relErr := s.ledger.SetStatus(ctx, key.DoctorID, key.Date, key.TimeSlot, models.SlotAvailable); relErr != nil {
				s.logger.Error().Err(relErr).Str("appointment_id", id).Msg("failed to release slot after aborted booking")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info().
		Str("appointment_id", id).
		Str("doctor_id", doctorID).
		Str("patient_id", patientID).
		Str("date", date).
		Str("slot", ts).
		Msg("appointment scheduled")
	s.publish(events.TypeAppointmentScheduled, id, doctorID, date, ts)
	return id, nil
}

// Reschedule moves an existing appointment to a new date and time. The old
// slot is freed and the new one claimed in a single ledger rewrite; the
// appointment record is only written after the ledger write succeeds.
func (s *Scheduler) Reschedule(ctx context.Context, appointmentID, newDate, newTimeInput string) error {
	appts, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := findAppointment(appts, appointmentID)
	if idx < 0 {
		return fmt.Errorf("%s: %w", appointmentID, ErrAppointmentNotFound)
	}
	appt := appts[idx]
	if !models.CanTransition(appt.Status, models.StatusPending) {
		return fmt.Errorf("%s is %s: %w", appointmentID, appt.Status, ErrInvalidTransition)
	}

	if err := s.validateDate(newDate); err != nil {
		return err
	}
	onDate, err := s.ledger.IsAvailableOn(ctx, appt.DoctorID, newDate)
	if err != nil {
		return err
	}
	if !onDate {
		return fmt.Errorf("%s on %s: %w", appt.DoctorID, newDate, ErrDoctorUnavailableOnDate)
	}
	ts, err := s.validateSlot(ctx, appt.DoctorID, newDate, newTimeInput)
	if err != nil {
		return err
	}

	// Both-or-neither: the old slot must still be present before any
	// mutation happens.
	oldSlot, err := s.ledger.FindSlot(ctx, appt.DoctorID, appt.Date, appt.TimeSlot)
	if err != nil {
		return err
	}
	if oldSlot == nil {
		return fmt.Errorf("%s %s %s: %w", appt.DoctorID, appt.Date, appt.TimeSlot, ledger.ErrSlotNotFound)
	}

	oldKey := models.SlotKey{DoctorID: appt.DoctorID, Date: appt.Date, TimeSlot: appt.TimeSlot}
	newKey := models.SlotKey{DoctorID: appt.DoctorID, Date: newDate, TimeSlot: ts}
	appts[idx].Date = newDate
	appts[idx].TimeSlot = ts
	appts[idx].Status = models.StatusPending

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.SetStatuses(ctx, []ledger.StatusChange{
			{Key: oldKey, Status: models.SlotAvailable},
			{Key: newKey, Status: models.SlotBooked},
		}); err != nil {
			return err
		}
		if err := s.save(ctx, appts); err != nil {
			if compErr := s.ledger.SetStatuses(ctx, []ledger.StatusChange{
				{Key: oldKey, Status: models.SlotBooked},
				{Key: newKey, Status: models.SlotAvailable},
			}); compErr != nil {
				s.logger.Error().Err(compErr).Str("appointment_id", appointmentID).Msg("failed to restore ledger after aborted reschedule")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID).
		Str("date", newDate).
		Str("slot", ts).
		Msg("appointment rescheduled")
	s.publish(events.TypeAppointmentRescheduled, appointmentID, appt.DoctorID, newDate, ts)
	return nil
}

// Cancel sets the appointment to CANCELLED and frees its slot. A slot
// missing from the ledger is logged and skipped, not fatal.
func (s *Scheduler) Cancel(ctx context.Context, appointmentID string) error {
	appts, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := findAppointment(appts, appointmentID)
	if idx < 0 {
		return fmt.Errorf("%s: %w", appointmentID, ErrAppointmentNotFound)
	}
	appt := appts[idx]
	if !models.CanTransition(appt.Status, models.StatusCancelled) {
		return fmt.Errorf("%s is %s: %w", appointmentID, appt.Status, ErrInvalidTransition)
	}
	appts[idx].Status = models.StatusCancelled

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		err := s.ledger.SetStatus(ctx, appt.DoctorID, appt.Date, appt.TimeSlot, models.SlotAvailable)
		if err != nil && !errors.Is(err, ledger.ErrSlotNotFound) {
			return err
		}
		return s.save(ctx, appts)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID).
		Msg("appointment cancelled")
	s.publish(events.TypeAppointmentCancelled, appointmentID, appt.DoctorID, appt.Date, appt.TimeSlot)
	return nil
}

// Confirm records the doctor accepting a pending appointment.
func (s *Scheduler) Confirm(ctx context.Context, appointmentID string) error {
	return s.setStatus(ctx, appointmentID, models.StatusConfirmed, "")
}

// Complete marks a confirmed appointment as completed. Called by the
// outcome recorder once clinical data is written. The slot stays BOOKED.
func (s *Scheduler) Complete(ctx context.Context, appointmentID string) error {
	return s.setStatus(ctx, appointmentID, models.StatusCompleted, events.TypeAppointmentCompleted)
}

func (s *Scheduler) setStatus(ctx context.Context, appointmentID string, to models.AppointmentStatus, eventType string) error {
	appts, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := findAppointment(appts, appointmentID)
	if idx < 0 {
		return fmt.Errorf("%s: %w", appointmentID, ErrAppointmentNotFound)
	}
	appt := appts[idx]
	if !models.CanTransition(appt.Status, to) {
		return fmt.Errorf("%s is %s: %w", appointmentID, appt.Status, ErrInvalidTransition)
	}
	appts[idx].Status = to
	if err := s.save(ctx, appts); err != nil {
		return err
	}

	s.logger.Info().
		Str("appointment_id", appointmentID).
		Str("status", string(to)).
		Msg("appointment status updated")
	if eventType != "" {
		s.publish(eventType, appointmentID, appt.DoctorID, appt.Date, appt.TimeSlot)
	}
	return nil
}

// Status returns the appointment status, or StatusUnknown when the id does
// not exist. Repeated calls without mutation return the same value.
func (s *Scheduler) Status(ctx context.Context, appointmentID string) (models.AppointmentStatus, error) {
	appts, err := s.load(ctx)
	if err != nil {
		return models.StatusUnknown, err
	}
	if idx := findAppointment(appts, appointmentID); idx >= 0 {
		return appts[idx].Status, nil
	}
	return models.StatusUnknown, nil
}

// Get returns the appointment by id, or ErrAppointmentNotFound.
func (s *Scheduler) Get(ctx context.Context, appointmentID string) (models.Appointment, error) {
	appts, err := s.load(ctx)
	if err != nil {
		return models.Appointment{}, err
	}
	if idx := findAppointment(appts, appointmentID); idx >= 0 {
		return appts[idx], nil
	}
	return models.Appointment{}, fmt.Errorf("%s: %w", appointmentID, ErrAppointmentNotFound)
}

// ListByPatient returns the patient's appointments in file order.
func (s *Scheduler) ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	return s.list(ctx, func(a models.Appointment) bool { return a.PatientID == patientID })
}

// ListByDoctor returns the doctor's appointments in file order.
func (s *Scheduler) ListByDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return s.list(ctx, func(a models.Appointment) bool { return a.DoctorID == doctorID })
}

func (s *Scheduler) list(ctx context.Context, keep func(models.Appointment) bool) ([]models.Appointment, error) {
	appts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Appointment
	for _, a := range appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Scheduler) publish(eventType, appointmentID, doctorID, date, ts string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, map[string]string{
		"appointment_id": appointmentID,
		"doctor_id":      doctorID,
		"date":           date,
		"slot":           ts,
	})
}

func findAppointment(appts []models.Appointment, id string) int {
	for i := range appts {
		if appts[i].ID == id {
			return i
		}
	}
	return -1
}
