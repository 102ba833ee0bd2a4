// Package outcome records clinical results against completed consultations.
package outcome

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hospadmin/internal/models"
	"hospadmin/internal/store"
)

// Completer flips an appointment to COMPLETED once its outcome is written.
// The scheduler enforces that only CONFIRMED appointments may complete.
type Completer interface {
	Complete(ctx context.Context, appointmentID string) error
	Get(ctx context.Context, appointmentID string) (models.Appointment, error)
}

// Recorder appends outcome rows and drives the completion transition.
type Recorder struct {
	store     store.RecordStore
	scheduler Completer
	logger    zerolog.Logger
}

// New creates an outcome recorder.
func New(st store.RecordStore, scheduler Completer, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:     st,
		scheduler: scheduler,
		logger:    logger.With().Str("component", "outcome").Logger(),
	}
}

// Record writes the clinical outcome and completes the appointment. The
// completion transition is attempted first so an appointment in the wrong
// state never gains an outcome row.
func (r *Recorder) Record(ctx context.Context, appointmentID, diagnosis, prescription, notes string) (models.Outcome, error) {
	if err := r.scheduler.Complete(ctx, appointmentID); err != nil {
		return models.Outcome{}, err
	}

	o := models.Outcome{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
		Diagnosis:     diagnosis,
		Prescription:  prescription,
		Notes:         notes,
	}

	records, err := r.store.Load(ctx)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("load outcomes: %w", err)
	}
	records = append(records, o.Row())
	if err := r.store.Save(ctx, records); err != nil {
		return models.Outcome{}, fmt.Errorf("save outcomes: %w", err)
	}

	r.logger.Info().
		Str("appointment_id", appointmentID).
		Str("outcome_id", o.ID).
		Msg("outcome recorded")
	return o, nil
}

// ForAppointment returns the outcomes recorded against an appointment.
func (r *Recorder) ForAppointment(ctx context.Context, appointmentID string) ([]models.Outcome, error) {
	records, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	var out []models.Outcome
	for _, rec := range records {
		o, err := models.OutcomeFromRow(rec)
		if err != nil {
			return nil, fmt.Errorf("decode outcome: %w", err)
		}
		if o.AppointmentID == appointmentID {
			out = append(out, o)
		}
	}
	return out, nil
}
