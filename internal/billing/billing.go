// Package billing issues and settles bills for completed consultations.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"hospadmin/internal/events"
	"hospadmin/internal/models"
	"hospadmin/internal/store"
)

var ErrBillNotFound = errors.New("bill not found")

// EventPublisher notifies subscribers of billing events.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// Service is a thin service over the bill records.
type Service struct {
	store  store.RecordStore
	bus    EventPublisher
	logger zerolog.Logger
}

// New creates a billing service. bus may be nil.
func New(st store.RecordStore, bus EventPublisher, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		bus:    bus,
		logger: logger.With().Str("component", "billing").Logger(),
	}
}

func (s *Service) load(ctx context.Context) ([]models.Bill, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bills: %w", err)
	}
	bills := make([]models.Bill, 0, len(records))
	for _, rec := range records {
		b, err := models.BillFromRow(rec)
		if err != nil {
			return nil, fmt.Errorf("decode bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, nil
}

func (s *Service) save(ctx context.Context, bills []models.Bill) error {
	records := make([]store.Record, len(bills))
	for i, b := range bills {
		records[i] = b.Row()
	}
	if err := s.store.Save(ctx, records); err != nil {
		return fmt.Errorf("save bills: %w", err)
	}
	return nil
}

// Issue creates a bill for an appointment.
func (s *Service) Issue(ctx context.Context, patientID, appointmentID string, amount float64) (models.Bill, error) {
	bills, err := s.load(ctx)
	if err != nil {
		return models.Bill{}, err
	}
	bill := models.Bill{
		ID:            fmt.Sprintf("BL%03d", len(bills)+1),
		PatientID:     patientID,
		AppointmentID: appointmentID,
		Amount:        amount,
	}
	bills = append(bills, bill)
	if err := s.save(ctx, bills); err != nil {
		return models.Bill{}, err
	}
	s.logger.Info().Str("bill_id", bill.ID).Str("patient_id", patientID).Float64("amount", amount).Msg("bill issued")
	return bill, nil
}

// Settle marks a bill as paid.
func (s *Service) Settle(ctx context.Context, billID string) error {
	bills, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range bills {
		if bills[i].ID != billID {
			continue
		}
		if bills[i].Settled {
			return nil
		}
		bills[i].Settled = true
		if err := s.save(ctx, bills); err != nil {
			return err
		}
		s.logger.Info().Str("bill_id", billID).Msg("bill settled")
		if s.bus != nil {
			s.bus.Publish(events.TypeBillSettled, map[string]string{
				"bill_id":    billID,
				"patient_id": bills[i].PatientID,
			})
		}
		return nil
	}
	return fmt.Errorf("%s: %w", billID, ErrBillNotFound)
}

// ForPatient returns the patient's bills in file order.
func (s *Service) ForPatient(ctx context.Context, patientID string) ([]models.Bill, error) {
	bills, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Bill
	for _, b := range bills {
		if b.PatientID == patientID {
			out = append(out, b)
		}
	}
	return out, nil
}

// All returns every bill in file order.
func (s *Service) All(ctx context.Context) ([]models.Bill, error) {
	return s.load(ctx)
}
