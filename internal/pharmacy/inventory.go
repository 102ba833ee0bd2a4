// Package pharmacy manages the medicine inventory and replenishment
// requests raised by pharmacists.
package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"hospadmin/internal/events"
	"hospadmin/internal/models"
	"hospadmin/internal/store"
)

var (
	ErrMedicineNotFound = errors.New("medicine not found")
	ErrRequestNotFound  = errors.New("replenishment request not found")
	ErrInsufficient     = errors.New("insufficient stock")
)

// EventPublisher notifies subscribers of inventory events.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// Inventory is a thin service over the medicine and replenishment records.
type Inventory struct {
	medicines      store.RecordStore
	replenishments store.RecordStore
	bus            EventPublisher
	logger         zerolog.Logger
}

// New creates an inventory service. bus may be nil.
func New(medicines, replenishments store.RecordStore, bus EventPublisher, logger zerolog.Logger) *Inventory {
	return &Inventory{
		medicines:      medicines,
		replenishments: replenishments,
		bus:            bus,
		logger:         logger.With().Str("component", "pharmacy").Logger(),
	}
}

func (inv *Inventory) loadMedicines(ctx context.Context) ([]models.Medicine, error) {
	records, err := inv.medicines.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load medicines: %w", err)
	}
	meds := make([]models.Medicine, 0, len(records))
	for _, rec := range records {
		m, err := models.MedicineFromRow(rec)
		if err != nil {
			return nil, fmt.Errorf("decode medicine: %w", err)
		}
		meds = append(meds, m)
	}
	return meds, nil
}

func (inv *Inventory) saveMedicines(ctx context.Context, meds []models.Medicine) error {
	records := make([]store.Record, len(meds))
	for i, m := range meds {
		records[i] = m.Row()
	}
	if err := inv.medicines.Save(ctx, records); err != nil {
		return fmt.Errorf("save medicines: %w", err)
	}
	return nil
}

func (inv *Inventory) loadRequests(ctx context.Context) ([]models.ReplenishmentRequest, error) {
	records, err := inv.replenishments.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load replenishments: %w", err)
	}
	reqs := make([]models.ReplenishmentRequest, 0, len(records))
	for _, rec := range records {
		r, err := models.ReplenishmentFromRow(rec)
		if err != nil {
			return nil, fmt.Errorf("decode replenishment: %w", err)
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}

func (inv *Inventory) saveRequests(ctx context.Context, reqs []models.ReplenishmentRequest) error {
	records := make([]store.Record, len(reqs))
	for i, r := range reqs {
		records[i] = r.Row()
	}
	if err := inv.replenishments.Save(ctx, records); err != nil {
		return fmt.Errorf("save replenishments: %w", err)
	}
	return nil
}

// List returns every medicine in file order.
func (inv *Inventory) List(ctx context.Context) ([]models.Medicine, error) {
	return inv.loadMedicines(ctx)
}

// Get returns a medicine by id.
func (inv *Inventory) Get(ctx context.Context, id string) (models.Medicine, error) {
	meds, err := inv.loadMedicines(ctx)
	if err != nil {
		return models.Medicine{}, err
	}
	for _, m := range meds {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Medicine{}, fmt.Errorf("%s: %w", id, ErrMedicineNotFound)
}

// Add appends a new medicine row.
func (inv *Inventory) Add(ctx context.Context, m models.Medicine) error {
	meds, err := inv.loadMedicines(ctx)
	if err != nil {
		return err
	}
	meds = append(meds, m)
	if err := inv.saveMedicines(ctx, meds); err != nil {
		return err
	}
	inv.logger.Info().Str("medicine_id", m.ID).Str("name", m.Name).Msg("medicine added")
	return nil
}

// Dispense removes quantity units of a medicine from stock.
func (inv *Inventory) Dispense(ctx context.Context, id string, quantity int) (models.Medicine, error) {
	meds, err := inv.loadMedicines(ctx)
	if err != nil {
		return models.Medicine{}, err
	}
	for i := range meds {
		if meds[i].ID != id {
			continue
		}
		if meds[i].Stock < quantity {
			return models.Medicine{}, fmt.Errorf("%s has %d left, want %d: %w", id, meds[i].Stock, quantity, ErrInsufficient)
		}
		meds[i].Stock -= quantity
		if err := inv.saveMedicines(ctx, meds); err != nil {
			return models.Medicine{}, err
		}
		inv.logger.Info().Str("medicine_id", id).Int("quantity", quantity).Msg("medicine dispensed")
		return meds[i], nil
	}
	return models.Medicine{}, fmt.Errorf("%s: %w", id, ErrMedicineNotFound)
}

// RequestReplenishment records a pharmacist's restock request.
func (inv *Inventory) RequestReplenishment(ctx context.Context, medicineID string, quantity int) (models.ReplenishmentRequest, error) {
	if _, err := inv.Get(ctx, medicineID); err != nil {
		return models.ReplenishmentRequest{}, err
	}
	reqs, err := inv.loadRequests(ctx)
	if err != nil {
		return models.ReplenishmentRequest{}, err
	}
	req := models.ReplenishmentRequest{
		ID:         fmt.Sprintf("RQ%03d", len(reqs)+1),
		MedicineID: medicineID,
		Quantity:   quantity,
	}
	reqs = append(reqs, req)
	if err := inv.saveRequests(ctx, reqs); err != nil {
		return models.ReplenishmentRequest{}, err
	}

	inv.logger.Info().Str("request_id", req.ID).Str("medicine_id", medicineID).Int("quantity", quantity).Msg("replenishment requested")
	if inv.bus != nil {
		inv.bus.Publish(events.TypeReplenishmentRequested, map[string]string{
			"request_id":  req.ID,
			"medicine_id": medicineID,
			"quantity":    strconv.Itoa(quantity),
		})
	}
	return req, nil
}

// PendingRequests returns requests not yet approved.
func (inv *Inventory) PendingRequests(ctx context.Context) ([]models.ReplenishmentRequest, error) {
	reqs, err := inv.loadRequests(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.ReplenishmentRequest
	for _, r := range reqs {
		if !r.Approved {
			out = append(out, r)
		}
	}
	return out, nil
}

// ApproveReplenishment marks the request approved and adds its quantity to
// the medicine's stock.
func (inv *Inventory) ApproveReplenishment(ctx context.Context, requestID string) error {
	reqs, err := inv.loadRequests(ctx)
	if err != nil {
		return err
	}
	for i := range reqs {
		if reqs[i].ID != requestID {
			continue
		}
		if reqs[i].Approved {
			return nil
		}

		meds, err := inv.loadMedicines(ctx)
		if err != nil {
			return err
		}
		found := false
		for j := range meds {
			if meds[j].ID == reqs[i].MedicineID {
				meds[j].Stock += reqs[i].Quantity
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: %w", reqs[i].MedicineID, ErrMedicineNotFound)
		}
		if err := inv.saveMedicines(ctx, meds); err != nil {
			return err
		}

		reqs[i].Approved = true
		if err := inv.saveRequests(ctx, reqs); err != nil {
			return err
		}
		inv.logger.Info().Str("request_id", requestID).Msg("replenishment approved")
		return nil
	}
	return fmt.Errorf("%s: %w", requestID, ErrRequestNotFound)
}
