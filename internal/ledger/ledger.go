// Package ledger owns the doctor availability records: the collection of
// (doctor, date, timeslot) rows the scheduler books against.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"hospadmin/internal/events"
	"hospadmin/internal/models"
	"hospadmin/internal/store"
	"hospadmin/internal/timeslot"
)

// ErrSlotNotFound reports a status flip against a slot that was never
// published. The ledger performs no write in that case.
var ErrSlotNotFound = errors.New("slot not found")

// EventPublisher notifies subscribers of availability events.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// Ledger reads and rewrites the whole availability collection on every
// mutating call, matching the flat-file semantics of the record store.
type Ledger struct {
	store  store.RecordStore
	bus    EventPublisher
	logger zerolog.Logger
}

// New creates a ledger over the given availability store. bus may be nil.
func New(st store.RecordStore, bus EventPublisher, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  st,
		bus:    bus,
		logger: logger.With().Str("component", "ledger").Logger(),
	}
}

func (l *Ledger) published(doctorID, date string, count int) {
	if l.bus == nil {
		return
	}
	for i := 0; i < count; i++ {
		l.bus.Publish(events.TypeAvailabilityPublished, map[string]string{
			"doctor_id": doctorID,
			"date":      date,
		})
	}
}

func (l *Ledger) load(ctx context.Context) ([]models.AvailabilitySlot, error) {
	records, err := l.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	slots := make([]models.AvailabilitySlot, 0, len(records))
	for _, rec := range records {
		slot, err := models.SlotFromRow(rec)
		if err != nil {
			return nil, fmt.Errorf("decode availability: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (l *Ledger) save(ctx context.Context, slots []models.AvailabilitySlot) error {
	records := make([]store.Record, len(slots))
	for i, s := range slots {
		records[i] = s.Row()
	}
	if err := l.store.Save(ctx, records); err != nil {
		return fmt.Errorf("save availability: %w", err)
	}
	return nil
}

// Publish appends one AVAILABLE row per slot. Rows are appended as given;
// publishing the same slot twice creates two rows.
func (l *Ledger) Publish(ctx context.Context, doctorID, doctorName, date string, slots []string) error {
	if _, err := timeslot.ParseDate(date); err != nil {
		return err
	}
	for _, ts := range slots {
		if !timeslot.ValidRange(ts) {
			return fmt.Errorf("invalid time slot %q", ts)
		}
	}

	existing, err := l.load(ctx)
	if err != nil {
		return err
	}
	for _, ts := range slots {
		existing = append(existing, models.AvailabilitySlot{
			DoctorID:   doctorID,
			DoctorName: doctorName,
			Date:       date,
			TimeSlot:   ts,
			Status:     models.SlotAvailable,
		})
	}
	if err := l.save(ctx, existing); err != nil {
		return err
	}

	l.logger.Info().
		Str("doctor_id", doctorID).
		Str("date", date).
		Int("slots", len(slots)).
		Msg("availability published")
	l.published(doctorID, date, len(slots))
	return nil
}

// PublishWindow expands a working window into half-hour slots and publishes
// them, skipping any slot already present for the exact same key so a
// doctor republishing a day does not create conflicting duplicates.
func (l *Ledger) PublishWindow(ctx context.Context, doctorID, doctorName, date string, from, to timeslot.Clock) (int, error) {
	if _, err := timeslot.ParseDate(date); err != nil {
		return 0, err
	}
	ranges, err := timeslot.HalfHourRanges(from, to)
	if err != nil {
		return 0, err
	}

	existing, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[models.SlotKey]bool, len(existing))
	for _, s := range existing {
		known[s.Key()] = true
	}

	added := 0
	for _, ts := range ranges {
		key := models.SlotKey{DoctorID: doctorID, Date: date, TimeSlot: ts}
		if known[key] {
			l.logger.Debug().
				Str("doctor_id", doctorID).
				Str("date", date).
				Str("slot", ts).
				Msg("slot already published, skipped")
			continue
		}
		existing = append(existing, models.AvailabilitySlot{
			DoctorID:   doctorID,
			DoctorName: doctorName,
			Date:       date,
			TimeSlot:   ts,
			Status:     models.SlotAvailable,
		})
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := l.save(ctx, existing); err != nil {
		return 0, err
	}

	l.logger.Info().
		Str("doctor_id", doctorID).
		Str("date", date).
		Int("slots", added).
		Msg("availability window published")
	l.published(doctorID, date, added)
	return added, nil
}

// FindSlot returns the first row matching the key, or nil.
func (l *Ledger) FindSlot(ctx context.Context, doctorID, date, ts string) (*models.AvailabilitySlot, error) {
	slots, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].DoctorID == doctorID && slots[i].Date == date && slots[i].TimeSlot == ts {
			return &slots[i], nil
		}
	}
	return nil, nil
}

// HasAnyAvailable reports whether the doctor has at least one AVAILABLE row.
func (l *Ledger) HasAnyAvailable(ctx context.Context, doctorID string) (bool, error) {
	slots, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.DoctorID == doctorID && s.Status == models.SlotAvailable {
			return true, nil
		}
	}
	return false, nil
}

// IsAvailableOn reports whether the doctor has an AVAILABLE row on date.
func (l *Ledger) IsAvailableOn(ctx context.Context, doctorID, date string) (bool, error) {
	slots, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.DoctorID == doctorID && s.Date == date && s.Status == models.SlotAvailable {
			return true, nil
		}
	}
	return false, nil
}

// ListAvailable returns the AVAILABLE time slots for doctor+date in file
// order.
func (l *Ledger) ListAvailable(ctx context.Context, doctorID, date string) ([]string, error) {
	slots, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range slots {
		if s.DoctorID == doctorID && s.Date == date && s.Status == models.SlotAvailable {
			out = append(out, s.TimeSlot)
		}
	}
	return out, nil
}

// SetStatus flips the status of the matching slot. A missing slot is
// reported with ErrSlotNotFound and nothing is written.
func (l *Ledger) SetStatus(ctx context.Context, doctorID, date, ts string, status models.SlotStatus) error {
	return l.SetStatuses(ctx, []StatusChange{{
		Key:    models.SlotKey{DoctorID: doctorID, Date: date, TimeSlot: ts},
		Status: status,
	}})
}

// StatusChange pairs a slot key with its target status.
type StatusChange struct {
	Key    models.SlotKey
	Status models.SlotStatus
}

// SetStatuses applies several status flips in one rewrite pass. If any key
// has no matching row, no write occurs at all.
func (l *Ledger) SetStatuses(ctx context.Context, changes []StatusChange) error {
	slots, err := l.load(ctx)
	if err != nil {
		return err
	}

	for _, ch := range changes {
		found := false
		for i := range slots {
			if slots[i].Key() == ch.Key {
				slots[i].Status = ch.Status
				found = true
				break
			}
		}
		if !found {
			l.logger.Warn().
				Str("doctor_id", ch.Key.DoctorID).
				Str("date", ch.Key.Date).
				Str("slot", ch.Key.TimeSlot).
				Msg("slot not found, no status change written")
			return fmt.Errorf("%s %s %s: %w", ch.Key.DoctorID, ch.Key.Date, ch.Key.TimeSlot, ErrSlotNotFound)
		}
	}

	return l.save(ctx, slots)
}
