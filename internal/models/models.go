// Package models defines the record types shared across the hospital
// administration services and their flat-file row codecs.
package models

import (
	"fmt"
	"strconv"
)

// Role identifies what a directory user is allowed to do.
type Role string

const (
	RolePatient       Role = "PATIENT"
	RoleDoctor        Role = "DOCTOR"
	RolePharmacist    Role = "PHARMACIST"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// ParseRole maps a stored role field to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RolePharmacist, RoleAdministrator:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusCompleted AppointmentStatus = "COMPLETED"

	// StatusUnknown is the sentinel returned for lookups that miss.
	// It is never stored.
	StatusUnknown AppointmentStatus = "UNKNOWN"
)

// appointmentTransitions lists the allowed status moves. CANCELLED and
// COMPLETED are terminal.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusPending},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether an appointment may move from one status
// to another. Reschedule is modeled as PENDING -> PENDING.
func CanTransition(from, to AppointmentStatus) bool {
	for _, s := range appointmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SlotStatus is the availability state of a published slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotBooked    SlotStatus = "BOOKED"
)

// User is a row of the user directory: id, password, role, name.
type User struct {
	ID       string
	Password string
	Role     Role
	Name     string
}

// Appointment is one scheduled consultation.
type Appointment struct {
	ID        string
	DoctorID  string
	PatientID string
	Date      string // DD-MM-YY
	TimeSlot  string // HH:MM-HH:MM half-hour range
	Status    AppointmentStatus
}

// AvailabilitySlot is one published (doctor, date, timeslot) row.
type AvailabilitySlot struct {
	DoctorID   string
	DoctorName string
	Date       string // DD-MM-YY
	TimeSlot   string // HH:MM-HH:MM half-hour range
	Status     SlotStatus
}

// Key returns the identifying triple of the slot.
func (s AvailabilitySlot) Key() SlotKey {
	return SlotKey{DoctorID: s.DoctorID, Date: s.Date, TimeSlot: s.TimeSlot}
}

// SlotKey identifies a slot independent of its status.
type SlotKey struct {
	DoctorID string
	Date     string
	TimeSlot string
}

// Outcome is the clinical result recorded against a completed appointment.
type Outcome struct {
	ID            string // uuid
	AppointmentID string
	Diagnosis     string
	Prescription  string
	Notes         string
}

// Medicine is one inventory row.
type Medicine struct {
	ID    string
	Name  string
	Stock int
	Price float64
}

// Bill is one billing row.
type Bill struct {
	ID            string
	PatientID     string
	AppointmentID string
	Amount        float64
	Settled       bool
}

// ReplenishmentRequest is a pharmacist's restock request.
type ReplenishmentRequest struct {
	ID         string
	MedicineID string
	Quantity   int
	Approved   bool
}

// Row codecs. Field order matches the flat-file layouts consumed by the
// original record files; see the store package for I/O.

func (u User) Row() []string {
	return []string{u.ID, u.Password, string(u.Role), u.Name}
}

func UserFromRow(row []string) (User, error) {
	if len(row) != 4 {
		return User{}, fmt.Errorf("user row: want 4 fields, got %d", len(row))
	}
	role, err := ParseRole(row[2])
	if err != nil {
		return User{}, fmt.Errorf("user row %s: %w", row[0], err)
	}
	return User{ID: row[0], Password: row[1], Role: role, Name: row[3]}, nil
}

func (a Appointment) Row() []string {
	return []string{a.ID, a.DoctorID, a.PatientID, a.Date, a.TimeSlot, string(a.Status)}
}

func AppointmentFromRow(row []string) (Appointment, error) {
	if len(row) != 6 {
		return Appointment{}, fmt.Errorf("appointment row: want 6 fields, got %d", len(row))
	}
	switch AppointmentStatus(row[5]) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
	default:
		return Appointment{}, fmt.Errorf("appointment row %s: unknown status %q", row[0], row[5])
	}
	return Appointment{
		ID:        row[0],
		DoctorID:  row[1],
		PatientID: row[2],
		Date:      row[3],
		TimeSlot:  row[4],
		Status:    AppointmentStatus(row[5]),
	}, nil
}

func (s AvailabilitySlot) Row() []string {
	return []string{s.DoctorID, s.DoctorName, s.Date, s.TimeSlot, string(s.Status)}
}

func SlotFromRow(row []string) (AvailabilitySlot, error) {
	if len(row) != 5 {
		return AvailabilitySlot{}, fmt.Errorf("availability row: want 5 fields, got %d", len(row))
	}
	switch SlotStatus(row[4]) {
	case SlotAvailable, SlotBooked:
	default:
		return AvailabilitySlot{}, fmt.Errorf("availability row %s: unknown status %q", row[0], row[4])
	}
	return AvailabilitySlot{
		DoctorID:   row[0],
		DoctorName: row[1],
		Date:       row[2],
		TimeSlot:   row[3],
		Status:     SlotStatus(row[4]),
	}, nil
}

func (o Outcome) Row() []string {
	return []string{o.ID, o.AppointmentID, o.Diagnosis, o.Prescription, o.Notes}
}

func OutcomeFromRow(row []string) (Outcome, error) {
	if len(row) != 5 {
		return Outcome{}, fmt.Errorf("outcome row: want 5 fields, got %d", len(row))
	}
	return Outcome{
		ID:            row[0],
		AppointmentID: row[1],
		Diagnosis:     row[2],
		Prescription:  row[3],
		Notes:         row[4],
	}, nil
}

func (m Medicine) Row() []string {
	return []string{m.ID, m.Name, strconv.Itoa(m.Stock), strconv.FormatFloat(m.Price, 'f', 2, 64)}
}

func MedicineFromRow(row []string) (Medicine, error) {
	if len(row) != 4 {
		return Medicine{}, fmt.Errorf("medicine row: want 4 fields, got %d", len(row))
	}
	stock, err := strconv.Atoi(row[2])
	if err != nil {
		return Medicine{}, fmt.Errorf("medicine row %s: stock: %w", row[0], err)
	}
	price, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return Medicine{}, fmt.Errorf("medicine row %s: price: %w", row[0], err)
	}
	return Medicine{ID: row[0], Name: row[1], Stock: stock, Price: price}, nil
}

func (b Bill) Row() []string {
	return []string{b.ID, b.PatientID, b.AppointmentID, strconv.FormatFloat(b.Amount, 'f', 2, 64), strconv.FormatBool(b.Settled)}
}

func BillFromRow(row []string) (Bill, error) {
	if len(row) != 5 {
		return Bill{}, fmt.Errorf("bill row: want 5 fields, got %d", len(row))
	}
	amount, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return Bill{}, fmt.Errorf("bill row %s: amount: %w", row[0], err)
	}
	settled, err := strconv.ParseBool(row[4])
	if err != nil {
		return Bill{}, fmt.Errorf("bill row %s: settled: %w", row[0], err)
	}
	return Bill{ID: row[0], PatientID: row[1], AppointmentID: row[2], Amount: amount, Settled: settled}, nil
}

func (r ReplenishmentRequest) Row() []string {
	return []string{r.ID, r.MedicineID, strconv.Itoa(r.Quantity), strconv.FormatBool(r.Approved)}
}

func ReplenishmentFromRow(row []string) (ReplenishmentRequest, error) {
	if len(row) != 4 {
		return ReplenishmentRequest{}, fmt.Errorf("replenishment row: want 4 fields, got %d", len(row))
	}
	qty, err := strconv.Atoi(row[2])
	if err != nil {
		return ReplenishmentRequest{}, fmt.Errorf("replenishment row %s: quantity: %w", row[0], err)
	}
	approved, err := strconv.ParseBool(row[3])
	if err != nil {
		return ReplenishmentRequest{}, fmt.Errorf("replenishment row %s: approved: %w", row[0], err)
	}
	return ReplenishmentRequest{ID: row[0], MedicineID: row[1], Quantity: qty, Approved: approved}, nil
}
