package scheduler

import "errors"

// Validation failures are recoverable: the interactive caller re-prompts.
// Storage failures abort the operation without mutating state.
var (
	ErrInvalidDate             = errors.New("invalid date, expected DD-MM-YY")
	ErrDateInPast              = errors.New("date is in the past")
	ErrInvalidTimeSlot         = errors.New("invalid time slot, expected HH:MM")
	ErrUnknownDoctor           = errors.New("unknown doctor")
	ErrDoctorFullyBooked       = errors.New("doctor has no available slots")
	ErrDoctorUnavailableOnDate = errors.New("doctor has no available slots on that date")
	ErrSlotUnavailable         = errors.New("time slot is not available")
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrInvalidTransition       = errors.New("invalid appointment status transition")
)
