// Package cli implements the role-gated console menus that drive the
// hospital services.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hospadmin/internal/billing"
	"hospadmin/internal/directory"
	"hospadmin/internal/ledger"
	"hospadmin/internal/models"
	"hospadmin/internal/outcome"
	"hospadmin/internal/pharmacy"
	"hospadmin/internal/scheduler"
	"hospadmin/internal/timeslot"
)

// Reporter exports the registry workbook on demand.
type Reporter interface {
	Export(ctx context.Context, now time.Time) (string, error)
}

// App wires the services behind the interactive menus.
type App struct {
	Directory *directory.Directory
	Scheduler *scheduler.Scheduler
	Ledger    *ledger.Ledger
	Outcomes  *outcome.Recorder
	Inventory *pharmacy.Inventory
	Billing   *billing.Service
	Reporter  Reporter

	ConsultationFee float64
	LoginLimiter    *rate.Limiter
	Logger          zerolog.Logger

	in  *bufio.Scanner
	out io.Writer
}

// New creates the console app reading from in and writing to out.
func New(in io.Reader, out io.Writer) *App {
	return &App{in: bufio.NewScanner(in), out: out}
}

// Run loops login sessions until input ends or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		a.printf("\n=== Hospital Administration ===\n")
		user, ok := a.login(ctx)
		if !ok {
			return nil
		}
		a.printf("Welcome, %s (%s)\n", user.Name, user.Role)

		switch user.Role {
		case models.RolePatient:
			a.patientMenu(ctx, user)
		case models.RoleDoctor:
			a.doctorMenu(ctx, user)
		case models.RolePharmacist:
			a.pharmacistMenu(ctx, user)
		case models.RoleAdministrator:
			a.adminMenu(ctx, user)
		}
	}
	return ctx.Err()
}

func (a *App) login(ctx context.Context) (models.User, bool) {
	for {
		id, ok := a.prompt("User ID (blank to exit): ")
		if !ok || id == "" {
			return models.User{}, false
		}
		password, ok := a.prompt("Password: ")
		if !ok {
			return models.User{}, false
		}

		if a.LoginLimiter != nil && !a.LoginLimiter.Allow() {
			a.printf("Too many login attempts, wait a moment.\n")
			continue
		}

		user, err := a.Directory.Authenticate(ctx, id, password)
		if err != nil {
			a.printf("Login failed: %v\n", err)
			continue
		}
		return user, true
	}
}

// recoverable reports whether the user should simply be re-prompted.
func recoverable(err error) bool {
	for _, target := range []error{
		scheduler.ErrInvalidDate,
		scheduler.ErrDateInPast,
		scheduler.ErrInvalidTimeSlot,
		scheduler.ErrUnknownDoctor,
		scheduler.ErrDoctorFullyBooked,
		scheduler.ErrDoctorUnavailableOnDate,
		scheduler.ErrSlotUnavailable,
		scheduler.ErrAppointmentNotFound,
		scheduler.ErrInvalidTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (a *App) patientMenu(ctx context.Context, user models.User) {
	for {
		choice, ok := a.menu("Patient",
			"Book appointment",
			"My appointments",
			"Reschedule appointment",
			"Cancel appointment",
			"My bills",
			"Pay bill",
		)
		if !ok {
			return
		}
		switch choice {
		case 1:
			a.bookAppointment(ctx, user)
		case 2:
			a.showAppointments(ctx, a.Scheduler.ListByPatient, user.ID)
		case 3:
			a.rescheduleAppointment(ctx)
		case 4:
			a.cancelAppointment(ctx)
		case 5:
			a.showBills(ctx, user.ID)
		case 6:
			a.payBill(ctx)
		}
	}
}

func (a *App) bookAppointment(ctx context.Context, user models.User) {
	doctorID, ok := a.prompt("Doctor ID: ")
	if !ok {
		return
	}
	date, ok := a.prompt("Date (DD-MM-YY): ")
	if !ok {
		return
	}
	slots, err := a.Ledger.ListAvailable(ctx, doctorID, date)
	if err == nil && len(slots) > 0 {
		a.printf("Available: %s\n", strings.Join(slots, ", "))
	}
	timeInput, ok := a.prompt("Time (HH:MM): ")
	if !ok {
		return
	}

	id, err := a.Scheduler.Schedule(ctx, user.ID, doctorID, date, timeInput)
	if err != nil {
		a.report(err)
		return
	}
	a.printf("Booked appointment %s (pending doctor confirmation).\n", id)

	if _, err := a.Billing.Issue(ctx, user.ID, id, a.ConsultationFee); err != nil {
		a.report(err)
	}
}

func (a *App) rescheduleAppointment(ctx context.Context) {
	id, ok := a.prompt("Appointment ID: ")
	if !ok {
		return
	}
	date, ok := a.prompt("New date (DD-MM-YY): ")
	if !ok {
		return
	}
	timeInput, ok := a.prompt("New time (HH:MM): ")
	if !ok {
		return
	}
	if err := a.Scheduler.Reschedule(ctx, id, date, timeInput); err != nil {
		a.report(err)
		return
	}
	a.printf("Appointment %s rescheduled.\n", id)
}

func (a *App) cancelAppointment(ctx context.Context) {
	id, ok := a.prompt("Appointment ID: ")
	if !ok {
		return
	}
	if err := a.Scheduler.Cancel(ctx, id); err != nil {
		a.report(err)
		return
	}
	a.printf("Appointment %s cancelled.\n", id)
}

func (a *App) showBills(ctx context.Context, patientID string) {
	bills, err := a.Billing.ForPatient(ctx, patientID)
	if err != nil {
		a.report(err)
		return
	}
	if len(bills) == 0 {
		a.printf("No bills.\n")
		return
	}
	for _, b := range bills {
		state := "due"
		if b.Settled {
			state = "paid"
		}
		a.printf("%s  appointment %s  %.2f  %s\n", b.ID, b.AppointmentID, b.Amount, state)
	}
}

func (a *App) payBill(ctx context.Context) {
	id, ok := a.prompt("Bill ID: ")
	if !ok {
		return
	}
	if err := a.Billing.Settle(ctx, id); err != nil {
		a.report(err)
		return
	}
	a.printf("Bill %s settled.\n", id)
}

func (a *App) doctorMenu(ctx context.Context, user models.User) {
	for {
		choice, ok := a.menu("Doctor",
			"Publish availability",
			"My appointments",
			"Confirm appointment",
			"Decline appointment",
			"Record outcome",
		)
		if !ok {
			return
		}
		switch choice {
		case 1:
			a.publishAvailability(ctx, user)
		case 2:
			a.showAppointments(ctx, a.Scheduler.ListByDoctor, user.ID)
		case 3:
			a.confirmAppointment(ctx)
		case 4:
			a.cancelAppointment(ctx)
		case 5:
			a.recordOutcome(ctx)
		}
	}
}

func (a *App) publishAvailability(ctx context.Context, user models.User) {
	date, ok := a.prompt("Date (DD-MM-YY): ")
	if !ok {
		return
	}
	fromStr, ok := a.prompt("Working from (HH:MM, on :00 or :30): ")
	if !ok {
		return
	}
	toStr, ok := a.prompt("Working until (HH:MM, on :00 or :30): ")
	if !ok {
		return
	}

	from, err := timeslot.ParseClock(fromStr)
	if err != nil {
		a.report(err)
		return
	}
	to, err := timeslot.ParseClock(toStr)
	if err != nil {
		a.report(err)
		return
	}

	added, err := a.Ledger.PublishWindow(ctx, user.ID, user.Name, date, from, to)
	if err != nil {
		a.report(err)
		return
	}
	a.printf("Published %d slots on %s.\n", added, date)
}

func (a *App) confirmAppointment(ctx context.Context) {
	id, ok := a.prompt("Appointment ID: ")
	if !ok {
		return
	}
	if err := a.Scheduler.Confirm(ctx, id); err != nil {
		a.report(err)
		return
	}
	a.printf("Appointment %s confirmed.\n", id)
}

func (a *App) recordOutcome(ctx context.Context) {
	id, ok := a.prompt("Appointment ID: ")
	if !ok {
		return
	}
	diagnosis, ok := a.prompt("Diagnosis: ")
	if !ok {
		return
	}
	prescription, ok := a.prompt("Prescription: ")
	if !ok {
		return
	}
	notes, ok := a.prompt("Notes: ")
	if !ok {
		return
	}
	o, err := a.Outcomes.Record(ctx, id, diagnosis, prescription, notes)
	if err != nil {
		a.report(err)
		return
	}
	a.printf("Outcome %s recorded, appointment completed.\n", o.ID)
}

func (a *App) pharmacistMenu(ctx context.Context, user models.User) {
	for {
		choice, ok := a.menu("Pharmacist",
			"List medicines",
			"Dispense medicine",
			"Request replenishment",
		)
		if !ok {
			return
		}
		switch choice {
		case 1:
			a.listMedicines(ctx)
		case 2:
			a.dispenseMedicine(ctx)
		case 3:
			a.requestReplenishment(ctx)
		}
	}
}

func (a *App) listMedicines(ctx context.Context) {
	meds, err := a.Inventory.List(ctx)
	if err != nil {
		a.report(err)
		return
	}
	if len(meds) == 0 {
		a.printf("No medicines on record.\n")
		return
	}
	for _, m := range meds {
		a.printf("%s  %-20s stock %4d  %.2f\n", m.ID, m.Name, m.Stock, m.Price)
	}
}

func (a *App) dispenseMedicine(ctx context.Context) {
	id, ok := a.prompt("Medicine ID: ")
	if !ok {
		return
	}
	qty, ok := a.promptInt("Quantity: ")
	if !ok {
		return
	}
	m, err := a.Inventory.Dispense(ctx, id, qty)
	if err != nil {
		a.report(err)
		return
	}
	a.printf("Dispensed %d of %s, %d left.\n", qty, m.Name, m.Stock)
}

func (a *App) requestReplenishment(ctx context.Context) {
	id, ok := a.prompt("Medicine ID: ")
	if !ok {
		return
	}
	qty, ok := a.promptInt("Quantity: ")
	if !ok {
		return
	}
	req, err := a.Inventory.RequestReplenishment(ctx, id, qty)
	if err != nil {
		a.report(err)
		return
	}
	a.printf("Replenishment request %s raised.\n", req.ID)
}

func (a *App) adminMenu(ctx context.Context, user models.User) {
	for {
		choice, ok := a.menu("Administrator",
			"List users by role",
			"Create user",
			"Delete user",
			"Appointment status",
			"Approve replenishments",
			"Export registry",
		)
		if !ok {
			return
		}
		switch choice {
		case 1:
			a.listUsers(ctx)
		case 2:
			a.createUser(ctx)
		case 3:
			a.deleteUser(ctx)
		case 4:
			a.appointmentStatus(ctx)
		case 5:
			a.approveReplenishments(ctx)
		case 6:
			a.exportRegistry(ctx)
		}
	}
}

func (a *App) listUsers(ctx context.Context) {
	roleStr, ok := a.prompt("Role (PATIENT/DOCTOR/PHARMACIST/ADMINISTRATOR): ")
	if !ok {
		return
	}
	role, err := models.ParseRole(strings.ToUpper(roleStr))
	if err != nil {
		a.report(err)
		return
	}
	users, err := a.Directory.ListByRole(ctx, role)
	if err != nil {
		a.report(err)
		return
	}
	for _, u := range users {
		a.printf("%s  %s\n", u.ID, u.Name)
	}
}

func (a *App) createUser(ctx context.Context) {
	id, ok := a.prompt("ID: ")
	if !ok {
		return
	}
	password, ok := a.prompt("Password: ")
	if !ok {
		return
	}
	roleStr, ok := a.prompt("Role: ")
	if !ok {
		return
	}
	name, ok := a.prompt("Name: ")
	if !ok {
		return
	}
	role, err := models.ParseRole(strings.ToUpper(roleStr))
	if err != nil {
		a.report(err)
		return
	}
	if err := a.Directory.Create(ctx, models.User{ID: id, Password: password, Role: role, Name: name}); err != nil {
		a.report(err)
		return
	}
	a.printf("User %s created.\n", id)
}

func (a *App) deleteUser(ctx context.Context) {
	id, ok := a.prompt("ID: ")
	if !ok {
		return
	}
	if err := a.Directory.Delete(ctx, id); err != nil {
		a.report(err)
		return
	}
	a.printf("User %s deleted.\n", id)
}

func (a *App) appointmentStatus(ctx context.Context) {
	id, ok := a.prompt("Appointment ID: ")
	if !ok {
		return
	}
	status, err := a.Scheduler.Status(ctx, id)
	if err != nil {
		a.report(err)
		return
	}
	a.printf("%s: %s\n", id, status)
}

func (a *App) approveReplenishments(ctx context.Context) {
	pending, err := a.Inventory.PendingRequests(ctx)
	if err != nil {
		a.report(err)
		return
	}
	if len(pending) == 0 {
		a.printf("No pending requests.\n")
		return
	}
	for _, req := range pending {
		a.printf("%s  medicine %s  quantity %d\n", req.ID, req.MedicineID, req.Quantity)
	}
	id, ok := a.prompt("Request ID to approve (blank to skip): ")
	if !ok || id == "" {
		return
	}
	if err := a.Inventory.ApproveReplenishment(ctx, id); err != nil {
		a.report(err)
		return
	}
	a.printf("Request %s approved.\n", id)
}

func (a *App) exportRegistry(ctx context.Context) {
	if a.Reporter == nil {
		a.printf("Reporting is not configured.\n")
		return
	}
	path, err := a.Reporter.Export(ctx, time.Now())
	if err != nil {
		a.report(err)
		return
	}
	a.printf("Registry exported to %s\n", path)
}

func (a *App) showAppointments(ctx context.Context, list func(context.Context, string) ([]models.Appointment, error), id string) {
	appts, err := list(ctx, id)
	if err != nil {
		a.report(err)
		return
	}
	if len(appts) == 0 {
		a.printf("No appointments.\n")
		return
	}
	for _, appt := range appts {
		a.printf("%s  doctor %s  patient %s  %s %s  %s\n",
			appt.ID, appt.DoctorID, appt.PatientID, appt.Date, appt.TimeSlot, appt.Status)
	}
}

// report prints recoverable validation errors as plain prompts and logs
// everything else.
func (a *App) report(err error) {
	if recoverable(err) {
		a.printf("%v\n", err)
		return
	}
	a.Logger.Error().Err(err).Msg("operation failed")
	a.printf("Operation failed, see log.\n")
}

// menu prints numbered options plus logout and returns the choice.
func (a *App) menu(title string, options ...string) (int, bool) {
	for {
		a.printf("\n--- %s ---\n", title)
		for i, opt := range options {
			a.printf("%d. %s\n", i+1, opt)
		}
		a.printf("0. Logout\n")
		n, ok := a.promptInt("> ")
		if !ok {
			return 0, false
		}
		if n == 0 {
			return 0, false
		}
		if n >= 1 && n <= len(options) {
			return n, true
		}
		a.printf("Unknown option.\n")
	}
}

func (a *App) prompt(label string) (string, bool) {
	fmt.Fprint(a.out, label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

func (a *App) promptInt(label string) (int, bool) {
	for {
		s, ok := a.prompt(label)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, true
		}
		a.printf("Enter a number.\n")
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
