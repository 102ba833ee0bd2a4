// Package metrics exposes Prometheus counters for the hospital services.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"hospadmin/internal/events"
)

var (
	once sync.Once

	appointmentOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hospadmin",
			Name:      "appointment_operations_total",
			Help:      "Count of appointment lifecycle operations by kind.",
		},
		[]string{"operation"},
	)

	slotsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hospadmin",
			Name:      "availability_slots_published_total",
			Help:      "Count of availability slots published by doctors.",
		},
	)

	billsSettled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hospadmin",
			Name:      "bills_settled_total",
			Help:      "Count of bills settled.",
		},
	)

	reportsExported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hospadmin",
			Name:      "reports_exported_total",
			Help:      "Count of registry reports exported to Excel.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(appointmentOps, slotsPublished, billsSettled, reportsExported)
	})
}

// Subscribe wires the counters to the event bus.
func Subscribe(bus *events.Bus) {
	for eventType, op := range map[string]string{
		events.TypeAppointmentScheduled:   "scheduled",
		events.TypeAppointmentRescheduled: "rescheduled",
		events.TypeAppointmentCancelled:   "cancelled",
		events.TypeAppointmentCompleted:   "completed",
	} {
		op := op
		bus.Subscribe(eventType, func(events.Event) {
			appointmentOps.WithLabelValues(op).Inc()
		})
	}
	bus.Subscribe(events.TypeAvailabilityPublished, func(events.Event) {
		slotsPublished.Inc()
	})
	bus.Subscribe(events.TypeBillSettled, func(events.Event) {
		billsSettled.Inc()
	})
}

// IncReportExported counts one registry export.
func IncReportExported() {
	reportsExported.Inc()
}
