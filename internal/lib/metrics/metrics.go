// Package metrics регистрирует счётчики prometheus движка.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_payments_created_total",
		Help: "Payment links created through the gateway.",
	})

	PaymentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_payment_outcomes_total",
		Help: "Results of payment confirmation attempts.",
	}, []string{"outcome"})

	OrphanRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_orphan_repairs_total",
		Help: "Paid payments without subscription re-activated by the sweep.",
	})

	LoopIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_loop_iterations_total",
		Help: "Scheduler loop iterations by result.",
	}, []string{"loop", "result"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_notifications_total",
		Help: "Queued notifications by delivery result.",
	}, []string{"result"})

	ExperienceResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_experience_resets_total",
		Help: "Experience resets caused by inactivity.",
	})

	ExpiryWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_expiry_warnings_total",
		Help: "Subscription expiry warnings queued.",
	})
)
