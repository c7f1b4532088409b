// Package metrics exposes the service counters on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal counts reservation decisions by outcome.
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mina",
		Name:      "reservations_total",
		Help:      "Reservation decisions by outcome.",
	}, []string{"outcome"})

	// PaymentEventsTotal counts reconciled payment webhook events by the
	// provider status they carried.
	PaymentEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mina",
		Name:      "payment_events_total",
		Help:      "Payment webhook events by provider status.",
	}, []string{"status"})

	// SubscriptionActivationsTotal counts subscription activations.
	SubscriptionActivationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mina",
		Name:      "subscription_activations_total",
		Help:      "Subscriptions activated by paid payments.",
	})

	// WorkerJobsTotal counts processed jobs by result.
	WorkerJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mina",
		Name:      "worker_jobs_total",
		Help:      "Worker job executions by result.",
	}, []string{"result"})
)
