package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_completed_total",
		Help: "Settlements applied, by transaction kind",
	}, []string{"kind"})

	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_refunds_total",
		Help: "Refunds applied",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook events received, by type and outcome",
	}, []string{"type", "result"})

	SignatureFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signature_failures_total",
		Help: "Payment and webhook signature verification failures",
	})
)
