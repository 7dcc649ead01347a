package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesAcceptedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracking",
			Name:      "messages_accepted_total",
			Help:      "Total number of messages accepted for sending.",
		},
		[]string{"channel"},
	)

	providerSendCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracking",
			Name:      "provider_send_total",
			Help:      "Total number of provider send attempts.",
		},
		[]string{"provider", "outcome"},
	)

	statusRefreshCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracking",
			Name:      "status_refreshes_total",
			Help:      "Total number of status refresh operations by resulting status.",
		},
		[]string{"status"},
	)
)
