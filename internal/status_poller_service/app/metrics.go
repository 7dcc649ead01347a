package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollRefreshCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "status_poller",
			Name:      "refreshes_total",
			Help:      "Total number of poll-driven status refreshes.",
		},
		[]string{"channel", "outcome"},
	)

	dlrEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "status_poller",
			Name:      "dlr_events_processed_total",
			Help:      "Total number of DLR events processed.",
		},
		[]string{"provider_name", "outcome"},
	)
)
