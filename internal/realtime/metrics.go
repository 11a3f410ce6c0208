package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saylink_realtime_events_total",
		Help: "Push attempts per event type and outcome (delivered, dropped, offline)",
	}, []string{"event", "outcome"})

	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "saylink_realtime_connections",
		Help: "Live websocket connections",
	})
)
