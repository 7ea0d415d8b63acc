package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwire_messages_total",
			Help: "Message lifecycle counter by stage and direction",
		},
		[]string{"stage", "direction"}, // queued|sent|delivered|error|blocked|received , out|in
	)

	DripSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwire_drip_sends_total",
			Help: "Drip sequencer dispatch outcomes per tick",
		},
		[]string{"outcome"}, // sent|duplicate|skipped|paused|error
	)

	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadwire_identity_claims_total",
			Help: "Sender identity claim outcomes",
		},
		[]string{"outcome"}, // held|claimed|none|contention
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		MessagesTotal,
		DripSendsTotal,
		ClaimsTotal,
	)
}
