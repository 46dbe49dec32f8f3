package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	BetsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bets_accepted_total",
			Help: "Bets debited and registered",
		},
	)

	BetsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bets_rejected_total",
			Help: "Bets rejected before or after debit",
		},
		[]string{"reason"},
	)

	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_calls_total",
			Help: "Platform settlement calls by kind and result",
		},
		[]string{"kind", "status"},
	)

	RoundsFinished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rounds_finished_total",
			Help: "Rounds driven to the finished state",
		},
	)

	CriticalIncidents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "critical_incidents_total",
			Help: "Financial drift conditions requiring operator attention",
		},
	)
)

func Init() {
	prometheus.MustRegister(BetsAccepted)
	prometheus.MustRegister(BetsRejected)
	prometheus.MustRegister(Settlements)
	prometheus.MustRegister(RoundsFinished)
	prometheus.MustRegister(CriticalIncidents)
}
