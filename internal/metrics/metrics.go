// Package metrics exposes Prometheus counters for the matchmaking platform.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build isolated instances without
// colliding on the global default.
type Metrics struct {
	registry *prometheus.Registry

	QueueJoined      *prometheus.CounterVec
	QueueWithdrawn   prometheus.Counter
	QueueExpired     prometheus.Counter
	MatchesFormed    *prometheus.CounterVec
	FormationRaces   prometheus.Counter
	DraftAssignments prometheus.Counter
	NotifyDelivered  prometheus.Counter
	NotifyFailures   prometheus.Counter
	PriceRefreshes   prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QueueJoined: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fantasy_queue_joined_total",
			Help: "Queue entries created, by user class.",
		}, []string{"class"}),
		QueueWithdrawn: factory.NewCounter(prometheus.CounterOpts{
			Name: "fantasy_queue_withdrawn_total",
			Help: "Queue entries explicitly withdrawn by their owner.",
		}),
		QueueExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "fantasy_queue_expired_total",
			Help: "Queue entries removed by the maintenance sweep.",
		}),
		MatchesFormed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fantasy_matches_formed_total",
			Help: "PvP matches formed, by user class.",
		}, []string{"class"}),
		FormationRaces: factory.NewCounter(prometheus.CounterOpts{
			Name: "fantasy_formation_races_total",
			Help: "Match formation attempts that lost a claim race.",
		}),
		DraftAssignments: factory.NewCounter(prometheus.CounterOpts{
			Name: "fantasy_draft_assignments_total",
			Help: "League draft-position assignment runs completed.",
		}),
		NotifyDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "fantasy_notifications_delivered_total",
			Help: "Match-found notifications handed to a transport.",
		}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "fantasy_notifications_failed_total",
			Help: "Match-found notifications that no transport accepted.",
		}),
		PriceRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "fantasy_price_refreshes_total",
			Help: "Coin price refresh sweeps completed.",
		}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
