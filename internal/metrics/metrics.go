package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)

	// Reactions counts like/dislike/comment attempts by outcome: "ok" or a
	// rejection reason.
	Reactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "posts_reactions_total", Help: "Reaction attempts by kind and outcome"},
		[]string{"kind", "outcome"},
	)
	PostsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "posts_created_total", Help: "Posts created"},
	)
	// PostsExpired counts Live->Expired flips; source is "access" or "sweep".
	PostsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "posts_expired_total", Help: "Posts transitioned to Expired"},
		[]string{"source"},
	)
	NotificationsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_handled_total", Help: "Post events handled by the notifier"},
		[]string{"key", "result"},
	)
)

func MustRegister() {
	prometheus.MustRegister(
		RequestsTotal, ReqDuration, InFlight,
		Reactions, PostsCreated, PostsExpired, NotificationsHandled,
	)
}
