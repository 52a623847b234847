package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	wizardSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geauxclean",
			Name:      "wizard_submissions_total",
			Help:      "Booking wizard submissions by outcome.",
		},
		[]string{"outcome"},
	)

	taskMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geauxclean",
			Name:      "task_moves_total",
			Help:      "Task board drag-and-drop moves by target column.",
		},
		[]string{"status"},
	)

	feedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geauxclean",
			Name:      "feed_events_total",
			Help:      "Change feed events received by table and type.",
		},
		[]string{"table", "type"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geauxclean",
			Name:      "notifications_total",
			Help:      "Simulated notifications by kind.",
		},
		[]string{"kind"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(wizardSubmissions, taskMoves, feedEvents, notifications)
	})
}

// IncWizardSubmission increments the submission counter for an outcome
// label (submitted, auth_failed, store_failed).
func IncWizardSubmission(outcome string) {
	wizardSubmissions.WithLabelValues(outcome).Inc()
}

// IncTaskMove increments the move counter for a target column.
func IncTaskMove(status string) {
	taskMoves.WithLabelValues(status).Inc()
}

// IncFeedEvent increments the feed counter for a table/type pair.
func IncFeedEvent(table, eventType string) {
	feedEvents.WithLabelValues(table, eventType).Inc()
}

// IncNotification increments the notification counter for a kind.
func IncNotification(kind string) {
	notifications.WithLabelValues(kind).Inc()
}
