package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AccountsActivated      prometheus.Counter
	AccountsSuspended      prometheus.Counter
	DocumentsReviewed      *prometheus.CounterVec
	NotificationsSent      prometheus.Counter
	NotificationsFailed    prometheus.Counter
	NotificationsExhausted prometheus.Counter
	DocumentsSwept         prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AccountsActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradegate_accounts_activated_total",
			Help: "Accounts that completed onboarding and became active",
		}),
		AccountsSuspended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradegate_accounts_suspended_total",
			Help: "Accounts suspended by a document rejection or admin action",
		}),
		DocumentsReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tradegate_documents_reviewed_total",
			Help: "Admin document decisions by outcome",
		}, []string{"decision"}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradegate_notifications_sent_total",
			Help: "Notifications delivered by the transport",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradegate_notifications_failed_total",
			Help: "Notification delivery attempts that failed",
		}),
		NotificationsExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradegate_notifications_exhausted_total",
			Help: "Notifications that exhausted their retry budget",
		}),
		DocumentsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tradegate_documents_swept_total",
			Help: "Rejected documents removed by the retention sweep",
		}),
	}
}
