// Package metrics defines and registers all custom Prometheus metrics for the
// identity system. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register themselves with the default registry via promauto; the
// router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginsTotal counts successful authentications.
// Label:
//   - origin: the path that produced the login event ("password", "yandex",
//     "provisioning", "admin")
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of successful authentications, by origin.",
	},
	[]string{"origin"},
)

// AccountsCreatedTotal counts account creations.
// Label:
//   - via: "register", "provisioning", or "admin"
var AccountsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_created_total",
		Help:      "Total number of accounts created, by creation path.",
	},
	[]string{"via"},
)

// ── Notification pipeline metrics ─────────────────────────────────────────────

// LinkMessagesPublishedTotal counts linking messages offered to the broker.
// Label:
//   - result: "ok" or "error" (a publish error never fails account creation)
var LinkMessagesPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "link_messages_published_total",
		Help:      "Total number of linking messages published to the queue, by result.",
	},
	[]string{"result"},
)

// NotificationsProcessedTotal counts consumed linking messages by outcome.
// Label:
//   - result: "sent", "malformed", "unresolved", or "send_failed"
var NotificationsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_processed_total",
		Help:      "Total number of linking messages processed by the worker, by outcome.",
	},
	[]string{"result"},
)

// NotificationProcessingDuration measures one message's processing time from
// dequeue to acknowledgment.
var NotificationProcessingDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_processing_duration_seconds",
		Help:      "Duration of linking message processing from dequeue to ack.",
		Buckets:   prometheus.DefBuckets,
	},
)
