package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "queueaway"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Appointments booked, by business.",
		},
		[]string{"business"},
	)

	messagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_sent_total",
			Help:      "Chat messages sent.",
		},
	)

	activeSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscriptions",
			Help:      "Open live subscriptions by collection.",
		},
		[]string{"collection"},
	)

	subscriptionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_subscription_errors_total",
			Help:      "Snapshot query failures by collection.",
		},
		[]string{"collection"},
	)

	notificationsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Push notifications by outcome.",
		},
		[]string{"outcome"},
	)

	wsSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_sessions",
			Help:      "Connected websocket sessions.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookingsCreated,
			messagesSent,
			activeSubscriptions,
			subscriptionErrors,
			notificationsDelivered,
			wsSessions,
		)
	})
}

// ObserveHTTP records one finished request.
func ObserveHTTP(route, status string, d time.Duration) {
	httpRequests.WithLabelValues(route, status).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func IncBooking(business string) {
	bookingsCreated.WithLabelValues(business).Inc()
}

func IncMessageSent() {
	messagesSent.Inc()
}

// SubscriptionOpened and SubscriptionClosed track live subscriptions per collection.
func SubscriptionOpened(collection string) {
	activeSubscriptions.WithLabelValues(collection).Inc()
}

func SubscriptionClosed(collection string) {
	activeSubscriptions.WithLabelValues(collection).Dec()
}

func IncSubscriptionError(collection string) {
	subscriptionErrors.WithLabelValues(collection).Inc()
}

// IncNotification counts a notification delivery attempt; outcome is "sent" or "failed".
func IncNotification(outcome string) {
	notificationsDelivered.WithLabelValues(outcome).Inc()
}

func SessionOpened() { wsSessions.Inc() }

func SessionClosed() { wsSessions.Dec() }
