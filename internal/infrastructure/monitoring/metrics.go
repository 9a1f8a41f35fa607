package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type LoanMetrics struct {
	Created    prometheus.Counter
	Returned   prometheus.Counter
	Operations *prometheus.CounterVec
}

type ReminderMetrics struct {
	Sent   prometheus.Counter
	Failed prometheus.Counter
	Runs   *prometheus.CounterVec
}

type NotificationMetrics struct {
	Delivered *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "library_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Loans = LoanMetrics{
		Created: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_loans_created_total",
				Help: "Total number of loans successfully created.",
			},
		),
		Returned: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_loans_returned_total",
				Help: "Total number of loans successfully returned.",
			},
		),
		Operations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_loan_operations_total",
				Help: "Loan service operations by outcome.",
			},
			[]string{"operation", "status"},
		),
	}

	Reminders = ReminderMetrics{
		Sent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_reminders_sent_total",
				Help: "Total number of overdue reminders delivered and flagged.",
			},
		),
		Failed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_reminders_failed_total",
				Help: "Total number of overdue reminders that failed and will be retried.",
			},
		),
		Runs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_reminder_runs_total",
				Help: "Overdue reminder job runs by outcome.",
			},
			[]string{"status"},
		),
	}

	Notifications = NotificationMetrics{
		Delivered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_notifications_total",
				Help: "Outbound notifications by kind and outcome.",
			},
			[]string{"kind", "status"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordLoanOperation(operation, status string) {
	Loans.Operations.WithLabelValues(operation, status).Inc()
	if status != "success" {
		return
	}
	switch operation {
	case "create":
		Loans.Created.Inc()
	case "return":
		Loans.Returned.Inc()
	}
}

func RecordReminderSent() {
	Reminders.Sent.Inc()
}

func RecordReminderFailed() {
	Reminders.Failed.Inc()
}

func RecordReminderRun(status string) {
	Reminders.Runs.WithLabelValues(status).Inc()
}

func RecordNotification(kind, status string) {
	Notifications.Delivered.WithLabelValues(kind, status).Inc()
}

type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

var HTTP = HTTPMetrics{
	Requests: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status_code"},
	),
	Duration: promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "library_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	),
}

func RecordHTTPRequest(method, route, statusCode string, duration time.Duration) {
	HTTP.Requests.WithLabelValues(method, route, statusCode).Inc()
	HTTP.Duration.WithLabelValues(method, route, statusCode).Observe(duration.Seconds())
}
