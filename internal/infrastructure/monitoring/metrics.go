package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type LedgerMetrics struct {
	OriginationsTotal   *prometheus.CounterVec
	PaymentsTotal       *prometheus.CounterVec
	AccrualsTotal       *prometheus.CounterVec
	BillsGeneratedTotal prometheus.Counter
	DailyCycleRunsTotal *prometheus.CounterVec
	DailyCycleLoans     *prometheus.CounterVec
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credit_ledger_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credit_ledger_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Ledger = LedgerMetrics{
		OriginationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_loan_originations_total",
				Help: "Loan applications by outcome.",
			},
			[]string{"outcome"},
		),
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_payments_total",
				Help: "Payment attempts by status.",
			},
			[]string{"status"},
		),
		AccrualsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_interest_accruals_total",
				Help: "Daily interest accrual attempts by status.",
			},
			[]string{"status"},
		),
		BillsGeneratedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_ledger_bills_generated_total",
				Help: "Total number of bills generated.",
			},
		),
		DailyCycleRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_daily_cycle_runs_total",
				Help: "Daily ledger cycle runs by status.",
			},
			[]string{"status"},
		),
		DailyCycleLoans: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_daily_cycle_loans_total",
				Help: "Loans handled by the daily ledger cycle, by result.",
			},
			[]string{"result"},
		),
	}
)

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordOrigination(outcome string) {
	Ledger.OriginationsTotal.WithLabelValues(outcome).Inc()
}

func RecordPayment(status string) {
	Ledger.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordAccrual(status string) {
	Ledger.AccrualsTotal.WithLabelValues(status).Inc()
}

func RecordBillGenerated() {
	Ledger.BillsGeneratedTotal.Inc()
}

func RecordDailyCycle(status string, processed, failed int) {
	Ledger.DailyCycleRunsTotal.WithLabelValues(status).Inc()
	Ledger.DailyCycleLoans.WithLabelValues("processed").Add(float64(processed))
	Ledger.DailyCycleLoans.WithLabelValues("failed").Add(float64(failed))
}
