package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Total number of ingestion runs, by trigger and outcome",
	}, []string{"trigger", "outcome"})

	RecordsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_records_created_total",
		Help: "Total number of rows created during reconciliation",
	}, []string{"entity"})

	RecordsUpdatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_records_updated_total",
		Help: "Total number of rows updated during reconciliation",
	}, []string{"entity"})

	RecordsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_records_skipped_total",
		Help: "Total number of remote records skipped during reconciliation",
	}, []string{"entity", "reason"})

	RemoteFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_fetch_latency_seconds",
		Help:    "Latency of full paginated collection fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})

	RemoteFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_fetch_failures_total",
		Help: "Total number of failed remote collection fetches",
	}, []string{"resource"})

	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "Total number of inbound webhooks, by outcome",
	}, []string{"outcome"})

	TenantSyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tenant_sync_failures_total",
		Help: "Total number of per-tenant ingestion failures in scheduled cycles",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
