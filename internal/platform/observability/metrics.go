package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_requests_total",
		Help: "The total number of media requests by service",
	}, []string{"service"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediabot_cache_hits_total",
		Help: "Requests served from the file_id cache without downloading",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediabot_cache_misses_total",
		Help: "Requests that required a fresh download",
	})

	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_downloads_total",
		Help: "Download outcomes by service and status",
	}, []string{"service", "status"})

	DownloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediabot_download_duration_seconds",
		Help:    "Duration of media downloads by service",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"service"})

	FailoverAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_failover_attempts_total",
		Help: "Failed download attempts by service, route and error code",
	}, []string{"service", "attempt", "code"})

	SendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_sends_total",
		Help: "Media deliveries to Telegram by kind and status",
	}, []string{"kind", "status"})

	TranscodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_transcodes_total",
		Help: "Transcode runs by outcome (converted, skipped, failed)",
	}, []string{"outcome"})

	StaleDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediabot_stale_dropped_total",
		Help: "Updates dropped because the message was older than the cutoff",
	})

	TasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediabot_tasks_in_flight",
		Help: "Number of media tasks currently being processed",
	})

	ScratchFilesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediabot_scratch_files_removed_total",
		Help: "Leftover scratch files removed by the cleanup watchdog",
	})

	ProxyUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mediabot_proxy_up",
		Help: "Whether a configured proxy passed its last health check (0=down, 1=up)",
	}, []string{"proxy"})

	TranscriptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_transcriptions_total",
		Help: "Voice note transcription outcomes",
	}, []string{"status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediabot_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	InlineQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediabot_inline_queries_total",
		Help: "Inline query outcomes (answered, empty, failed)",
	}, []string{"status"})
)
