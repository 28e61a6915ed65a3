package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK          = "ok"
	outcomeTimeout     = "timeout"
	outcomeCanceled    = "canceled"
	outcomeFetchError  = "fetch_error"
	outcomeDecodeError = "decode_error"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_fetch_total",
		Help: "Feed fetches by source and outcome",
	}, []string{"source", "outcome"})

	fetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_fetch_attempts_total",
		Help: "HTTP requests issued per source, retries included",
	}, []string{"source"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_fetch_duration_seconds",
		Help:    "Time from first request to decoded feed or failure",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
	}, []string{"source"})
)
