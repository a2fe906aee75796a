package main

import (
	"go.uber.org/zap"

	"songwarehouse/internal/metrics"
	"songwarehouse/internal/metrics/datadog"
	"songwarehouse/internal/metrics/prompush"
)

// setupMetrics installs the named backend and returns the func that flushes
// it. Backend failures leave the nop backend in place.
func setupMetrics(backend, pushURL, ddAddr, job string, log *zap.Logger) func() {
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", zap.Error(err))
		}
	}
	switch backend {
	case "pushgateway":
		b, err := prompush.NewBackend(job, pushURL)
		if err != nil {
			log.Warn("metrics: pushgateway backend unavailable; using nop", zap.Error(err))
			return func() {}
		}
		metrics.SetBackend(b)
		log.Info("metrics: enabled", zap.String("backend", backend), zap.String("url", pushURL), zap.String("job", job))
		return flush
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       ddAddr,
			Namespace:  "songwarehouse.",
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.Warn("metrics: datadog backend unavailable; using nop", zap.Error(err))
			return func() {}
		}
		metrics.SetBackend(b)
		log.Info("metrics: enabled", zap.String("backend", backend), zap.String("addr", ddAddr), zap.String("job", job))
		return flush
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	default:
		log.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", backend))
		return func() {}
	}
}
