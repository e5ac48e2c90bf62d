// Package metrics holds the dashboard's prometheus instruments.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var (
	RefreshCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "georisk",
		Subsystem: "refresh",
		Name:      "cycles_total",
		Help:      "Snapshot refresh cycles by result",
	}, []string{"result"})

	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "georisk",
		Subsystem: "refresh",
		Name:      "duration_seconds",
		Help:      "Time spent fetching, decoding and applying a snapshot",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	ActiveMarkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "georisk",
		Subsystem: "pool",
		Name:      "active_markers",
		Help:      "Markers currently shown, per category",
	}, []string{"category"})

	SkippedMarkers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "georisk",
		Subsystem: "pool",
		Name:      "skipped_markers_total",
		Help:      "Snapshot markers not shown, by reason",
	}, []string{"reason"})
)

// ObserveRefresh records one refresh cycle.
func ObserveRefresh(result string, d time.Duration) {
	RefreshCycles.WithLabelValues(result).Inc()
	if result != ResultSkipped {
		RefreshDuration.Observe(d.Seconds())
	}
}

func AddSkipped(reason string, n int) {
	if n > 0 {
		SkippedMarkers.WithLabelValues(reason).Add(float64(n))
	}
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, ln)
}

func serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Str("component", "metrics").Msg("Shutdown failed")
		}
	}()

	log.Info().Str("component", "metrics").Str("addr", ln.Addr().String()).Msg("Serving metrics")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
