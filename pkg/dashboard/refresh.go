package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sudorandom/georisk/pkg/geomap"
	"github.com/sudorandom/georisk/pkg/metrics"
	"github.com/sudorandom/georisk/pkg/snapshot"
	"github.com/sudorandom/georisk/pkg/sources"
)

// DefaultRefreshInterval is how often the snapshot is re-fetched.
const DefaultRefreshInterval = 60 * time.Second

// ErrRefreshInProgress is returned by Refresh when another refresh has not
// finished yet. The request is dropped, not queued.
var ErrRefreshInProgress = errors.New("refresh already in progress")

type State int32

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// Refresher periodically fetches the snapshot and applies it to the marker
// pool and the display. A failed cycle leaves both exactly as they were.
//
// GeoLabel, Interval and OnApplied must be set before Run or Refresh is
// first called.
type Refresher struct {
	source  snapshot.Source
	pool    *geomap.Pool
	display *Display

	// GeoLabel, when set, is asked once for the viewer's location after the
	// first successful refresh. A failure is not retried.
	GeoLabel  sources.GeoLabelSource
	Interval  time.Duration
	OnApplied func(*snapshot.Snapshot)

	running atomic.Bool
	geoOnce sync.Once
}

func NewRefresher(source snapshot.Source, pool *geomap.Pool, display *Display) *Refresher {
	return &Refresher{
		source:   source,
		pool:     pool,
		display:  display,
		Interval: DefaultRefreshInterval,
	}
}

func (r *Refresher) State() State {
	if r.running.Load() {
		return Refreshing
	}
	return Idle
}

// Run refreshes once immediately and then on every interval until ctx is
// cancelled. Failed cycles are logged and counted; the loop keeps going.
func (r *Refresher) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	_ = r.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.Refresh(ctx)
		}
	}
}

// Refresh runs one fetch, decode and apply cycle.
func (r *Refresher) Refresh(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		log.Debug().Str("component", "refresh").Msg("Refresh already running, skipping")
		metrics.ObserveRefresh(metrics.ResultSkipped, 0)
		return ErrRefreshInProgress
	}
	defer r.running.Store(false)

	start := time.Now()
	snap, err := r.source.Fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Str("component", "refresh").Msg("Snapshot refresh failed, keeping previous state")
		metrics.ObserveRefresh(metrics.ResultFailure, time.Since(start))
		return err
	}

	stats := r.pool.Reconcile(snap.MarkerInputs())
	r.display.Apply(snap)
	r.record(snap, stats, time.Since(start))

	r.geoOnce.Do(func() { r.lookupGeoLabel(ctx) })

	if r.OnApplied != nil {
		r.OnApplied(snap)
	}
	return nil
}

func (r *Refresher) record(snap *snapshot.Snapshot, stats geomap.ReconcileStats, d time.Duration) {
	metrics.ObserveRefresh(metrics.ResultSuccess, d)
	var dropped, rejected int
	for _, c := range geomap.Categories {
		metrics.ActiveMarkers.WithLabelValues(c.String()).Set(float64(stats.Accepted[c]))
		dropped += stats.Dropped[c]
		rejected += stats.Rejected[c]
	}
	metrics.AddSkipped("invalid_entry", snap.Skipped)
	metrics.AddSkipped("over_capacity", dropped)
	metrics.AddSkipped("non_finite", rejected)
	metrics.AddSkipped("unknown_category", stats.Unknown)

	log.Info().
		Str("component", "refresh").
		Str("generated_at", snap.GeneratedAtRaw).
		Int("headlines", len(snap.Headlines)).
		Int("markers", stats.TotalAccepted()).
		Int("skipped", snap.Skipped+dropped+rejected+stats.Unknown).
		Dur("took", d).
		Msg("Snapshot applied")
}

func (r *Refresher) lookupGeoLabel(ctx context.Context) {
	if r.GeoLabel == nil {
		return
	}
	g, err := r.GeoLabel.Lookup(ctx)
	if err != nil {
		log.Warn().Err(err).Str("component", "geoip").Msg("Geolocation lookup failed, label stays empty")
		return
	}
	r.display.SetGeoLabel(g)
	log.Info().Str("component", "geoip").Str("label", g.Label()).Msg("Geolocation resolved")
}
