package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudorandom/georisk/pkg/geomap"
	"github.com/sudorandom/georisk/pkg/snapshot"
	"github.com/sudorandom/georisk/pkg/sources"
)

type sourceFunc func(ctx context.Context) (*snapshot.Snapshot, error)

func (f sourceFunc) Fetch(ctx context.Context) (*snapshot.Snapshot, error) { return f(ctx) }

type countingGeo struct {
	calls atomic.Int32
	g     sources.GeoIP
	err   error
}

func (c *countingGeo) Lookup(context.Context) (sources.GeoIP, error) {
	c.calls.Add(1)
	return c.g, c.err
}

func sampleSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		GeneratedAtRaw: "2026-01-01T00:00:00.000Z",
		Headlines:      []snapshot.Headline{{Title: "Storm in the channel"}},
		Markers: []snapshot.Marker{
			{Lat: 51.5, Lon: -0.12, Kind: geomap.News},
			{Lat: 40.6, Lon: -73.7, Kind: geomap.Flight},
			{Lat: 1.29, Lon: 103.8, Kind: geomap.Ship},
			{Lat: 35.6, Lon: 139.7, Kind: geomap.News},
		},
	}
}

func newTestPool() *geomap.Pool {
	return geomap.NewPool(geomap.PoolOptions{Capacity: [geomap.NumCategories]int{4, 4, 4}, Seed: 7})
}

func TestRefreshApplies(t *testing.T) {
	pool := newTestPool()
	display := NewDisplay()
	r := NewRefresher(sourceFunc(func(context.Context) (*snapshot.Snapshot, error) {
		return sampleSnapshot(), nil
	}), pool, display)

	var applied *snapshot.Snapshot
	r.OnApplied = func(s *snapshot.Snapshot) { applied = s }

	require.NoError(t, r.Refresh(context.Background()))

	assert.Equal(t, 2, pool.Active(geomap.News))
	assert.Equal(t, 1, pool.Active(geomap.Flight))
	assert.Equal(t, 1, pool.Active(geomap.Ship))
	assert.Equal(t, "Storm in the channel", display.View().Ticker)
	require.NotNil(t, applied)
	assert.Equal(t, "2026-01-01T00:00:00.000Z", applied.GeneratedAtRaw)
	assert.Equal(t, Idle, r.State())
}

func TestRefreshFailureKeepsState(t *testing.T) {
	pool := newTestPool()
	display := NewDisplay()

	fail := false
	r := NewRefresher(sourceFunc(func(context.Context) (*snapshot.Snapshot, error) {
		if fail {
			return nil, errors.New("connection reset")
		}
		return sampleSnapshot(), nil
	}), pool, display)

	applied := 0
	r.OnApplied = func(*snapshot.Snapshot) { applied++ }

	require.NoError(t, r.Refresh(context.Background()))
	before := pool.Markers(geomap.News)
	view := display.View()

	fail = true
	assert.Error(t, r.Refresh(context.Background()))

	assert.Equal(t, before, pool.Markers(geomap.News), "positions and phases must survive a failed cycle")
	assert.Equal(t, view, display.View())
	assert.Equal(t, 1, applied)
}

func TestRefreshSkipsOverlap(t *testing.T) {
	release := make(chan struct{})
	var fetches atomic.Int32
	r := NewRefresher(sourceFunc(func(context.Context) (*snapshot.Snapshot, error) {
		fetches.Add(1)
		<-release
		return sampleSnapshot(), nil
	}), newTestPool(), NewDisplay())

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = r.Refresh(context.Background())
	}()

	require.Eventually(t, func() bool { return r.State() == Refreshing }, time.Second, time.Millisecond)
	assert.ErrorIs(t, r.Refresh(context.Background()), ErrRefreshInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, int32(1), fetches.Load())
	assert.Equal(t, Idle, r.State())
}

func TestGeoLabelAttemptedOnce(t *testing.T) {
	geo := &countingGeo{err: errors.New("rate limited")}
	display := NewDisplay()
	r := NewRefresher(sourceFunc(func(context.Context) (*snapshot.Snapshot, error) {
		return sampleSnapshot(), nil
	}), newTestPool(), display)
	r.GeoLabel = geo

	for range 3 {
		require.NoError(t, r.Refresh(context.Background()))
	}
	assert.Equal(t, int32(1), geo.calls.Load())
	assert.Empty(t, display.GeoLabel())
}

func TestGeoLabelWaitsForFirstSuccess(t *testing.T) {
	geo := &countingGeo{g: sources.GeoIP{IP: "192.0.2.1", City: "Lima", CountryName: "Peru"}}
	display := NewDisplay()

	fail := true
	r := NewRefresher(sourceFunc(func(context.Context) (*snapshot.Snapshot, error) {
		if fail {
			return nil, errors.New("timeout")
		}
		return sampleSnapshot(), nil
	}), newTestPool(), display)
	r.GeoLabel = geo

	assert.Error(t, r.Refresh(context.Background()))
	assert.Equal(t, int32(0), geo.calls.Load())

	fail = false
	require.NoError(t, r.Refresh(context.Background()))
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, int32(1), geo.calls.Load())
	assert.Equal(t, " , 192.0.2.1 , Lima , Peru", display.GeoLabel())
}

func TestRunRefreshesUntilCancelled(t *testing.T) {
	var fetches atomic.Int32
	r := NewRefresher(sourceFunc(func(context.Context) (*snapshot.Snapshot, error) {
		fetches.Add(1)
		return sampleSnapshot(), nil
	}), newTestPool(), NewDisplay())
	r.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return fetches.Load() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
