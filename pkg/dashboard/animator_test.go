package dashboard

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudorandom/georisk/pkg/geomap"
	"github.com/sudorandom/georisk/pkg/sources"
)

func TestOutlineOpacity(t *testing.T) {
	tests := []struct {
		t    float64
		want float64
	}{
		{0, 0.575},
		{math.Pi / 2 / 0.35, 0.65},
		{3 * math.Pi / 2 / 0.35, 0.50},
	}
	for _, tt := range tests {
		if got := OutlineOpacity(tt.t); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("OutlineOpacity(%v) = %v; want %v", tt.t, got, tt.want)
		}
	}
	for s := 0.0; s < 60; s += 0.37 {
		o := OutlineOpacity(s)
		if o < 0.5-1e-12 || o > 0.65+1e-12 {
			t.Fatalf("OutlineOpacity(%v) = %v out of range", s, o)
		}
	}
}

func TestAnimatorStep(t *testing.T) {
	pool := newTestPool()
	pool.Reconcile([]geomap.MarkerInput{
		{Point: geomap.GeoPoint{Lon: 90, Lat: 45}, Category: geomap.Ship},
	})
	display := NewDisplay()
	display.SetGeoLabel(sources.GeoIP{CountryName: "Chile"})

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)
	a := NewAnimator(pool, display, start)

	f := a.Step(start.Add(1500 * time.Millisecond))
	assert.InDelta(t, 1.5, f.T, 1e-9)
	assert.InDelta(t, OutlineOpacity(1.5), f.OutlineOpacity, 1e-12)
	assert.Equal(t, "2026-05-01 12:00:01 , Chile", f.Clock)

	phase := pool.Markers(geomap.Ship)[0].Phase
	slot := pool.Slot(geomap.Ship, 0)
	require.True(t, slot.Active)
	assert.InDelta(t, 0.8, slot.X, 1e-12)
	assert.InDelta(t, 0.45, slot.Y, 1e-12)
	assert.InDelta(t, geomap.PulseScale(1.5, phase), slot.Scale, 1e-12)

	assert.False(t, pool.Slot(geomap.Ship, 1).Active)
}

func TestAnimatorClampsBeforeStart(t *testing.T) {
	start := time.Now()
	a := NewAnimator(newTestPool(), nil, start)
	f := a.Step(start.Add(-time.Second))
	assert.Equal(t, 0.0, f.T)
	assert.False(t, strings.Contains(f.Clock, " , "))
}
