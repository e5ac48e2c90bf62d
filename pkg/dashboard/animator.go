package dashboard

import (
	"math"
	"time"

	"github.com/sudorandom/georisk/pkg/geomap"
)

// ClockLayout formats the wall clock shown next to the ticker.
const ClockLayout = "2006-01-02 15:04:05"

const (
	outlineOpacityBase  = 0.50
	outlineOpacitySwing = 0.15
	outlineOmega        = 0.35
)

// Frame is the per-frame animation state.
type Frame struct {
	// T is seconds since the animator started.
	T              float64
	OutlineOpacity float64
	Clock          string
}

// OutlineOpacity is the breathing opacity of the world outline at time t.
func OutlineOpacity(t float64) float64 {
	return outlineOpacityBase + outlineOpacitySwing*(0.5+0.5*math.Sin(t*outlineOmega))
}

// Animator advances the time-driven parts of the scene. It only reads the
// marker set; positions and phases are owned by the refresh loop.
type Animator struct {
	pool    *geomap.Pool
	display *Display
	start   time.Time
}

func NewAnimator(pool *geomap.Pool, display *Display, start time.Time) *Animator {
	return &Animator{pool: pool, display: display, start: start}
}

// Step computes the frame for now and writes the current pulse transforms
// into the pool's slots.
func (a *Animator) Step(now time.Time) Frame {
	t := now.Sub(a.start).Seconds()
	if t < 0 {
		t = 0
	}
	a.pool.Tick(t)

	clock := now.Format(ClockLayout)
	if a.display != nil {
		clock += a.display.GeoLabel()
	}
	return Frame{T: t, OutlineOpacity: OutlineOpacity(t), Clock: clock}
}
