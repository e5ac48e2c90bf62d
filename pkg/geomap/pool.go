package geomap

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Pulse parameters for the per-frame scale of a marker.
const (
	PulseBase      = 0.5
	PulseAmplitude = 0.9
	PulseOmega     = 2.2
)

// DefaultCapacity is the number of render slots per category.
const DefaultCapacity = 400

type MarkerInput struct {
	Point    GeoPoint
	Category Category
}

// Marker is an active point in the pool. Phase is fixed at reconciliation
// so markers sharing a category pulse out of step.
type Marker struct {
	Position PlanePoint
	Category Category
	Phase    float64
}

// Instance is the per-slot transform handed to the renderer. The zero value
// is a collapsed slot.
type Instance struct {
	X, Y   float64
	Scale  float64
	Active bool
}

type PoolOptions struct {
	// Capacity per category. Zero entries fall back to DefaultCapacity.
	Capacity [NumCategories]int
	// Seed for the phase generator. Zero seeds from the clock.
	Seed uint64
}

// ReconcileStats reports what happened to each category during Reconcile.
type ReconcileStats struct {
	Accepted [NumCategories]int
	Dropped  [NumCategories]int
	Rejected [NumCategories]int
	// Unknown counts inputs whose category is out of range.
	Unknown int
}

func (s ReconcileStats) TotalAccepted() int {
	return s.Accepted[News] + s.Accepted[Flight] + s.Accepted[Ship]
}

type bucket struct {
	markers []Marker
	slots   []Instance
	active  int
}

// Pool holds a fixed arena of marker slots per category. Reconcile replaces
// the whole marker set and Tick animates it; both take the pool lock so a
// reader sees either the old or the new set, never a mix.
type Pool struct {
	mu      sync.RWMutex
	rng     *rand.Rand
	buckets [NumCategories]bucket
}

func NewPool(opts PoolOptions) *Pool {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	p := &Pool{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for i := range p.buckets {
		c := opts.Capacity[i]
		if c <= 0 {
			c = DefaultCapacity
		}
		p.buckets[i] = bucket{
			markers: make([]Marker, c),
			slots:   make([]Instance, c),
		}
	}
	return p
}

// Reconcile clears the pool and activates the incoming markers. Within a
// category, entries past the capacity are dropped in arrival order: the
// earliest entries win. Phases are drawn fresh on every call.
func (p *Pool) Reconcile(in []MarkerInput) ReconcileStats {
	var stats ReconcileStats

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.buckets {
		p.buckets[i].active = 0
	}

	for _, m := range in {
		if !m.Category.Valid() {
			stats.Unknown++
			continue
		}
		c := m.Category
		if !m.Point.Finite() {
			stats.Rejected[c]++
			continue
		}
		b := &p.buckets[c]
		if b.active >= len(b.slots) {
			stats.Dropped[c]++
			continue
		}
		pos := Project(m.Point)
		b.markers[b.active] = Marker{
			Position: pos,
			Category: c,
			Phase:    p.rng.Float64() * 2 * math.Pi,
		}
		b.slots[b.active] = Instance{X: pos.X, Y: pos.Y, Scale: PulseBase, Active: true}
		b.active++
		stats.Accepted[c]++
	}

	for i := range p.buckets {
		b := &p.buckets[i]
		for j := b.active; j < len(b.slots); j++ {
			b.markers[j] = Marker{}
			b.slots[j] = Instance{}
		}
	}

	if stats.Unknown > 0 {
		log.Warn().Str("component", "pool").Int("unknown", stats.Unknown).Msg("Skipped markers with an unknown category")
	}
	for _, c := range Categories {
		if stats.Rejected[c] > 0 {
			log.Warn().Str("component", "pool").Stringer("category", c).Int("rejected", stats.Rejected[c]).Msg("Skipped markers with non-finite coordinates")
		}
		if stats.Dropped[c] > 0 {
			log.Debug().Str("component", "pool").Stringer("category", c).Int("dropped", stats.Dropped[c]).Int("capacity", len(p.buckets[c].slots)).Msg("Truncated markers over capacity")
		}
	}
	return stats
}

// PulseScale is the visual scale of a marker with the given phase at time t.
func PulseScale(t, phase float64) float64 {
	return PulseBase + PulseAmplitude*(0.5+0.5*math.Sin(PulseOmega*t+phase))
}

// Tick writes the pulse transform of every active marker into its slot.
func (p *Pool) Tick(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.buckets {
		b := &p.buckets[i]
		for j := 0; j < b.active; j++ {
			m := b.markers[j]
			b.slots[j] = Instance{
				X:      m.Position.X,
				Y:      m.Position.Y,
				Scale:  PulseScale(t, m.Phase),
				Active: true,
			}
		}
	}
}

// Active returns the number of active markers in a category.
func (p *Pool) Active(c Category) int {
	if !c.Valid() {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.buckets[c].active
}

func (p *Pool) Capacity(c Category) int {
	if !c.Valid() {
		return 0
	}
	return len(p.buckets[c].slots)
}

// Markers returns a copy of the active markers of a category in slot order.
func (p *Pool) Markers(c Category) []Marker {
	if !c.Valid() {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	b := &p.buckets[c]
	out := make([]Marker, b.active)
	copy(out, b.markers[:b.active])
	return out
}

// Slot returns the transform stored in slot i of a category.
func (p *Pool) Slot(c Category, i int) Instance {
	if !c.Valid() {
		return Instance{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	b := &p.buckets[c]
	if i < 0 || i >= len(b.slots) {
		return Instance{}
	}
	return b.slots[i]
}

// AppendInstances appends the transforms of every active slot in a category.
func (p *Pool) AppendInstances(dst []Instance, c Category) []Instance {
	if !c.Valid() {
		return dst
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	b := &p.buckets[c]
	return append(dst, b.slots[:b.active]...)
}

// AppendAll appends the active transforms of every category under one lock,
// so the result never mixes buckets from two different reconciliations.
func (p *Pool) AppendAll(dst *[NumCategories][]Instance) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := range p.buckets {
		b := &p.buckets[i]
		dst[i] = append(dst[i], b.slots[:b.active]...)
	}
}
