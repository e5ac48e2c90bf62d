// Package dashboard ties the geomap pool and the snapshot sources to an
// ebiten window: the refresh loop, the animation clock, the text overlays
// and frame capture.
package dashboard

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sudorandom/georisk/pkg/snapshot"
	"github.com/sudorandom/georisk/pkg/sources"
)

// TickerSeparator joins headline titles in the scrolling ticker.
const TickerSeparator = " • "

// Pill is one market readout, e.g. GOLD 75,102 $/kg.
type Pill struct {
	Key   string
	Value string
	Unit  string
}

func (p Pill) String() string {
	return p.Key + " " + p.Value + " " + p.Unit
}

// DisplayView is a copy of the text state for one frame.
type DisplayView struct {
	Ticker      string
	Pills       []Pill
	GeneratedAt time.Time
	GeoLabel    string
	// Version increases on every Apply so the renderer can tell when the
	// ticker text changed.
	Version uint64
}

// Display holds the text shown around the map. It is written by the refresh
// goroutine and read by the render loop.
type Display struct {
	mu   sync.RWMutex
	view DisplayView
}

func NewDisplay() *Display {
	return &Display{}
}

// Apply replaces the ticker, market pills and generated_at with the values
// from s. The geolocation label is kept.
func (d *Display) Apply(s *snapshot.Snapshot) {
	ticker := TickerText(s.Headlines)
	pills := MarketPills(s.Markets)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.view.Ticker = ticker
	d.view.Pills = pills
	d.view.GeneratedAt = s.GeneratedAt
	d.view.Version++
}

func (d *Display) SetGeoLabel(g sources.GeoIP) {
	label := g.Label()
	d.mu.Lock()
	d.view.GeoLabel = label
	d.mu.Unlock()
}

func (d *Display) GeoLabel() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view.GeoLabel
}

func (d *Display) View() DisplayView {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v := d.view
	v.Pills = append([]Pill(nil), d.view.Pills...)
	return v
}

// TickerText joins the headline titles in document order.
func TickerText(headlines []snapshot.Headline) string {
	titles := make([]string, len(headlines))
	for i, h := range headlines {
		titles[i] = h.Title
	}
	return strings.Join(titles, TickerSeparator)
}

// MarketPills renders the present market values as whole numbers with
// thousands separators. Absent values produce no pill.
func MarketPills(m snapshot.Markets) []Pill {
	items := []struct {
		key  string
		val  *float64
		unit string
	}{
		{"GOLD", m.GoldUSD, "$/kg"},
		{"BTC", m.BTCUSD, "$"},
		{"WTI", m.WTIUSD, "$/bbl"},
		{"BRENT", m.BrentUSD, "$/bbl"},
	}
	var out []Pill
	for _, it := range items {
		if it.val == nil || math.IsNaN(*it.val) || math.IsInf(*it.val, 0) {
			continue
		}
		out = append(out, Pill{Key: it.key, Value: humanize.Comma(int64(math.Round(*it.val))), Unit: it.unit})
	}
	return out
}
