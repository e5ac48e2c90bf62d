// Package snapshot decodes the periodically refreshed dashboard document and
// provides the sources it is fetched from.
package snapshot

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sudorandom/georisk/pkg/geomap"
	"github.com/tidwall/gjson"
)

// ErrMalformed is returned when a document cannot be used at all. Individual
// bad marker entries do not produce it; they are skipped.
var ErrMalformed = errors.New("malformed snapshot")

type Headline struct {
	Title  string
	Region string
}

type Marker struct {
	Lat, Lon float64
	Kind     geomap.Category
	Title    string
}

// Markets holds USD prices. Nil fields were absent from the document.
type Markets struct {
	GoldUSD  *float64
	BTCUSD   *float64
	WTIUSD   *float64
	BrentUSD *float64
}

type Snapshot struct {
	GeneratedAt    time.Time
	GeneratedAtRaw string
	Headlines      []Headline
	Markers        []Marker
	Markets        Markets
	// Skipped counts marker entries dropped during decoding.
	Skipped int
}

// MarkerInputs converts the markers into pool reconciliation input,
// preserving document order.
func (s *Snapshot) MarkerInputs() []geomap.MarkerInput {
	out := make([]geomap.MarkerInput, len(s.Markers))
	for i, m := range s.Markers {
		out[i] = geomap.MarkerInput{
			Point:    geomap.GeoPoint{Lon: m.Lon, Lat: m.Lat},
			Category: m.Kind,
		}
	}
	return out
}

// Decode parses a snapshot document. Markers are read from "markers", or the
// older "map_points" key when the former is absent. Marker entries with a
// missing or non-numeric coordinate or an unknown kind are skipped; a missing
// kind means news.
func Decode(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: document is not an object", ErrMalformed)
	}

	s := &Snapshot{}

	if ga := root.Get("generated_at"); ga.Exists() {
		s.GeneratedAtRaw = ga.String()
		if t, err := time.Parse(time.RFC3339, s.GeneratedAtRaw); err == nil {
			s.GeneratedAt = t
		}
	}

	markers := root.Get("markers")
	if !markers.Exists() {
		markers = root.Get("map_points")
	}
	if markers.Exists() && markers.Type != gjson.Null {
		if !markers.IsArray() {
			return nil, fmt.Errorf("%w: markers is not an array", ErrMalformed)
		}
		markers.ForEach(func(_, v gjson.Result) bool {
			m, ok := decodeMarker(v)
			if !ok {
				s.Skipped++
				return true
			}
			s.Markers = append(s.Markers, m)
			return true
		})
	}

	if hl := root.Get("headlines"); hl.IsArray() {
		hl.ForEach(func(_, v gjson.Result) bool {
			title := v.Get("title")
			if title.Type != gjson.String || title.Str == "" {
				return true
			}
			s.Headlines = append(s.Headlines, Headline{Title: title.Str, Region: v.Get("region").String()})
			return true
		})
	}

	if mk := root.Get("markets"); mk.IsObject() {
		s.Markets = Markets{
			GoldUSD:  price(mk.Get("gold_usd")),
			BTCUSD:   price(mk.Get("btc_usd")),
			WTIUSD:   price(mk.Get("wti_usd")),
			BrentUSD: price(mk.Get("brent_usd")),
		}
	}

	return s, nil
}

func decodeMarker(v gjson.Result) (Marker, bool) {
	if !v.IsObject() {
		return Marker{}, false
	}
	lat, lon := v.Get("lat"), v.Get("lon")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return Marker{}, false
	}
	kind := geomap.News
	if k := v.Get("kind"); k.Exists() {
		if k.Type != gjson.String {
			return Marker{}, false
		}
		c, err := geomap.ParseCategory(k.Str)
		if err != nil {
			return Marker{}, false
		}
		kind = c
	}
	return Marker{Lat: lat.Float(), Lon: lon.Float(), Kind: kind, Title: v.Get("title").String()}, true
}

func price(v gjson.Result) *float64 {
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
