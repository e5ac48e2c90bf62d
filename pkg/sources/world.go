package sources

import (
	"context"
	"fmt"
	"math"

	geojson "github.com/paulmach/go.geojson"
	"github.com/sudorandom/georisk/pkg/geomap"
	"github.com/sudorandom/georisk/pkg/utils"
)

// LoadWorld reads a GeoJSON FeatureCollection from location and returns its
// outline rings.
func LoadWorld(ctx context.Context, location string) ([][]geomap.GeoPoint, error) {
	data, err := utils.ReadAll(ctx, nil, location, nil)
	if err != nil {
		return nil, fmt.Errorf("world geometry: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("world geometry: %w", err)
	}
	return Rings(fc), nil
}

// Rings flattens every Polygon and MultiPolygon ring, plus LineString and
// MultiLineString paths, into coordinate sequences. Positions with fewer
// than two values become non-finite points so the boundary builder breaks
// the ring there.
func Rings(fc *geojson.FeatureCollection) [][]geomap.GeoPoint {
	var out [][]geomap.GeoPoint
	for _, f := range fc.Features {
		g := f.Geometry
		if g == nil {
			continue
		}
		switch {
		case g.IsPolygon():
			for _, ring := range g.Polygon {
				out = append(out, toPoints(ring))
			}
		case g.IsMultiPolygon():
			for _, poly := range g.MultiPolygon {
				for _, ring := range poly {
					out = append(out, toPoints(ring))
				}
			}
		case g.IsLineString():
			out = append(out, toPoints(g.LineString))
		case g.IsMultiLineString():
			for _, line := range g.MultiLineString {
				out = append(out, toPoints(line))
			}
		}
	}
	return out
}

func toPoints(coords [][]float64) []geomap.GeoPoint {
	pts := make([]geomap.GeoPoint, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			pts[i] = geomap.GeoPoint{Lon: math.NaN(), Lat: math.NaN()}
			continue
		}
		pts[i] = geomap.GeoPoint{Lon: c[0], Lat: c[1]}
	}
	return pts
}
