// Package geomap places geographic coordinates on the dashboard plane and
// manages the bounded pools of animated markers drawn on top of it.
package geomap

import "math"

// Plane extents of the projected world. Longitude maps onto [-WScale, WScale]
// and latitude onto [-HScale, HScale].
const (
	WScale = 1.6
	HScale = 0.9
)

type GeoPoint struct {
	Lon, Lat float64
}

type PlanePoint struct {
	X, Y float64
}

// Finite reports whether both coordinates are usable numbers.
func (p GeoPoint) Finite() bool {
	return !math.IsNaN(p.Lon) && !math.IsNaN(p.Lat) && !math.IsInf(p.Lon, 0) && !math.IsInf(p.Lat, 0)
}

// Project maps a coordinate onto the plane with a plain linear scaling of
// longitude and latitude. This is not a spherical projection: there is no
// pole handling and longitude is expected to already be in [-180, 180].
func Project(p GeoPoint) PlanePoint {
	return PlanePoint{
		X: (p.Lon / 180) * WScale,
		Y: (p.Lat / 90) * HScale,
	}
}

// Bounds returns the plane rectangle covered by the full lon/lat domain.
func Bounds() (min, max PlanePoint) {
	return PlanePoint{-WScale, -HScale}, PlanePoint{WScale, HScale}
}
