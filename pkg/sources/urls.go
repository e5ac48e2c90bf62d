// Package sources loads the external data the dashboard is built from: world
// boundary geometry, the viewer's geolocation label and market quotes.
package sources

const (
	IPAPIURL      = "https://ipapi.co/json/"
	StooqQuoteURL = "https://stooq.com/q/l/"

	DefaultWorldPath    = "public/world.geojson"
	DefaultSnapshotPath = "public/snapshot.json"
)
