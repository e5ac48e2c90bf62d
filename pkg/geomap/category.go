package geomap

import (
	"fmt"
	"strings"
)

// Category selects the capacity bucket and visual style of a marker.
type Category int

const (
	News Category = iota
	Flight
	Ship

	NumCategories = 3
)

// Categories lists every category in bucket order.
var Categories = [NumCategories]Category{News, Flight, Ship}

func (c Category) String() string {
	switch c {
	case News:
		return "news"
	case Flight:
		return "flight"
	case Ship:
		return "ship"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

func (c Category) Valid() bool {
	return c >= 0 && c < NumCategories
}

// ParseCategory converts a snapshot "kind" string into a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "news":
		return News, nil
	case "flight":
		return Flight, nil
	case "ship":
		return Ship, nil
	}
	return 0, fmt.Errorf("unknown marker kind %q", s)
}
