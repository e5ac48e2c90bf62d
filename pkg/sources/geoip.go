package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/biter777/countries"
	"github.com/oschwald/maxminddb-golang"
	"github.com/rs/zerolog/log"
	"github.com/sudorandom/georisk/pkg/utils"
)

type GeoIP struct {
	IP          string `json:"ip"`
	CountryName string `json:"country_name"`
	City        string `json:"city"`
}

func (g GeoIP) Empty() bool {
	return g.IP == "" && g.CountryName == "" && g.City == ""
}

// Label renders the non-empty parts as " , ip , city , country", ready to be
// appended to the clock text. An empty GeoIP yields "".
func (g GeoIP) Label() string {
	var bits []string
	for _, s := range []string{g.IP, g.City, g.CountryName} {
		if s != "" {
			bits = append(bits, s)
		}
	}
	if len(bits) == 0 {
		return ""
	}
	return " , " + strings.Join(bits, " , ")
}

// GeoLabelSource resolves where the viewer is. It is best effort.
type GeoLabelSource interface {
	Lookup(ctx context.Context) (GeoIP, error)
}

// IPAPISource asks ipapi.co for the caller's public address and location.
type IPAPISource struct {
	URL    string
	Client *http.Client
}

func NewIPAPISource(url string, timeout time.Duration) *IPAPISource {
	if url == "" {
		url = IPAPIURL
	}
	return &IPAPISource{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *IPAPISource) Lookup(ctx context.Context) (GeoIP, error) {
	h := http.Header{}
	h.Set("Cache-Control", "no-store")
	r, err := utils.Open(ctx, s.Client, s.URL, h)
	if err != nil {
		return GeoIP{}, fmt.Errorf("geoip: %w", err)
	}
	defer r.Close()

	var body struct {
		GeoIP
		Error  bool   `json:"error"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return GeoIP{}, fmt.Errorf("geoip: %w", err)
	}
	if body.Error {
		return GeoIP{}, fmt.Errorf("geoip: %s", body.Reason)
	}
	return body.GeoIP, nil
}

// MMDBSource resolves city and country for an address from a local MaxMind
// format database.
type MMDBSource struct {
	reader *maxminddb.Reader
}

func OpenMMDB(path string) (*MMDBSource, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mmdb: %w", err)
	}
	return &MMDBSource{reader: r}, nil
}

func (m *MMDBSource) Close() error {
	return m.reader.Close()
}

type mmdbRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	CountryCode string `maxminddb:"country_code"`
}

func (m *MMDBSource) LookupIP(ip string) (GeoIP, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return GeoIP{}, fmt.Errorf("invalid ip %q", ip)
	}
	var rec mmdbRecord
	if err := m.reader.Lookup(parsed, &rec); err != nil {
		return GeoIP{}, err
	}
	g := GeoIP{IP: ip, City: rec.City.Names["en"], CountryName: rec.Country.Names["en"]}
	if g.CountryName == "" {
		code := rec.Country.ISOCode
		if code == "" {
			code = rec.CountryCode
		}
		g.CountryName = CountryName(code)
	}
	return g, nil
}

// CountryName turns an ISO 3166 code into a display name, returning the code
// itself when it is not recognised.
func CountryName(code string) string {
	if code == "" {
		return ""
	}
	name := countries.ByName(code).String()
	if name == "Unknown" {
		return code
	}
	if idx := strings.Index(name, " ("); idx != -1 {
		name = name[:idx]
	}
	return name
}

// IPLookup is anything that can locate a single address.
type IPLookup interface {
	LookupIP(ip string) (GeoIP, error)
}

// EnrichedSource asks Primary first and fills in a missing city or country
// from DB using the address Primary reported.
type EnrichedSource struct {
	Primary GeoLabelSource
	DB      IPLookup
}

func (e *EnrichedSource) Lookup(ctx context.Context) (GeoIP, error) {
	g, err := e.Primary.Lookup(ctx)
	if err != nil {
		return GeoIP{}, err
	}
	if e.DB == nil || g.IP == "" || (g.City != "" && g.CountryName != "") {
		return g, nil
	}
	local, err := e.DB.LookupIP(g.IP)
	if err != nil {
		log.Debug().Err(err).Str("component", "geoip").Str("ip", g.IP).Msg("Local lookup failed")
		return g, nil
	}
	if g.City == "" {
		g.City = local.City
	}
	if g.CountryName == "" {
		g.CountryName = local.CountryName
	}
	return g, nil
}

// StaticSource always reports the same location.
type StaticSource struct {
	GeoIP GeoIP
}

var errEmptyStatic = errors.New("geoip: no static location configured")

func (s StaticSource) Lookup(context.Context) (GeoIP, error) {
	if s.GeoIP.Empty() {
		return GeoIP{}, errEmptyStatic
	}
	return s.GeoIP, nil
}

// NewLabelSource picks the geolocation label source. A non-empty static
// location wins over ipapi. When db is set, missing city or country fields
// are filled from it.
func NewLabelSource(static GeoIP, url string, timeout time.Duration, db IPLookup) GeoLabelSource {
	var primary GeoLabelSource = NewIPAPISource(url, timeout)
	if !static.Empty() {
		primary = StaticSource{GeoIP: static}
	}
	if db == nil {
		return primary
	}
	return &EnrichedSource{Primary: primary, DB: db}
}
