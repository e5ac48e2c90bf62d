package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoIPLabel(t *testing.T) {
	tests := []struct {
		in   GeoIP
		want string
	}{
		{GeoIP{}, ""},
		{GeoIP{IP: "1.2.3.4"}, " , 1.2.3.4"},
		{GeoIP{IP: "1.2.3.4", City: "Lisbon", CountryName: "Portugal"}, " , 1.2.3.4 , Lisbon , Portugal"},
		{GeoIP{CountryName: "Portugal"}, " , Portugal"},
	}
	for _, tt := range tests {
		if got := tt.in.Label(); got != tt.want {
			t.Errorf("Label(%+v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestIPAPISource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/limited" {
			_, _ = w.Write([]byte(`{"error": true, "reason": "RateLimited"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ip": "203.0.113.9", "city": "Osaka", "country_name": "Japan", "org": "x"}`))
	}))
	defer srv.Close()

	s := NewIPAPISource(srv.URL+"/json/", time.Second)
	g, err := s.Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GeoIP{IP: "203.0.113.9", City: "Osaka", CountryName: "Japan"}, g)

	_, err = NewIPAPISource(srv.URL+"/limited", time.Second).Lookup(context.Background())
	assert.ErrorContains(t, err, "RateLimited")
}

type fakeLookup struct {
	g   GeoIP
	err error
}

func (f fakeLookup) LookupIP(ip string) (GeoIP, error) { return f.g, f.err }

func TestEnrichedSource(t *testing.T) {
	primary := StaticSource{GeoIP: GeoIP{IP: "198.51.100.1"}}

	e := &EnrichedSource{Primary: primary, DB: fakeLookup{g: GeoIP{City: "Paris", CountryName: "France"}}}
	g, err := e.Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GeoIP{IP: "198.51.100.1", City: "Paris", CountryName: "France"}, g)

	e = &EnrichedSource{Primary: primary, DB: fakeLookup{err: errors.New("not found")}}
	g, err = e.Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GeoIP{IP: "198.51.100.1"}, g)

	_, err = (&EnrichedSource{Primary: StaticSource{}}).Lookup(context.Background())
	assert.Error(t, err)
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "", CountryName(""))
	assert.Equal(t, "Germany", CountryName("DE"))
	assert.Equal(t, "QQ", CountryName("QQ"))
}

func TestNewLabelSource(t *testing.T) {
	static := GeoIP{IP: "203.0.113.5", CountryName: "Kenya"}

	s := NewLabelSource(static, "", time.Second, nil)
	g, err := s.Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, static, g)

	s = NewLabelSource(static, "", time.Second, fakeLookup{g: GeoIP{City: "Nairobi", CountryName: "Kenya"}})
	g, err = s.Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GeoIP{IP: "203.0.113.5", City: "Nairobi", CountryName: "Kenya"}, g)

	assert.IsType(t, &IPAPISource{}, NewLabelSource(GeoIP{}, "", time.Second, nil))
}
