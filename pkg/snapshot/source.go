package snapshot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sudorandom/georisk/pkg/utils"
)

// Source fetches the current snapshot. Implementations must be safe to call
// from the refresh goroutine while other goroutines read the dashboard.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// HTTPSource polls a snapshot document over HTTP. Every request carries a
// fresh t=<unix ms> query parameter and Cache-Control: no-store so that
// intermediate caches never serve an old document.
type HTTPSource struct {
	URL    string
	Client *http.Client
	Now    func() time.Time
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Fetch(ctx context.Context) (*Snapshot, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc, err := utils.WithQuery(s.URL, "t", strconv.FormatInt(now().UnixMilli(), 10))
	if err != nil {
		return nil, fmt.Errorf("snapshot url: %w", err)
	}
	h := http.Header{}
	h.Set("Cache-Control", "no-store")
	data, err := utils.ReadAll(ctx, s.Client, loc, h)
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch: %w", err)
	}
	return Decode(data)
}

// FileSource re-reads a local snapshot file on every fetch.
type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(ctx context.Context) (*Snapshot, error) {
	data, err := utils.ReadAll(ctx, nil, s.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot read: %w", err)
	}
	return Decode(data)
}

// NewSource picks a source implementation from the location scheme:
// ws(s):// streams, http(s):// polls, anything else is a local file.
// Stream sources are started with ctx.
func NewSource(ctx context.Context, location string, timeout time.Duration) Source {
	switch {
	case strings.HasPrefix(location, "ws://"), strings.HasPrefix(location, "wss://"):
		s := NewStreamSource(location)
		go s.Listen(ctx)
		return s
	case utils.IsRemote(location):
		return NewHTTPSource(location, timeout)
	default:
		return &FileSource{Path: location}
	}
}
