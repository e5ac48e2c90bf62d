package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrNoSnapshot is returned by StreamSource before any valid document has
// arrived.
var ErrNoSnapshot = errors.New("no snapshot received yet")

// StreamSource keeps the latest snapshot pushed over a websocket feed. The
// refresh loop still drives reconciliation on its own period; the stream only
// replaces what Fetch returns.
type StreamSource struct {
	url    string
	dialer *websocket.Dialer

	mu       sync.Mutex
	latest   *Snapshot
	received time.Time

	minBackoff, maxBackoff time.Duration
}

func NewStreamSource(url string) *StreamSource {
	return &StreamSource{
		url:        url,
		dialer:     websocket.DefaultDialer,
		minBackoff: 1 * time.Second,
		maxBackoff: 60 * time.Second,
	}
}

func (s *StreamSource) Fetch(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, ErrNoSnapshot
	}
	return s.latest, nil
}

// Received returns when the latest snapshot arrived.
func (s *StreamSource) Received() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func (s *StreamSource) store(snap *Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.received = time.Now()
	s.mu.Unlock()
}

// Listen connects to the feed and reconnects with exponential backoff until
// ctx is cancelled.
func (s *StreamSource) Listen(ctx context.Context) {
	logger := log.With().Str("component", "stream").Str("url", s.url).Logger()
	backoff := s.minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		logger.Info().Msg("Connecting to snapshot stream")
		c, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			logger.Warn().Err(err).Dur("retry", backoff).Msg("Dial error")
			if !sleep(ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
			continue
		}
		backoff = s.minBackoff

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = c.Close()
			case <-done:
			}
		}()

		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn().Err(err).Msg("Read error, reconnecting")
				}
				break
			}
			snap, err := Decode(message)
			if err != nil {
				logger.Warn().Err(err).Msg("Dropping malformed snapshot message")
				continue
			}
			s.store(snap)
		}
		close(done)
		_ = c.Close()
		if !sleep(ctx, s.minBackoff) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
