// Package utils opens dashboard data locations, which may be http(s) URLs or
// local file paths.
package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("file not found on server")

// IsRemote reports whether location should be fetched over HTTP.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Open returns a reader for location. Remote locations are fetched with the
// given client (http.DefaultClient when nil) and the optional header values;
// anything else is opened as a local file.
func Open(ctx context.Context, client *http.Client, location string, header http.Header) (io.ReadCloser, error) {
	if !IsRemote(location) {
		path := strings.TrimPrefix(location, "file://")
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return f, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing response body")
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}
	return resp.Body, nil
}

// ReadAll opens location and reads it to the end.
func ReadAll(ctx context.Context, client *http.Client, location string, header http.Header) ([]byte, error) {
	r, err := Open(ctx, client, location, header)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Str("location", location).Msg("Error closing reader")
		}
	}()
	return io.ReadAll(r)
}

// WithQuery returns location with key=value added to its query string.
func WithQuery(location, key, value string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
