package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		iso  string
		want int
	}{
		{"PT4M13S", 253},
		{"PT1H2M3S", 3723},
		{"PT45S", 45},
		{"PT2H", 7200},
		{"PT10M", 600},
		{"PT0S", 0},
		{"", 0},
		{"P", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.iso, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseISODuration(tt.iso))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{253, "04:13"},
		{3723, "01:02:03"},
		{45, "00:45"},
		{3600, "01:00:00"},
		{0, "Unknown"},
		{-5, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
		})
	}
}

func TestVideoInfoViaAPI(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc123", r.URL.Query().Get("id"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"items": [{"snippet": {"title": "Grinder Review"}, "contentDetails": {"duration": "PT4M13S"}}]}`)
	}))
	defer api.Close()

	c := NewClient("test-key", zap.NewNop(), WithBaseURLs(api.URL, api.URL))

	info, err := c.VideoInfo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Grinder Review", info.Title)
	assert.Equal(t, "04:13", info.Duration)
	assert.Equal(t, 253, info.DurationSeconds)
}

func TestVideoInfoAPIRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"items": [{"snippet": {"title": "Recovered"}, "contentDetails": {"duration": "PT10S"}}]}`)
	}))
	defer api.Close()

	c := NewClient("test-key", zap.NewNop(), WithBaseURLs(api.URL, api.URL))

	info, err := c.VideoInfo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Recovered", info.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestVideoInfoAPIClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer api.Close()

	c := NewClient("test-key", zap.NewNop(), WithBaseURLs(api.URL, api.URL))

	_, err := c.VideoInfo(context.Background(), "abc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestVideoInfoNotFound(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": []}`)
	}))
	defer api.Close()

	c := NewClient("test-key", zap.NewNop(), WithBaseURLs(api.URL, api.URL))

	_, err := c.VideoInfo(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or private")
}

func TestVideoInfoScrapeFallbackWithoutKey(t *testing.T) {
	watch := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/watch", r.URL.Path)
		assert.Equal(t, "abc123", r.URL.Query().Get("v"))
		fmt.Fprint(w, `<html><head><title>Grinder Review - YouTube</title></head><body></body></html>`)
	}))
	defer watch.Close()

	c := NewClient("", zap.NewNop(), WithBaseURLs(watch.URL, watch.URL))

	info, err := c.VideoInfo(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Grinder Review", info.Title)
	assert.Equal(t, "Unknown", info.Duration)
	assert.Zero(t, info.DurationSeconds)
}

func TestVideoInfoScrapeEmptyTitle(t *testing.T) {
	watch := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head></head><body></body></html>`)
	}))
	defer watch.Close()

	c := NewClient("", zap.NewNop(), WithBaseURLs(watch.URL, watch.URL))

	_, err := c.VideoInfo(context.Background(), "abc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no title")
}
