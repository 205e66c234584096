package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultAPIBaseURL   = "https://www.googleapis.com/youtube/v3"
	defaultWatchBaseURL = "https://www.youtube.com"
	maxLookupRetries    = 3
)

// Client resolves video metadata. With an API key it queries the YouTube
// Data API v3; without one it falls back to scraping the watch-page title,
// which yields no duration.
type Client struct {
	apiKey       string
	apiBaseURL   string
	watchBaseURL string
	httpClient   *http.Client
	logger       *zap.Logger
}

type VideoInfo struct {
	Title           string `json:"title"`
	Duration        string `json:"duration"`
	DurationSeconds int    `json:"duration_seconds"`
}

type Option func(*Client)

// WithBaseURLs overrides the API and watch-page endpoints, for tests.
func WithBaseURLs(apiBase, watchBase string) Option {
	return func(c *Client) {
		c.apiBaseURL = apiBase
		c.watchBaseURL = watchBase
	}
}

func NewClient(apiKey string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		apiBaseURL:   defaultAPIBaseURL,
		watchBaseURL: defaultWatchBaseURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) VideoInfo(ctx context.Context, videoID string) (*VideoInfo, error) {
	if c.apiKey == "" {
		title, err := c.scrapeTitle(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("lookup video %s: %w", videoID, err)
		}
		return &VideoInfo{Title: title, Duration: "Unknown"}, nil
	}

	var info *VideoInfo
	operation := func() error {
		var err error
		info, err = c.fetchFromAPI(ctx, videoID)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxLookupRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("lookup video %s: %w", videoID, err)
	}
	return info, nil
}

func (c *Client) fetchFromAPI(ctx context.Context, videoID string) (*VideoInfo, error) {
	endpoint := fmt.Sprintf("%s/videos?part=contentDetails%%2Csnippet&id=%s&key=%s",
		c.apiBaseURL, url.QueryEscape(videoID), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("youtube api status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var payload struct {
		Items []struct {
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if len(payload.Items) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("video not found or private"))
	}

	item := payload.Items[0]
	seconds := ParseISODuration(item.ContentDetails.Duration)

	return &VideoInfo{
		Title:           item.Snippet.Title,
		Duration:        FormatDuration(seconds),
		DurationSeconds: seconds,
	}, nil
}

// scrapeTitle fetches the watch page and reads its <title>, dropping the
// trailing " - YouTube" suffix.
func (c *Client) scrapeTitle(ctx context.Context, videoID string) (string, error) {
	endpoint := fmt.Sprintf("%s/watch?v=%s", c.watchBaseURL, url.QueryEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("watch page status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse watch page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	title = strings.TrimSuffix(title, " - YouTube")
	if title == "" {
		return "", fmt.Errorf("no title on watch page")
	}

	c.logger.Debug("title scraped without api key", zap.String("video_id", videoID))
	return title, nil
}

var (
	hoursRe   = regexp.MustCompile(`(\d+)H`)
	minutesRe = regexp.MustCompile(`(\d+)M`)
	secondsRe = regexp.MustCompile(`(\d+)S`)
)

// ParseISODuration sums the optional H/M/S components of an ISO-8601
// duration of the shape PT#H#M#S. Unrecognized input yields 0.
func ParseISODuration(iso string) int {
	if len(iso) < 2 {
		return 0
	}
	duration := iso[2:]

	total := 0
	if m := hoursRe.FindStringSubmatch(duration); m != nil {
		v, _ := strconv.Atoi(m[1])
		total += v * 3600
	}
	if m := minutesRe.FindStringSubmatch(duration); m != nil {
		v, _ := strconv.Atoi(m[1])
		total += v * 60
	}
	if m := secondsRe.FindStringSubmatch(duration); m != nil {
		v, _ := strconv.Atoi(m[1])
		total += v
	}
	return total
}

// FormatDuration renders seconds as MM:SS, or HH:MM:SS past an hour.
func FormatDuration(totalSeconds int) string {
	if totalSeconds <= 0 {
		return "Unknown"
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
