// Package catalog fetches app metadata from the iTunes lookup API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"appwatch/internal/monitor"
	logx "appwatch/pkg/logx"
)

// ErrNotFound means the catalog has no app for the given id.
var ErrNotFound = errors.New("catalog: app not found")

const (
	defaultBaseURL = "https://itunes.apple.com/lookup"
	// The catalog occasionally serves degraded responses to unknown
	// clients, so we present a browser UA like any other scraper.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Config configures the catalog client.
type Config struct {
	// BaseURL overrides the lookup endpoint (tests). Empty means the
	// public API.
	BaseURL string
	// Country is the storefront country code. Empty means "us".
	Country string
	// ScrapeNotes enables fetching the store page for release notes
	// when the lookup response carries none.
	ScrapeNotes bool
	// Timeout bounds each HTTP request. <= 0 means 10s.
	Timeout time.Duration
}

// Client looks app metadata up by id. Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}, log: log}
}

type lookupResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []lookupResult `json:"results"`
}

type lookupResult struct {
	TrackName                 string `json:"trackName"`
	ArtistName                string `json:"artistName"`
	Version                   string `json:"version"`
	CurrentVersionReleaseDate string `json:"currentVersionReleaseDate"`
	TrackViewURL              string `json:"trackViewUrl"`
	ReleaseNotes              string `json:"releaseNotes"`
}

// Fetch returns the current catalog metadata for one app id.
//
// The version field is passed through as an opaque token; this client
// never parses or compares versions.
func (c *Client) Fetch(ctx context.Context, appID string) (*monitor.AppInfo, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, errors.New("catalog: empty app id")
	}

	q := url.Values{}
	q.Set("id", appID)
	q.Set("country", c.cfg.Country)
	endpoint := c.cfg.BaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: lookup %s: %w", appID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: lookup %s: unexpected status %s", appID, resp.Status)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("catalog: lookup %s: decode: %w", appID, err)
	}
	if out.ResultCount == 0 || len(out.Results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, appID)
	}
	r := out.Results[0]

	info := &monitor.AppInfo{
		AppID:        appID,
		Name:         r.TrackName,
		Developer:    r.ArtistName,
		Version:      r.Version,
		URL:          r.TrackViewURL,
		ReleaseNotes: r.ReleaseNotes,
	}

	// The release date is optional metadata; an unparseable value must
	// not fail the whole record.
	if r.CurrentVersionReleaseDate != "" {
		if ts, err := time.Parse(time.RFC3339, r.CurrentVersionReleaseDate); err == nil {
			info.Updated = ts
		} else {
			c.log.Debug("unparseable release date",
				logx.String("app_id", appID),
				logx.String("raw", r.CurrentVersionReleaseDate))
		}
	}

	if c.cfg.ScrapeNotes && strings.TrimSpace(info.ReleaseNotes) == "" && info.URL != "" {
		if notes := c.scrapeNotes(ctx, info.URL); notes != "" {
			info.ReleaseNotes = notes
		}
	}

	return info, nil
}
