// Package geocode resolves street addresses through a Nominatim-style
// lookup service. The service is free and rate limited, so the client paces
// itself and treats every failure as recoverable.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danou294/butter-gestion-sub000/internal/catalog"
)

const (
	maxAttempts    = 3
	maxBackoff     = 10 * time.Second
	rateLimitPause = 1100 * time.Millisecond
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	sleep      func(time.Duration)
	log        *logrus.Entry
}

func NewClient(baseURL, userAgent string, log *logrus.Entry) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		sleep:      time.Sleep,
		log:        log,
	}
}

// Geocode looks an address up, retrying up to 3 times with exponential
// backoff capped at 10s. Empty result sets and (0,0) answers count as
// failures. Returns nil, nil when every attempt came up empty, so the caller
// imports the row without coordinates. After a successful lookup the client
// sleeps ~1.1s so back-to-back rows stay under the service's rate limit.
func (c *Client) Geocode(ctx context.Context, address string) (*catalog.Coordinate, error) {
	query := address
	if !strings.Contains(strings.ToLower(query), "paris") {
		query += ", Paris, France"
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		coord, err := c.lookup(ctx, query)
		if err == nil && coord != nil {
			c.sleep(rateLimitPause)
			return coord, nil
		}
		if err != nil {
			c.log.WithError(err).Warnf("geocode attempt %d/%d failed", attempt, maxAttempts)
		} else {
			c.log.Warnf("geocode attempt %d/%d returned no result for %q", attempt, maxAttempts, query)
		}
		if attempt < maxAttempts {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			c.sleep(backoff)
		}
	}
	return nil, nil
}

func (c *Client) lookup(ctx context.Context, query string) (*catalog.Coordinate, error) {
	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned %d: %s", resp.StatusCode, string(raw))
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("bad latitude %q", results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("bad longitude %q", results[0].Lon)
	}
	if lat == 0 && lon == 0 {
		return nil, nil
	}
	return &catalog.Coordinate{Lat: &lat, Lon: &lon}, nil
}
