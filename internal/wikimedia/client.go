// Package wikimedia talks to the Wikimedia pageview metrics API and the
// page summary endpoint of a wiki.
package wikimedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SirGenkii/GoogleTrendGame/internal/config"
	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
)

var (
	// ErrNotFound means the title or period is absent upstream.
	ErrNotFound = errors.New("remote not found")
	// ErrUnavailable covers every other remote failure.
	ErrUnavailable = errors.New("remote unavailable")
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.Code, e.URL)
}

// Unwrap maps the status code onto ErrNotFound or ErrUnavailable.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusGone:
		return ErrNotFound
	}
	return ErrUnavailable
}

// TopEntry is one article of a monthly top list.
type TopEntry struct {
	Title string
	Day   string
	Views int64
}

// PageSummary is the metadata returned by the page summary endpoint.
type PageSummary struct {
	Title    string
	PageID   int64
	Extract  string
	ImageURL string
}

// Client is a Wikimedia REST client bound to one project.
type Client struct {
	project    string
	userAgent  string
	metricsURL string
	siteURL    string
	http       *http.Client
}

// NewClient creates a client from the wikimedia config section.
func NewClient(cfg config.Wikimedia) *Client {
	timeout := cfg.Timeout.Duration
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		project:    cfg.Project,
		userAgent:  cfg.UserAgent,
		metricsURL: strings.TrimRight(cfg.MetricsURL, "/"),
		siteURL:    cfg.Site(),
		http:       &http.Client{Timeout: timeout},
	}
}

// Project returns the wiki project, e.g. "fr.wikipedia".
func (c *Client) Project() string {
	return c.project
}

// FetchDailyViews returns the daily user views of an article between start
// and end inclusive.
func (c *Client) FetchDailyViews(ctx context.Context, slug string, start, end time.Time) (semester.Series, error) {
	u := fmt.Sprintf("%s/per-article/%s/all-access/user/%s/daily/%s/%s",
		c.metricsURL, c.project, url.PathEscape(strings.ReplaceAll(slug, " ", "_")),
		start.Format("20060102"), end.Format("20060102"))

	var payload struct {
		Items []struct {
			Timestamp string `json:"timestamp"`
			Views     int64  `json:"views"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return nil, err
	}

	series := make(semester.Series, 0, len(payload.Items))
	for _, item := range payload.Items {
		day := item.Timestamp
		if len(day) > 8 {
			day = day[:8]
		}
		series = append(series, semester.DailyViews{Day: day, Views: item.Views})
	}
	return series, nil
}

// FetchMonthlyTop returns the top articles of a month. Items aggregated over
// the whole month ("all-days") are keyed to the month's first day.
func (c *Client) FetchMonthlyTop(ctx context.Context, year, month int) ([]TopEntry, error) {
	u := fmt.Sprintf("%s/top/%s/all-access/%d/%02d/all-days", c.metricsURL, c.project, year, month)

	var payload struct {
		Items []struct {
			Day      string `json:"day"`
			Articles []struct {
				Article string `json:"article"`
				Views   int64  `json:"views"`
			} `json:"articles"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return nil, err
	}

	monthStart := fmt.Sprintf("%04d%02d01", year, month)
	var entries []TopEntry
	for _, item := range payload.Items {
		day := item.Day
		if !isDay(day) {
			day = monthStart
		}
		for _, a := range item.Articles {
			if a.Article == "" {
				continue
			}
			entries = append(entries, TopEntry{Title: a.Article, Day: day, Views: a.Views})
		}
	}
	return entries, nil
}

// FetchSummary returns the page summary of an article, or nil when the
// wiki answers with an error status.
func (c *Client) FetchSummary(ctx context.Context, slug string) (*PageSummary, error) {
	u := c.siteURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(slug, " ", "_"))

	var payload struct {
		Title     string `json:"title"`
		PageID    int64  `json:"pageid"`
		Extract   string `json:"extract"`
		Thumbnail struct {
			Source string `json:"source"`
		} `json:"thumbnail"`
	}
	err := c.getJSON(ctx, u, &payload)
	var se *StatusError
	if errors.As(err, &se) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &PageSummary{
		Title:    payload.Title,
		PageID:   payload.PageID,
		Extract:  payload.Extract,
		ImageURL: payload.Thumbnail.Source,
	}, nil
}

// PageURL returns the public URL of an article.
func (c *Client) PageURL(slug string) string {
	return c.siteURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(slug, " ", "_"))
}

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", u, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, URL: u}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, u, err)
	}
	return nil
}

func isDay(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
