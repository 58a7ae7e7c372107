package wikimedia

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SirGenkii/GoogleTrendGame/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.Wikimedia{
		Project:    "fr.wikipedia",
		UserAgent:  "wikipop-test",
		MetricsURL: srv.URL + "/metrics/pageviews",
		SiteURL:    srv.URL,
	})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFetchDailyViews(t *testing.T) {
	var gotPath, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"items":[
			{"timestamp":"2024010100","views":12},
			{"timestamp":"2024010200","views":30}
		]}`))
	})

	series, err := c.FetchDailyViews(context.Background(), "Jeu vidéo", day(2024, 1, 1), day(2024, 6, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPath := "/metrics/pageviews/per-article/fr.wikipedia/all-access/user/Jeu_vid%C3%A9o/daily/20240101/20240630"
	if gotPath != wantPath {
		t.Errorf("path = %q, want %q", gotPath, wantPath)
	}
	if gotUA != "wikipop-test" {
		t.Errorf("user agent = %q", gotUA)
	}
	if len(series) != 2 || series[0].Day != "20240101" || series[1].Views != 30 {
		t.Errorf("unexpected series %+v", series)
	}
}

func TestFetchDailyViewsEscapesSlash(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"items":[]}`))
	})

	if _, err := c.FetchDailyViews(context.Background(), "AC/DC", day(2024, 7, 1), day(2024, 12, 31)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotPath, "/AC%2FDC/") {
		t.Errorf("slash not escaped in %q", gotPath)
	}
}

func TestFetchDailyViewsErrors(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadRequest, ErrNotFound},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusTooManyRequests, ErrUnavailable},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.code)
		})
		_, err := c.FetchDailyViews(context.Background(), "Paris", day(2024, 1, 1), day(2024, 6, 30))
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.code, tt.want, err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Code != tt.code || se.URL == "" {
			t.Errorf("status %d: expected StatusError with code and url, got %v", tt.code, err)
		}
	}
}

func TestFetchDailyViewsTransportError(t *testing.T) {
	c := NewClient(config.Wikimedia{Project: "fr.wikipedia", MetricsURL: "http://127.0.0.1:1"})
	_, err := c.FetchDailyViews(context.Background(), "Paris", day(2024, 1, 1), day(2024, 6, 30))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetchMonthlyTop(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"items":[{"project":"fr.wikipedia","day":"all-days","articles":[
			{"article":"Football","views":500,"rank":1},
			{"article":"","views":3,"rank":2},
			{"article":"Paris","views":200,"rank":3}
		]}]}`))
	})

	entries, err := c.FetchMonthlyTop(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/metrics/pageviews/top/fr.wikipedia/all-access/2024/03/all-days" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Day != "20240301" || entries[0].Title != "Football" || entries[0].Views != 500 {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestFetchMonthlyTopKeepsExplicitDay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"day":"20240305","articles":[{"article":"Paris","views":7}]}]}`))
	})

	entries, err := c.FetchMonthlyTop(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Day != "20240305" {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestFetchSummary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rest_v1/page/summary/Tour_Eiffel" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"title":"Tour Eiffel","pageid":1359783,"extract":"Tour de fer puddlé.",
			"thumbnail":{"source":"https://upload.wikimedia.org/eiffel.jpg"}}`))
	})

	s, err := c.FetchSummary(context.Background(), "Tour Eiffel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil || s.PageID != 1359783 || s.ImageURL == "" || s.Extract == "" {
		t.Errorf("unexpected summary %+v", s)
	}

	missing, err := c.FetchSummary(context.Background(), "Inconnu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil summary on 404, got %+v", missing)
	}
}

func TestPageURL(t *testing.T) {
	c := NewClient(config.Wikimedia{Project: "fr.wikipedia"})
	if got := c.PageURL("Jeu vidéo"); got != "https://fr.wikipedia.org/wiki/Jeu_vid%C3%A9o" {
		t.Errorf("PageURL = %q", got)
	}
}
