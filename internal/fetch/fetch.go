package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/SirGenkii/GoogleTrendGame/internal/database"
	"github.com/SirGenkii/GoogleTrendGame/internal/logger"
	"github.com/SirGenkii/GoogleTrendGame/internal/wikimedia"
)

const maxSummaryLen = 600

// SummarySource provides page summaries and page URLs.
type SummarySource interface {
	FetchSummary(ctx context.Context, slug string) (*wikimedia.PageSummary, error)
	PageURL(slug string) string
}

// Result holds the results of an enrichment run.
type Result struct {
	Fetched   int
	Extracted int
	Failed    int
}

// SummaryFetcher fills article metadata from the page summary endpoint,
// falling back to readability extraction of the page itself.
type SummaryFetcher struct {
	db     *database.DB
	source SummarySource
	log    *logger.Logger
	client *http.Client
}

// NewSummaryFetcher creates a new summary fetcher.
func NewSummaryFetcher(db *database.DB, source SummarySource, log *logger.Logger, timeout time.Duration) *SummaryFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &SummaryFetcher{
		db:     db,
		source: source,
		log:    log,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissingSummaries enriches up to limit articles that have no summary.
func (f *SummaryFetcher) FetchMissingSummaries(ctx context.Context, limit int) (*Result, error) {
	articles, err := f.db.GetArticlesMissingSummary(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing articles to enrich: %w", err)
	}

	result := &Result{}
	if len(articles) == 0 {
		f.log.Info("No articles need enrichment")
		return result, nil
	}

	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		summary, err := f.source.FetchSummary(ctx, article.Slug)
		if err != nil {
			result.Failed++
			f.log.Warn("Summary fetch failed", "title", article.Title, "error", err)
			continue
		}
		if summary == nil {
			result.Failed++
			f.log.Debug("No summary available", "title", article.Title)
			continue
		}

		meta := database.ArticleMetadata{}
		if summary.PageID != 0 {
			meta.PageID = &summary.PageID
		}
		if summary.ImageURL != "" {
			meta.ImageURL = &summary.ImageURL
		}

		text := strings.TrimSpace(summary.Extract)
		if text == "" {
			text = f.extractPageText(ctx, f.source.PageURL(article.Slug))
			if text != "" {
				result.Extracted++
			}
		}
		if text != "" {
			text = truncate(text, maxSummaryLen)
			meta.Summary = &text
		}

		if err := f.db.UpdateArticleMetadata(ctx, article.ID, meta); err != nil {
			return result, fmt.Errorf("updating article %d: %w", article.ID, err)
		}
		result.Fetched++
		f.log.Debug("Enriched article", "title", article.Title)
	}

	f.log.Info("Enrichment complete", "fetched", result.Fetched, "failed", result.Failed)
	return result, nil
}

// extractPageText returns the readable text of a page, or "" when the page
// cannot be fetched or has too little text.
func (f *SummaryFetcher) extractPageText(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "wikipop/1.0 (page summaries)")

	resp, err := f.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		f.log.Debug("Page fetch failed", "url", pageURL, "status", resp.StatusCode)
		return ""
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > 100 {
		return text
	}
	return ""
}

// truncate cuts s to at most n runes, on a word boundary when possible.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndexAny(cut, " \n"); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
