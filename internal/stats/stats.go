// Package stats keeps one immutable view aggregate per article and semester.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/SirGenkii/GoogleTrendGame/internal/database"
	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
)

// DailyViewsSource fetches the daily views of an article slug.
type DailyViewsSource interface {
	FetchDailyViews(ctx context.Context, slug string, start, end time.Time) (semester.Series, error)
}

// EnsureSemesterStat returns the stored stat of an article for a period.
// When absent, the daily views are fetched from src, aggregated and stored.
// Source errors are returned unchanged in the chain so callers can match
// them with errors.Is.
func EnsureSemesterStat(ctx context.Context, tx *database.Tx, article *database.Article, p semester.Period, src DailyViewsSource) (*database.SemesterStat, error) {
	existing, err := database.GetSemesterStat(ctx, tx, article.ID, p)
	if err != nil || existing != nil {
		return existing, err
	}

	start, end := p.Dates()
	series, err := src.FetchDailyViews(ctx, article.Slug, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching views of %q for %s: %w", article.Title, p, err)
	}
	return database.InsertSemesterStat(ctx, tx, article.ID, p, semester.Aggregate(series))
}

// UpsertFromSeries stores the aggregate of an already fetched series unless
// a stat exists for the article and period, in which case that one is
// returned unchanged.
func UpsertFromSeries(ctx context.Context, tx *database.Tx, article *database.Article, p semester.Period, series semester.Series) (*database.SemesterStat, error) {
	existing, err := database.GetSemesterStat(ctx, tx, article.ID, p)
	if err != nil || existing != nil {
		return existing, err
	}
	return database.InsertSemesterStat(ctx, tx, article.ID, p, semester.Aggregate(series))
}
