package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
)

// GetSemesterStat returns the stat of an article for a period, or nil if
// none has been stored yet.
func GetSemesterStat(ctx context.Context, tx *Tx, articleID int64, p semester.Period) (*SemesterStat, error) {
	var (
		s      SemesterStat
		series sql.NullString
	)
	err := tx.queryRow(ctx,
		`SELECT id, article_id, year, semester, views_total, views_avg_daily, series, created_at
		FROM article_semester_stats WHERE article_id = ? AND year = ? AND semester = ?`,
		articleID, p.Year, string(p.Half),
	).Scan(&s.ID, &s.ArticleID, &s.Year, &s.Semester, &s.ViewsTotal, &s.ViewsAvgDaily, &series, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up stat for article %d %s: %w", articleID, p, err)
	}

	if series.Valid && series.String != "" {
		if err := json.Unmarshal([]byte(series.String), &s.Series); err != nil {
			return nil, fmt.Errorf("decoding series for article %d %s: %w", articleID, p, err)
		}
	}
	return &s, nil
}

// InsertSemesterStat stores the aggregate of an article for a period and
// returns the stored row. When a row already exists it is returned as is.
func InsertSemesterStat(ctx context.Context, tx *Tx, articleID int64, p semester.Period, sum semester.Summary) (*SemesterStat, error) {
	series := sum.Series
	if series == nil {
		series = semester.Series{}
	}
	encoded, err := json.Marshal(series)
	if err != nil {
		return nil, fmt.Errorf("encoding series: %w", err)
	}

	if _, err := tx.exec(ctx,
		`INSERT INTO article_semester_stats (article_id, year, semester, views_total, views_avg_daily, series)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (article_id, year, semester) DO NOTHING`,
		articleID, p.Year, string(p.Half), sum.ViewsTotal, sum.ViewsAvgDaily, string(encoded),
	); err != nil {
		return nil, fmt.Errorf("inserting stat for article %d %s: %w", articleID, p, err)
	}

	stat, err := GetSemesterStat(ctx, tx, articleID, p)
	if err != nil {
		return nil, err
	}
	if stat == nil {
		return nil, fmt.Errorf("stat for article %d %s missing after insert", articleID, p)
	}
	return stat, nil
}
