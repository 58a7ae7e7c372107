package database

import (
	"context"
	"fmt"
)

// GetStats returns row counts for the status command.
func (db *DB) GetStats(ctx context.Context, questionSize int) (*Stats, error) {
	var s Stats
	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&s.Themes, "SELECT COUNT(*) FROM themes", nil},
		{&s.Articles, "SELECT COUNT(*) FROM articles", nil},
		{&s.ArticleThemes, "SELECT COUNT(*) FROM article_themes", nil},
		{&s.SemesterStats, "SELECT COUNT(*) FROM article_semester_stats", nil},
		{&s.Questions, "SELECT COUNT(*) FROM questions", nil},
		{&s.CompleteQuestions, `SELECT COUNT(*) FROM questions q
			WHERE (SELECT COUNT(*) FROM question_articles qa WHERE qa.question_id = q.id) = ?`,
			[]any{questionSize}},
	}
	for _, c := range counts {
		if err := db.queryRow(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting: %w", err)
		}
	}
	return &s, nil
}
