package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
)

const questionColumns = "q.id, q.theme_id, q.year, q.semester, q.status, q.created_at"

// FindQuestion returns the question for (theme, period), or nil.
func FindQuestion(ctx context.Context, tx *Tx, themeID int64, p semester.Period) (*Question, error) {
	q, err := scanQuestion(tx.queryRow(ctx,
		"SELECT "+questionColumns+" FROM questions q WHERE q.theme_id = ? AND q.year = ? AND q.semester = ?",
		themeID, p.Year, string(p.Half),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up question for theme %d %s: %w", themeID, p, err)
	}
	return q, nil
}

// InsertQuestion creates the question row for (theme, period) with the
// ready status.
func InsertQuestion(ctx context.Context, tx *Tx, themeID int64, p semester.Period) (*Question, error) {
	if _, err := tx.exec(ctx,
		"INSERT INTO questions (theme_id, year, semester, status) VALUES (?, ?, ?, ?)",
		themeID, p.Year, string(p.Half), StatusReady,
	); err != nil {
		return nil, fmt.Errorf("inserting question for theme %d %s: %w", themeID, p, err)
	}
	q, err := FindQuestion(ctx, tx, themeID, p)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("question for theme %d %s missing after insert", themeID, p)
	}
	return q, nil
}

// InsertQuestionArticle snapshots the stat of an article into a question.
func InsertQuestionArticle(ctx context.Context, tx *Tx, questionID int64, stat *SemesterStat) error {
	_, err := tx.exec(ctx,
		`INSERT INTO question_articles (question_id, article_id, views_total, views_avg_daily)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (question_id, article_id) DO NOTHING`,
		questionID, stat.ArticleID, stat.ViewsTotal, stat.ViewsAvgDaily,
	)
	if err != nil {
		return fmt.Errorf("linking article %d to question %d: %w", stat.ArticleID, questionID, err)
	}
	return nil
}

// QuestionArticleTitles returns the titles of a question's articles in
// insertion order.
func QuestionArticleTitles(ctx context.Context, tx *Tx, questionID int64) ([]string, error) {
	rows, err := tx.query(ctx,
		`SELECT a.title FROM question_articles qa JOIN articles a ON a.id = qa.article_id
		WHERE qa.question_id = ? ORDER BY qa.id`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

// ListQuestions returns the most recent questions first, with their theme
// and article titles.
func (db *DB) ListQuestions(ctx context.Context, limit int) ([]QuestionSummary, error) {
	rows, err := db.query(ctx,
		"SELECT "+questionColumns+`, t.name FROM questions q JOIN themes t ON t.id = q.theme_id
		ORDER BY q.id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}

	var list []QuestionSummary
	for rows.Next() {
		var s QuestionSummary
		if err := rows.Scan(&s.ID, &s.ThemeID, &s.Year, &s.Semester, &s.Status, &s.CreatedAt, &s.Theme); err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		titles, err := db.query(ctx,
			`SELECT a.title FROM question_articles qa JOIN articles a ON a.id = qa.article_id
			WHERE qa.question_id = ? ORDER BY qa.id`, list[i].ID,
		)
		if err != nil {
			return nil, err
		}
		list[i].Articles, err = scanStrings(titles)
		titles.Close()
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

// GetQuestionDetail returns a question with its article rows, or nil.
func (db *DB) GetQuestionDetail(ctx context.Context, id int64) (*QuestionDetail, error) {
	var d QuestionDetail
	err := db.queryRow(ctx,
		"SELECT "+questionColumns+`, t.name FROM questions q JOIN themes t ON t.id = q.theme_id
		WHERE q.id = ?`, id,
	).Scan(&d.ID, &d.ThemeID, &d.Year, &d.Semester, &d.Status, &d.CreatedAt, &d.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading question %d: %w", id, err)
	}

	d.Articles, err = db.questionArticles(ctx, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// RandomReadyQuestion picks a ready question holding exactly size
// articles. Empty filters match any value. Returns nil when none match.
func (db *DB) RandomReadyQuestion(ctx context.Context, theme string, year int, half string, size int) (*QuestionDetail, error) {
	query := "SELECT q.id FROM questions q JOIN themes t ON t.id = q.theme_id WHERE q.status = ?"
	args := []any{StatusReady}
	if theme != "" {
		query += " AND t.name = ?"
		args = append(args, theme)
	}
	if year != 0 {
		query += " AND q.year = ?"
		args = append(args, year)
	}
	if half != "" {
		query += " AND q.semester = ?"
		args = append(args, half)
	}
	query += ` AND (SELECT COUNT(*) FROM question_articles qa WHERE qa.question_id = q.id) = ?
		ORDER BY RANDOM() LIMIT 1`
	args = append(args, size)

	var id int64
	err := db.queryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("picking random question: %w", err)
	}
	return db.GetQuestionDetail(ctx, id)
}

func (db *DB) questionArticles(ctx context.Context, questionID int64) ([]QuestionArticleDetail, error) {
	rows, err := db.query(ctx,
		`SELECT a.id, a.title, a.slug, a.summary, a.image_url, qa.views_total, qa.views_avg_daily
		FROM question_articles qa JOIN articles a ON a.id = qa.article_id
		WHERE qa.question_id = ? ORDER BY qa.id`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QuestionArticleDetail
	for rows.Next() {
		var a QuestionArticleDetail
		if err := rows.Scan(&a.ArticleID, &a.Title, &a.Slug, &a.Summary, &a.ImageURL,
			&a.ViewsTotal, &a.ViewsAvgDaily); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanQuestion(row rowScanner) (*Question, error) {
	var q Question
	if err := row.Scan(&q.ID, &q.ThemeID, &q.Year, &q.Semester, &q.Status, &q.CreatedAt); err != nil {
		return nil, err
	}
	return &q, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
