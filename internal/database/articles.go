package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const articleColumns = "id, project, slug, title, page_id, summary, image_url, created_at, updated_at"

// Slug derives the article slug from its display title.
func Slug(title string) string {
	return strings.ReplaceAll(title, " ", "_")
}

// EnsureArticle returns the article for (project, Slug(title)), creating it
// if absent. An existing row is returned unchanged, including its title.
func EnsureArticle(ctx context.Context, tx *Tx, title, project string) (*Article, error) {
	slug := Slug(title)
	if a, err := getArticleBySlug(ctx, tx, project, slug); err != nil || a != nil {
		return a, err
	}

	if _, err := tx.exec(ctx,
		`INSERT INTO articles (project, slug, title) VALUES (?, ?, ?)
		ON CONFLICT (project, slug) DO NOTHING`,
		project, slug, title,
	); err != nil {
		return nil, fmt.Errorf("inserting article %q: %w", title, err)
	}

	a, err := getArticleBySlug(ctx, tx, project, slug)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("article %s/%s missing after insert", project, slug)
	}
	return a, nil
}

func getArticleBySlug(ctx context.Context, tx *Tx, project, slug string) (*Article, error) {
	row := tx.queryRow(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE project = ? AND slug = ?", project, slug,
	)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up article %s/%s: %w", project, slug, err)
	}
	return a, nil
}

// LinkArticleTheme links an article to a theme. Re-linking is a no-op.
func LinkArticleTheme(ctx context.Context, tx *Tx, article *Article, theme *Theme) error {
	_, err := tx.exec(ctx,
		`INSERT INTO article_themes (article_id, theme_id) VALUES (?, ?)
		ON CONFLICT (article_id, theme_id) DO NOTHING`,
		article.ID, theme.ID,
	)
	if err != nil {
		return fmt.Errorf("linking article %d to theme %d: %w", article.ID, theme.ID, err)
	}
	return nil
}

// GetArticlesByIDs returns the articles with the given ids, in the order of ids.
func GetArticlesByIDs(ctx context.Context, tx *Tx, ids []int64) ([]Article, error) {
	articles := make([]Article, 0, len(ids))
	for _, id := range ids {
		a, err := scanArticle(tx.queryRow(ctx,
			"SELECT "+articleColumns+" FROM articles WHERE id = ?", id,
		))
		if err != nil {
			return nil, fmt.Errorf("loading article %d: %w", id, err)
		}
		articles = append(articles, *a)
	}
	return articles, nil
}

// GetArticlesMissingSummary returns up to limit articles that have never
// been enriched, oldest first.
func (db *DB) GetArticlesMissingSummary(ctx context.Context, limit int) ([]Article, error) {
	rows, err := db.query(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE page_id IS NULL AND summary IS NULL ORDER BY id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// UpdateArticleMetadata stores the page id, summary and image of an article.
func (db *DB) UpdateArticleMetadata(ctx context.Context, articleID int64, meta ArticleMetadata) error {
	_, err := db.exec(ctx,
		`UPDATE articles SET page_id = ?, summary = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		meta.PageID, meta.Summary, meta.ImageURL, articleID,
	)
	return err
}

// CountArticlesForTheme returns the number of articles linked to a theme name.
func (db *DB) CountArticlesForTheme(ctx context.Context, name string) (int, error) {
	var n int
	err := db.queryRow(ctx,
		`SELECT COUNT(*) FROM article_themes l JOIN themes t ON t.id = l.theme_id
		WHERE t.name = ?`, name,
	).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	if err := row.Scan(&a.ID, &a.Project, &a.Slug, &a.Title, &a.PageID,
		&a.Summary, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}
