package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// EnsureTheme returns the theme with the given name, creating it if absent.
func EnsureTheme(ctx context.Context, tx *Tx, name string) (*Theme, error) {
	if theme, err := GetThemeByName(ctx, tx, name); err != nil || theme != nil {
		return theme, err
	}

	// A concurrent creator may win the insert; the reselect returns its row.
	if _, err := tx.exec(ctx,
		"INSERT INTO themes (name) VALUES (?) ON CONFLICT (name) DO NOTHING", name,
	); err != nil {
		return nil, fmt.Errorf("inserting theme %q: %w", name, err)
	}

	theme, err := GetThemeByName(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if theme == nil {
		return nil, fmt.Errorf("theme %q missing after insert", name)
	}
	return theme, nil
}

// GetThemeByName returns the theme with the given name, or nil.
func GetThemeByName(ctx context.Context, tx *Tx, name string) (*Theme, error) {
	var t Theme
	err := tx.queryRow(ctx,
		"SELECT id, name, created_at FROM themes WHERE name = ?", name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up theme %q: %w", name, err)
	}
	return &t, nil
}

// ThemeArticleIDs returns the ids of the articles linked to a theme, in
// ascending order.
func ThemeArticleIDs(ctx context.Context, tx *Tx, themeID int64) ([]int64, error) {
	rows, err := tx.query(ctx,
		"SELECT article_id FROM article_themes WHERE theme_id = ? ORDER BY article_id", themeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
