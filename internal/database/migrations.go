package database

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          string
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: `
CREATE TABLE IF NOT EXISTS themes (
    id {{pk}},
    name TEXT NOT NULL UNIQUE,
    created_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS articles (
    id {{pk}},
    project TEXT NOT NULL DEFAULT 'fr.wikipedia',
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    page_id BIGINT,
    summary TEXT,
    image_url TEXT,
    created_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT uq_project_slug UNIQUE (project, slug)
);

CREATE TABLE IF NOT EXISTS article_themes (
    id {{pk}},
    article_id BIGINT NOT NULL REFERENCES articles(id),
    theme_id BIGINT NOT NULL REFERENCES themes(id),
    CONSTRAINT uq_article_theme UNIQUE (article_id, theme_id)
);

CREATE TABLE IF NOT EXISTS article_semester_stats (
    id {{pk}},
    article_id BIGINT NOT NULL REFERENCES articles(id),
    year INTEGER NOT NULL,
    semester TEXT NOT NULL CHECK (semester IN ('S1', 'S2')),
    views_total BIGINT NOT NULL,
    views_avg_daily DOUBLE PRECISION NOT NULL,
    series TEXT,
    created_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT uq_article_semester UNIQUE (article_id, year, semester)
);

CREATE TABLE IF NOT EXISTS questions (
    id {{pk}},
    theme_id BIGINT NOT NULL REFERENCES themes(id),
    year INTEGER NOT NULL,
    semester TEXT NOT NULL CHECK (semester IN ('S1', 'S2')),
    status TEXT NOT NULL DEFAULT 'ready',
    created_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT uq_question_theme_period UNIQUE (theme_id, year, semester)
);

CREATE TABLE IF NOT EXISTS question_articles (
    id {{pk}},
    question_id BIGINT NOT NULL REFERENCES questions(id),
    article_id BIGINT NOT NULL REFERENCES articles(id),
    views_total BIGINT NOT NULL,
    views_avg_daily DOUBLE PRECISION NOT NULL,
    CONSTRAINT uq_question_article UNIQUE (question_id, article_id)
);

CREATE INDEX IF NOT EXISTS idx_article_themes_theme ON article_themes(theme_id);
CREATE INDEX IF NOT EXISTS idx_questions_created ON questions(created_at);
CREATE INDEX IF NOT EXISTS idx_question_articles_question ON question_articles(question_id);
`,
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
