package collect

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SirGenkii/GoogleTrendGame/internal/config"
	"github.com/SirGenkii/GoogleTrendGame/internal/database"
	"github.com/SirGenkii/GoogleTrendGame/internal/logger"
)

// DefaultTitles seed a theme when no other source is configured.
var DefaultTitles = []string{"France", "Paris", "Football", "Jeu vidéo", "Cinéma", "Tesla", "Google", "OpenAI"}

// SeedOptions selects the theme and the title source of a seed run.
type SeedOptions struct {
	Theme        string
	ArticlesFile string
	FeedURL      string
}

// Result holds the results of a seed run.
type Result struct {
	Theme    string
	Source   string
	Articles int
}

// Collector seeds a theme with articles from a CSV file, a feed, the
// config file or the built-in list.
type Collector struct {
	db         *database.DB
	cfg        *config.Config
	feedParser *FeedParser
	log        *logger.Logger
}

// NewCollector creates a new seed collector.
func NewCollector(cfg *config.Config, db *database.DB, log *logger.Logger) *Collector {
	return &Collector{
		db:         db,
		cfg:        cfg,
		feedParser: NewFeedParser(cfg.Wikimedia.UserAgent),
		log:        log,
	}
}

// Titles resolves the seed titles. Sources are tried in order: the
// explicit CSV file, the feed, the configured CSV file, the configured
// list, then DefaultTitles.
func (c *Collector) Titles(ctx context.Context, opts SeedOptions) ([]string, string, error) {
	if opts.ArticlesFile != "" {
		titles, err := ReadTitlesCSV(opts.ArticlesFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, "", err
		}
		if len(titles) > 0 {
			return titles, opts.ArticlesFile, nil
		}
		c.log.Warn("Articles file missing or empty", "path", opts.ArticlesFile)
	}

	if opts.FeedURL != "" {
		titles, err := c.feedParser.Titles(ctx, opts.FeedURL)
		if err != nil {
			return nil, "", err
		}
		if len(titles) > 0 {
			return titles, opts.FeedURL, nil
		}
		c.log.Warn("Feed has no usable items", "url", opts.FeedURL)
	}

	if path := c.cfg.Seed.ArticlesFile; path != "" {
		titles, err := ReadTitlesCSV(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, "", err
		}
		if len(titles) > 0 {
			return titles, path, nil
		}
	}

	if len(c.cfg.Seed.Articles) > 0 {
		return c.cfg.Seed.Articles, "config", nil
	}
	return DefaultTitles, "defaults", nil
}

// Seed ensures the theme and links every resolved title to it, in one
// unit of work.
func (c *Collector) Seed(ctx context.Context, opts SeedOptions) (*Result, error) {
	if opts.Theme == "" {
		opts.Theme = c.cfg.Questions.DefaultTheme
	}

	titles, source, err := c.Titles(ctx, opts)
	if err != nil {
		return nil, err
	}

	err = c.db.InTx(ctx, func(tx *database.Tx) error {
		theme, err := database.EnsureTheme(ctx, tx, opts.Theme)
		if err != nil {
			return err
		}
		for _, title := range titles {
			article, err := database.EnsureArticle(ctx, tx, title, c.cfg.Wikimedia.Project)
			if err != nil {
				return err
			}
			if err := database.LinkArticleTheme(ctx, tx, article, theme); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seeding theme %q: %w", opts.Theme, err)
	}

	c.log.Info("Seed complete", "theme", opts.Theme, "source", source, "articles", len(titles))
	return &Result{Theme: opts.Theme, Source: source, Articles: len(titles)}, nil
}

// ReadTitlesCSV returns the trimmed first column of every non-empty row.
func ReadTitlesCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening articles file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var titles []string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if len(row) == 0 {
			continue
		}
		if t := strings.TrimSpace(row[0]); t != "" {
			titles = append(titles, t)
		}
	}
	return titles, nil
}
