// Package question assembles quiz questions: a set of articles of one
// theme whose views over a semester are compared.
package question

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/SirGenkii/GoogleTrendGame/internal/database"
	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
	"github.com/SirGenkii/GoogleTrendGame/internal/stats"
)

// DefaultSize is the number of articles drawn for a random question.
const DefaultSize = 4

// ErrInsufficientArticles is returned when a theme links fewer articles
// than a random question needs.
var ErrInsufficientArticles = errors.New("not enough articles linked to this theme")

// Request describes the question to build. When Articles is empty the
// articles are drawn at random from the theme.
type Request struct {
	Theme    string
	Year     int
	Semester string
	Articles []string
}

// Payload identifies a stored question and its article titles.
type Payload struct {
	ID       int64    `json:"id"`
	Theme    string   `json:"theme"`
	Year     int      `json:"year"`
	Semester string   `json:"semester"`
	Articles []string `json:"articles"`
}

// Builder creates questions, fetching missing semester stats from source.
type Builder struct {
	project string
	source  stats.DailyViewsSource
	size    int
	rng     *rand.Rand
}

// NewBuilder creates a builder drawing size articles per random question.
func NewBuilder(project string, source stats.DailyViewsSource, size int) *Builder {
	if size <= 0 {
		size = DefaultSize
	}
	return &Builder{
		project: project,
		source:  source,
		size:    size,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// WithRand replaces the random source, for reproducible draws.
func (b *Builder) WithRand(rng *rand.Rand) *Builder {
	b.rng = rng
	return b
}

// Build returns the question for (theme, year, semester), creating it
// when none exists. An existing question is returned as stored, whatever
// articles the request names. Every write goes through tx, so a failure
// while fetching stats leaves no partial question once the caller rolls
// back.
func (b *Builder) Build(ctx context.Context, tx *database.Tx, req Request) (*Payload, error) {
	period, err := semester.Parse(req.Year, req.Semester)
	if err != nil {
		return nil, err
	}

	theme, err := database.EnsureTheme(ctx, tx, req.Theme)
	if err != nil {
		return nil, err
	}

	articles, err := b.selectArticles(ctx, tx, theme, req.Articles)
	if err != nil {
		return nil, err
	}

	existing, err := database.FindQuestion(ctx, tx, theme.ID, period)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		titles, err := database.QuestionArticleTitles(ctx, tx, existing.ID)
		if err != nil {
			return nil, err
		}
		return &Payload{
			ID:       existing.ID,
			Theme:    theme.Name,
			Year:     existing.Year,
			Semester: existing.Semester,
			Articles: titles,
		}, nil
	}

	q, err := database.InsertQuestion(ctx, tx, theme.ID, period)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(articles))
	for i := range articles {
		a := &articles[i]
		stat, err := stats.EnsureSemesterStat(ctx, tx, a, period, b.source)
		if err != nil {
			return nil, err
		}
		if err := database.InsertQuestionArticle(ctx, tx, q.ID, stat); err != nil {
			return nil, err
		}
		titles = append(titles, a.Title)
	}

	return &Payload{
		ID:       q.ID,
		Theme:    theme.Name,
		Year:     period.Year,
		Semester: string(period.Half),
		Articles: titles,
	}, nil
}

func (b *Builder) selectArticles(ctx context.Context, tx *database.Tx, theme *database.Theme, titles []string) ([]database.Article, error) {
	var explicit []string
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			explicit = append(explicit, t)
		}
	}
	if len(explicit) == 0 {
		return b.pickRandom(ctx, tx, theme)
	}

	seen := make(map[int64]struct{})
	var articles []database.Article
	for _, title := range explicit {
		a, err := database.EnsureArticle(ctx, tx, title, b.project)
		if err != nil {
			return nil, err
		}
		if err := database.LinkArticleTheme(ctx, tx, a, theme); err != nil {
			return nil, err
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		articles = append(articles, *a)
	}
	return articles, nil
}

// pickRandom draws b.size distinct articles linked to the theme, each
// subset being equally likely.
func (b *Builder) pickRandom(ctx context.Context, tx *database.Tx, theme *database.Theme) ([]database.Article, error) {
	ids, err := database.ThemeArticleIDs(ctx, tx, theme.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) < b.size {
		return nil, fmt.Errorf("%w: theme %q has %d, need %d", ErrInsufficientArticles, theme.Name, len(ids), b.size)
	}

	// Partial Fisher-Yates over the first b.size positions.
	for i := 0; i < b.size; i++ {
		j := i + b.rng.IntN(len(ids)-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	return database.GetArticlesByIDs(ctx, tx, ids[:b.size])
}
