package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/SirGenkii/GoogleTrendGame/internal/collect"
	"github.com/SirGenkii/GoogleTrendGame/internal/config"
	"github.com/SirGenkii/GoogleTrendGame/internal/database"
	"github.com/SirGenkii/GoogleTrendGame/internal/fetch"
	"github.com/SirGenkii/GoogleTrendGame/internal/logger"
	"github.com/SirGenkii/GoogleTrendGame/internal/question"
	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
	"github.com/SirGenkii/GoogleTrendGame/internal/stats"
)

// Source provides both per-article daily views and monthly top lists.
type Source interface {
	stats.DailyViewsSource
	collect.TopSource
}

// StepResult holds the result of one unit of a batch run.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a batch run.
type Result struct {
	RunID string
	Steps []StepResult
}

// Failed returns the number of steps that ended in error.
func (r *Result) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// ThemeImport is the number of articles imported for one theme.
type ThemeImport struct {
	Theme    string
	Articles int
}

// ImportResult summarises the import of one semester top.
type ImportResult struct {
	Period     semester.Period
	Aggregated int
	Themes     []ThemeImport
}

// Pipeline runs the stat, question and import operations, each in its own
// unit of work.
type Pipeline struct {
	cfg     *config.Config
	db      *database.DB
	log     *logger.Logger
	src     Source
	builder *question.Builder
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB, log *logger.Logger, src Source) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		db:      db,
		log:     log,
		src:     src,
		builder: question.NewBuilder(cfg.Wikimedia.Project, src, cfg.Questions.Size),
	}
}

// Builder returns the question builder used by the pipeline.
func (p *Pipeline) Builder() *question.Builder {
	return p.builder
}

// ComputeStat ensures the semester stat of one article, linking the
// article to the default theme.
func (p *Pipeline) ComputeStat(ctx context.Context, title string, year int, tag string) (*database.SemesterStat, error) {
	period, err := semester.Parse(year, tag)
	if err != nil {
		return nil, err
	}

	var stat *database.SemesterStat
	err = p.db.InTx(ctx, func(tx *database.Tx) error {
		theme, err := database.EnsureTheme(ctx, tx, p.cfg.Questions.DefaultTheme)
		if err != nil {
			return err
		}
		article, err := database.EnsureArticle(ctx, tx, title, p.cfg.Wikimedia.Project)
		if err != nil {
			return err
		}
		if err := database.LinkArticleTheme(ctx, tx, article, theme); err != nil {
			return err
		}
		stat, err = stats.EnsureSemesterStat(ctx, tx, article, period, p.src)
		return err
	})
	return stat, err
}

// GenerateQuestion builds one question in a single unit of work.
func (p *Pipeline) GenerateQuestion(ctx context.Context, req question.Request) (*question.Payload, error) {
	var payload *question.Payload
	err := p.db.InTx(ctx, func(tx *database.Tx) (err error) {
		payload, err = p.builder.Build(ctx, tx, req)
		return err
	})
	return payload, err
}

// ImportTop downloads the semester top once, then imports the best
// matching titles of every configured theme in one unit of work.
func (p *Pipeline) ImportTop(ctx context.Context, period semester.Period, limit int) (*ImportResult, error) {
	p.log.Info("Downloading top lists", "project", p.cfg.Wikimedia.Project, "period", period.String())
	top, err := collect.SemesterTop(ctx, p.src, period)
	if err != nil {
		return nil, err
	}
	p.log.Info("Aggregated top articles", "period", period.String(), "articles", len(top))

	r := &ImportResult{Period: period, Aggregated: len(top)}
	err = p.db.InTx(ctx, func(tx *database.Tx) error {
		r.Themes = r.Themes[:0]
		for _, tc := range p.cfg.Themes {
			theme, err := database.EnsureTheme(ctx, tx, tc.Name)
			if err != nil {
				return err
			}

			selected := collect.SelectForTheme(top, tc.Keywords, limit)
			for _, a := range selected {
				article, err := database.EnsureArticle(ctx, tx, a.Title, p.cfg.Wikimedia.Project)
				if err != nil {
					return err
				}
				if err := database.LinkArticleTheme(ctx, tx, article, theme); err != nil {
					return err
				}
				if _, err := stats.UpsertFromSeries(ctx, tx, article, period, a.Summary.Series); err != nil {
					return err
				}
			}
			r.Themes = append(r.Themes, ThemeImport{Theme: tc.Name, Articles: len(selected)})
			p.log.Debug("Theme imported", "theme", tc.Name, "articles", len(selected))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("importing top %s: %w", period, err)
	}
	return r, nil
}

// ImportRange imports the top of every period. A failed period is logged
// and the remaining periods still run.
func (p *Pipeline) ImportRange(ctx context.Context, periods []semester.Period, limit int) *Result {
	r := &Result{RunID: uuid.NewString()}
	log := p.log.With("run_id", r.RunID)
	log.Info("Import range started", "periods", len(periods), "limit", limit)

	for _, period := range periods {
		if err := ctx.Err(); err != nil {
			r.Steps = append(r.Steps, StepResult{Name: period.String(), Err: err})
			break
		}

		res, err := p.ImportTop(ctx, period, limit)
		if err != nil {
			log.Warn("Import failed", "period", period.String(), "error", err)
			r.Steps = append(r.Steps, StepResult{Name: period.String(), Err: err})
			continue
		}

		total := 0
		for _, t := range res.Themes {
			total += t.Articles
		}
		r.Steps = append(r.Steps, StepResult{
			Name:    period.String(),
			Summary: fmt.Sprintf("%d aggregated, %d imported across %d themes", res.Aggregated, total, len(res.Themes)),
		})
	}

	log.Info("Import range complete", "steps", len(r.Steps), "failed", r.Failed())
	return r
}

// GenerateRange builds a question for every (period, theme). Each build is
// its own unit of work; failures are logged and skipped.
func (p *Pipeline) GenerateRange(ctx context.Context, periods []semester.Period, themes []string) *Result {
	if len(themes) == 0 {
		themes = p.cfg.ThemeNames()
	}

	r := &Result{RunID: uuid.NewString()}
	log := p.log.With("run_id", r.RunID)
	log.Info("Generate range started", "periods", len(periods), "themes", len(themes))

	for _, period := range periods {
		for _, theme := range themes {
			name := theme + " " + period.String()
			if err := ctx.Err(); err != nil {
				r.Steps = append(r.Steps, StepResult{Name: name, Err: err})
				return r
			}

			payload, err := p.GenerateQuestion(ctx, question.Request{
				Theme:    theme,
				Year:     period.Year,
				Semester: string(period.Half),
			})
			if err != nil {
				log.Warn("Question skipped", "theme", theme, "period", period.String(), "error", err)
				r.Steps = append(r.Steps, StepResult{Name: name, Err: err})
				continue
			}
			r.Steps = append(r.Steps, StepResult{
				Name:    name,
				Summary: fmt.Sprintf("question %d", payload.ID),
			})
		}
	}

	log.Info("Generate range complete", "steps", len(r.Steps), "failed", r.Failed())
	return r
}

// Enrich fills missing article summaries.
func (p *Pipeline) Enrich(ctx context.Context, client fetch.SummarySource, limit int) StepResult {
	p.log.Info("Enriching article summaries", "limit", limit)
	fetcher := fetch.NewSummaryFetcher(p.db, client, p.log, p.cfg.Wikimedia.Timeout.Duration)
	result, err := fetcher.FetchMissingSummaries(ctx, limit)
	if err != nil {
		return StepResult{Name: "Enrich", Err: err}
	}
	return StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("Enriched %d articles (%d from page text), %d failed", result.Fetched, result.Extracted, result.Failed),
	}
}
