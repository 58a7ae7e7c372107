package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/SirGenkii/GoogleTrendGame/internal/collect"
	"github.com/SirGenkii/GoogleTrendGame/internal/database"
	"github.com/SirGenkii/GoogleTrendGame/internal/pipeline"
	"github.com/SirGenkii/GoogleTrendGame/internal/question"
	"github.com/SirGenkii/GoogleTrendGame/internal/wikimedia"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatHuman Format = "human"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatText, FormatHuman:
		return f, nil
	case "":
		return FormatHuman, nil
	}
	return "", fmt.Errorf("unknown format: %s", s)
}

type Formatter struct {
	format Format
	out    io.Writer
	err    io.Writer
}

// NewFormatter creates a new output formatter
func NewFormatter(format Format) *Formatter {
	return &Formatter{
		format: format,
		out:    os.Stdout,
		err:    os.Stderr,
	}
}

// NewFormatterWithWriters creates a formatter with custom output writers for testability
func NewFormatterWithWriters(format Format, out, errW io.Writer) *Formatter {
	return &Formatter{
		format: format,
		out:    out,
		err:    errW,
	}
}

// StatOutput is the JSON shape of a computed stat.
type StatOutput struct {
	Title         string  `json:"title"`
	Year          int     `json:"year"`
	Semester      string  `json:"semester"`
	ViewsTotal    int64   `json:"views_total"`
	ViewsAvgDaily float64 `json:"views_avg_daily"`
	Days          int     `json:"days"`
}

// OutputStat outputs the semester stat of one article
func (f *Formatter) OutputStat(title string, s *database.SemesterStat) error {
	o := StatOutput{
		Title:         title,
		Year:          s.Year,
		Semester:      s.Semester,
		ViewsTotal:    s.ViewsTotal,
		ViewsAvgDaily: s.ViewsAvgDaily,
		Days:          len(s.Series),
	}
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(o)
	case FormatText:
		fmt.Fprintf(f.out, "title=%s\tperiod=%d-%s\ttotal=%d\tavg=%.1f\tdays=%d\n",
			o.Title, o.Year, o.Semester, o.ViewsTotal, o.ViewsAvgDaily, o.Days)
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Stats %s %d-%s: total=%s, avg=%s\n",
			o.Title, o.Year, o.Semester, humanize.Comma(o.ViewsTotal), humanize.CommafWithDigits(o.ViewsAvgDaily, 1))
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputQuestion outputs a generated or existing question
func (f *Formatter) OutputQuestion(p *question.Payload) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(p)
	case FormatText:
		fmt.Fprintf(f.out, "id=%d\ttheme=%s\tperiod=%d-%s\tarticles=%s\n",
			p.ID, p.Theme, p.Year, p.Semester, strings.Join(p.Articles, "|"))
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Question #%d - theme %s %d-%s with %s\n",
			p.ID, p.Theme, p.Year, p.Semester, strings.Join(p.Articles, ", "))
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// QuestionRow is the JSON shape of a listed question.
type QuestionRow struct {
	ID       int64    `json:"id"`
	Theme    string   `json:"theme"`
	Period   string   `json:"period"`
	Articles []string `json:"articles"`
	Status   string   `json:"status"`
}

// OutputQuestionList outputs the latest questions
func (f *Formatter) OutputQuestionList(list []database.QuestionSummary) error {
	rows := make([]QuestionRow, 0, len(list))
	for _, q := range list {
		rows = append(rows, QuestionRow{
			ID:       q.ID,
			Theme:    q.Theme,
			Period:   fmt.Sprintf("%d-%s", q.Year, q.Semester),
			Articles: q.Articles,
			Status:   q.Status,
		})
	}

	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(rows)
	case FormatText:
		for _, r := range rows {
			fmt.Fprintf(f.out, "id=%d\ttheme=%s\tperiod=%s\tstatus=%s\tarticles=%s\n",
				r.ID, r.Theme, r.Period, r.Status, strings.Join(r.Articles, "|"))
		}
		return nil
	case FormatHuman:
		if len(rows) == 0 {
			fmt.Fprintln(f.out, "No questions")
			return nil
		}
		w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTHEME\tPERIOD\tARTICLES\tSTATUS")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Theme, r.Period, strings.Join(r.Articles, ", "), r.Status)
		}
		return w.Flush()
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputSeed outputs the result of a seed run
func (f *Formatter) OutputSeed(r *collect.Result) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(map[string]interface{}{
			"theme":    r.Theme,
			"source":   r.Source,
			"articles": r.Articles,
		})
	case FormatText:
		fmt.Fprintf(f.out, "theme=%s\tsource=%s\tarticles=%d\n", r.Theme, r.Source, r.Articles)
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Seeded theme '%s' with %d articles (%s)\n", r.Theme, r.Articles, r.Source)
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputImport outputs the result of a single top import
func (f *Formatter) OutputImport(r *pipeline.ImportResult) error {
	switch f.format {
	case FormatJSON:
		type theme struct {
			Theme    string `json:"theme"`
			Articles int    `json:"articles"`
		}
		themes := make([]theme, 0, len(r.Themes))
		for _, t := range r.Themes {
			themes = append(themes, theme{Theme: t.Theme, Articles: t.Articles})
		}
		return json.NewEncoder(f.out).Encode(map[string]interface{}{
			"period":     r.Period.String(),
			"aggregated": r.Aggregated,
			"themes":     themes,
		})
	case FormatText:
		for _, t := range r.Themes {
			fmt.Fprintf(f.out, "period=%s\ttheme=%s\tarticles=%d\n", r.Period, t.Theme, t.Articles)
		}
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "%s articles aggregated from the %s tops\n", humanize.Comma(int64(r.Aggregated)), r.Period)
		for _, t := range r.Themes {
			fmt.Fprintf(f.out, "Theme '%s': %d articles kept\n", t.Theme, t.Articles)
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// StepOutput is the JSON shape of one batch step.
type StepOutput struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OutputRange outputs every step of a range run; failed steps are
// reported as skipped.
func (f *Formatter) OutputRange(r *pipeline.Result) error {
	switch f.format {
	case FormatJSON:
		steps := make([]StepOutput, 0, len(r.Steps))
		for _, s := range r.Steps {
			o := StepOutput{Name: s.Name, OK: s.Err == nil, Summary: s.Summary}
			if s.Err != nil {
				o.Error = Reason(s.Err)
			}
			steps = append(steps, o)
		}
		return json.NewEncoder(f.out).Encode(map[string]interface{}{
			"run_id": r.RunID,
			"steps":  steps,
			"failed": r.Failed(),
		})
	case FormatText, FormatHuman:
		for _, s := range r.Steps {
			f.OutputStep(s)
		}
		if f.format == FormatHuman {
			fmt.Fprintf(f.out, "Done: %d ok, %d skipped\n", len(r.Steps)-r.Failed(), r.Failed())
		}
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputStep outputs a single step result
func (f *Formatter) OutputStep(s pipeline.StepResult) {
	switch f.format {
	case FormatJSON:
		o := StepOutput{Name: s.Name, OK: s.Err == nil, Summary: s.Summary}
		if s.Err != nil {
			o.Error = Reason(s.Err)
		}
		json.NewEncoder(f.out).Encode(o)
	case FormatText:
		if s.Err != nil {
			fmt.Fprintf(f.out, "step=%s\tstatus=skip\treason=%s\n", s.Name, Reason(s.Err))
		} else {
			fmt.Fprintf(f.out, "step=%s\tstatus=ok\tsummary=%s\n", s.Name, s.Summary)
		}
	case FormatHuman:
		if s.Err != nil {
			fmt.Fprintf(f.out, "Skip %s: %s\n", s.Name, Reason(s.Err))
		} else {
			fmt.Fprintf(f.out, "OK %s: %s\n", s.Name, s.Summary)
		}
	}
}

// OutputStatus outputs database counts
func (f *Formatter) OutputStatus(dbPath string, s *database.Stats) error {
	switch f.format {
	case FormatJSON:
		return json.NewEncoder(f.out).Encode(map[string]interface{}{
			"database":           dbPath,
			"themes":             s.Themes,
			"articles":           s.Articles,
			"article_themes":     s.ArticleThemes,
			"semester_stats":     s.SemesterStats,
			"questions":          s.Questions,
			"complete_questions": s.CompleteQuestions,
		})
	case FormatText:
		fmt.Fprintf(f.out, "themes=%d\narticles=%d\narticle_themes=%d\nsemester_stats=%d\nquestions=%d\ncomplete_questions=%d\n",
			s.Themes, s.Articles, s.ArticleThemes, s.SemesterStats, s.Questions, s.CompleteQuestions)
		return nil
	case FormatHuman:
		fmt.Fprintf(f.out, "Database: %s\n\n", dbPath)
		w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Themes:\t%s\n", humanize.Comma(int64(s.Themes)))
		fmt.Fprintf(w, "Articles:\t%s\n", humanize.Comma(int64(s.Articles)))
		fmt.Fprintf(w, "Theme links:\t%s\n", humanize.Comma(int64(s.ArticleThemes)))
		fmt.Fprintf(w, "Semester stats:\t%s\n", humanize.Comma(int64(s.SemesterStats)))
		fmt.Fprintf(w, "Questions:\t%s (%s complete)\n", humanize.Comma(int64(s.Questions)), humanize.Comma(int64(s.CompleteQuestions)))
		return w.Flush()
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// Error outputs an error message to stderr
func (f *Formatter) Error(format string, args ...interface{}) {
	fmt.Fprintf(f.err, format+"\n", args...)
}

// Warning outputs a warning message to stderr
func (f *Formatter) Warning(format string, args ...interface{}) {
	fmt.Fprintf(f.err, "Warning: "+format+"\n", args...)
}

// Reason formats a step failure, showing the HTTP status and URL of
// remote errors.
func Reason(err error) string {
	var se *wikimedia.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("HTTP %d %s", se.Code, se.URL)
	}
	return err.Error()
}
