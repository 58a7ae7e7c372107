package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/SirGenkii/GoogleTrendGame/internal/database"
	"github.com/SirGenkii/GoogleTrendGame/internal/pipeline"
	"github.com/SirGenkii/GoogleTrendGame/internal/question"
	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
	"github.com/SirGenkii/GoogleTrendGame/internal/wikimedia"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatHuman, "JSON": FormatJSON, "text": FormatText} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestOutputStat_Human(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	s := &database.SemesterStat{Year: 2023, Semester: "S1", ViewsTotal: 1234567, ViewsAvgDaily: 6820.8}
	if err := f.OutputStat("Paris", s); err != nil {
		t.Fatalf("OutputStat failed: %v", err)
	}
	want := "Stats Paris 2023-S1: total=1,234,567, avg=6,820.8\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestOutputQuestion_JSON(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatJSON, &out, &errBuf)

	p := &question.Payload{ID: 7, Theme: "Sport", Year: 2022, Semester: "S2", Articles: []string{"Football", "Rugby"}}
	if err := f.OutputQuestion(p); err != nil {
		t.Fatalf("OutputQuestion failed: %v", err)
	}

	var decoded question.Payload
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if decoded.ID != 7 || len(decoded.Articles) != 2 {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestOutputQuestionList_Human(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	list := []database.QuestionSummary{{
		Question: database.Question{ID: 3, Year: 2024, Semester: "S1", Status: "ready"},
		Theme:    "Cinéma",
		Articles: []string{"Dune", "Barbie"},
	}}
	if err := f.OutputQuestionList(list); err != nil {
		t.Fatalf("OutputQuestionList failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{"THEME", "Cinéma", "2024-S1", "Dune, Barbie", "ready"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in output: %s", want, got)
		}
	}

	out.Reset()
	f.OutputQuestionList(nil)
	if !strings.Contains(out.String(), "No questions") {
		t.Errorf("expected empty message, got %q", out.String())
	}
}

func TestOutputRange_Human(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	r := &pipeline.Result{RunID: "run", Steps: []pipeline.StepResult{
		{Name: "Sport 2023-S1", Summary: "question 4"},
		{Name: "Sport 2023-S2", Err: fmt.Errorf("fetching: %w", &wikimedia.StatusError{Code: 404, URL: "https://x/y"})},
		{Name: "Cinéma 2023-S2", Err: question.ErrInsufficientArticles},
	}}
	if err := f.OutputRange(r); err != nil {
		t.Fatalf("OutputRange failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"OK Sport 2023-S1: question 4",
		"Skip Sport 2023-S2: HTTP 404 https://x/y",
		"Skip Cinéma 2023-S2: not enough articles",
		"Done: 1 ok, 2 skipped",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in output: %s", want, got)
		}
	}
}

func TestOutputRange_JSON(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatJSON, &out, &errBuf)

	r := &pipeline.Result{RunID: "abc", Steps: []pipeline.StepResult{{Name: "2023-S1", Err: errors.New("boom")}}}
	if err := f.OutputRange(r); err != nil {
		t.Fatalf("OutputRange failed: %v", err)
	}

	var decoded struct {
		RunID  string       `json:"run_id"`
		Steps  []StepOutput `json:"steps"`
		Failed int          `json:"failed"`
	}
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if decoded.RunID != "abc" || decoded.Failed != 1 || decoded.Steps[0].Error != "boom" {
		t.Errorf("unexpected output %+v", decoded)
	}
}

func TestOutputImport_Text(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatText, &out, &errBuf)

	r := &pipeline.ImportResult{
		Period:     semester.Period{Year: 2021, Half: semester.S2},
		Aggregated: 1200,
		Themes:     []pipeline.ThemeImport{{Theme: "Sport", Articles: 42}},
	}
	if err := f.OutputImport(r); err != nil {
		t.Fatalf("OutputImport failed: %v", err)
	}
	if !strings.Contains(out.String(), "period=2021-S2\ttheme=Sport\tarticles=42") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestOutputStatus_Human(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)

	s := &database.Stats{Themes: 6, Articles: 12500, Questions: 20, CompleteQuestions: 18}
	if err := f.OutputStatus("/tmp/wikipop.db", s); err != nil {
		t.Fatalf("OutputStatus failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "12,500") || !strings.Contains(got, "20 (18 complete)") {
		t.Errorf("unexpected status output: %s", got)
	}
}

func TestWarningGoesToStderr(t *testing.T) {
	var out, errBuf bytes.Buffer
	f := NewFormatterWithWriters(FormatHuman, &out, &errBuf)
	f.Warning("missing %s", "file")
	if out.Len() != 0 || errBuf.String() != "Warning: missing file\n" {
		t.Errorf("unexpected streams out=%q err=%q", out.String(), errBuf.String())
	}
}
