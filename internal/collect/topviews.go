package collect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
	"github.com/SirGenkii/GoogleTrendGame/internal/wikimedia"
)

// TopSource fetches the monthly top articles of a project.
type TopSource interface {
	FetchMonthlyTop(ctx context.Context, year, month int) ([]wikimedia.TopEntry, error)
}

// TopArticle is a title from the semester top lists with its aggregate.
type TopArticle struct {
	Title   string
	Summary semester.Summary
}

// ignoredTitles are navigation pages that show up in every top list.
var ignoredTitles = map[string]struct{}{
	"Main_Page":                  {},
	"Special:Search":             {},
	"Sp%C3%A9cial%3ARecherche":   {},
	"Spécial:Recherche":          {},
	"Wikipédia:Accueil_principal": {},
	"-":                          {},
}

// SemesterTop downloads the top list of every month of the period and
// aggregates the views of each title per day. A month that is not
// published yet counts as empty. The result is ordered by total views,
// highest first.
func SemesterTop(ctx context.Context, src TopSource, p semester.Period) ([]TopArticle, error) {
	perTitle := make(map[string]semester.Series)

	for _, month := range p.Months() {
		entries, err := src.FetchMonthlyTop(ctx, p.Year, month)
		if errors.Is(err, wikimedia.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetching top for %d-%02d: %w", p.Year, month, err)
		}

		for _, e := range entries {
			if _, skip := ignoredTitles[e.Title]; skip || e.Title == "" || e.Day == "" {
				continue
			}
			perTitle[e.Title] = append(perTitle[e.Title], semester.DailyViews{Day: e.Day, Views: e.Views})
		}
	}

	top := make([]TopArticle, 0, len(perTitle))
	for title, series := range perTitle {
		top = append(top, TopArticle{Title: title, Summary: semester.Aggregate(series)})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Summary.ViewsTotal != top[j].Summary.ViewsTotal {
			return top[i].Summary.ViewsTotal > top[j].Summary.ViewsTotal
		}
		return top[i].Title < top[j].Title
	})
	return top, nil
}

// MatchesKeywords reports whether title contains any keyword, ignoring
// case. Underscores and spaces are equivalent on both sides. Blank
// keywords are dropped; with none left every title matches.
func MatchesKeywords(title string, keywords []string) bool {
	var kws []string
	for _, kw := range keywords {
		if kw = normalizeTitle(kw); strings.TrimSpace(kw) != "" {
			kws = append(kws, kw)
		}
	}
	if len(kws) == 0 {
		return true
	}
	norm := normalizeTitle(title)
	for _, kw := range kws {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", " "))
}

// SelectForTheme keeps the titles matching keywords, in rank order, up to
// limit entries. A limit of zero or less keeps every match.
func SelectForTheme(top []TopArticle, keywords []string, limit int) []TopArticle {
	var selected []TopArticle
	for _, a := range top {
		if limit > 0 && len(selected) >= limit {
			break
		}
		if MatchesKeywords(a.Title, keywords) {
			selected = append(selected, a)
		}
	}
	return selected
}
