package database

import "github.com/SirGenkii/GoogleTrendGame/internal/semester"

// StatusReady marks a question whose articles and stats are all stored.
const StatusReady = "ready"

// Theme is a named topical grouping of articles.
type Theme struct {
	ID        int64
	Name      string
	CreatedAt string
}

// Article is a wiki page identified by (project, slug).
type Article struct {
	ID        int64
	Project   string
	Slug      string
	Title     string
	PageID    *int64
	Summary   *string
	ImageURL  *string
	CreatedAt string
	UpdatedAt string
}

// ArticleMetadata holds the optional fields filled by enrichment.
type ArticleMetadata struct {
	PageID   *int64
	Summary  *string
	ImageURL *string
}

// SemesterStat is the immutable view aggregate of one article for one semester.
type SemesterStat struct {
	ID            int64
	ArticleID     int64
	Year          int
	Semester      string
	ViewsTotal    int64
	ViewsAvgDaily float64
	Series        semester.Series
	CreatedAt     string
}

// Question groups articles of a theme for one semester.
type Question struct {
	ID        int64
	ThemeID   int64
	Year      int
	Semester  string
	Status    string
	CreatedAt string
}

// QuestionArticle snapshots an article's stat at question creation time.
type QuestionArticle struct {
	ID            int64
	QuestionID    int64
	ArticleID     int64
	ViewsTotal    int64
	ViewsAvgDaily float64
}

// QuestionSummary is a question with its theme name and article titles.
type QuestionSummary struct {
	Question
	Theme    string
	Articles []string
}

// QuestionDetail is a question with its full article rows.
type QuestionDetail struct {
	Question
	Theme    string
	Articles []QuestionArticleDetail
}

// QuestionArticleDetail joins a question article with its article fields.
type QuestionArticleDetail struct {
	ArticleID     int64
	Title         string
	Slug          string
	Summary       *string
	ImageURL      *string
	ViewsTotal    int64
	ViewsAvgDaily float64
}

// Stats contains aggregate database statistics.
type Stats struct {
	Themes            int
	Articles          int
	ArticleThemes     int
	SemesterStats     int
	Questions         int
	CompleteQuestions int
}
