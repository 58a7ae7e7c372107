package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

// inTx runs fn in a transaction and fails the test on error.
func inTx(t *testing.T, db *DB, fn func(tx *Tx) error) {
	t.Helper()
	if err := db.InTx(context.Background(), fn); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}

var s1 = semester.Period{Year: 2024, Half: semester.S1}

func TestEnsureThemeIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var first, second *Theme
	inTx(t, db, func(tx *Tx) (err error) {
		first, err = EnsureTheme(ctx, tx, "Sport")
		return err
	})
	inTx(t, db, func(tx *Tx) (err error) {
		second, err = EnsureTheme(ctx, tx, "Sport")
		return err
	})

	if first.ID != second.ID {
		t.Errorf("expected same theme id, got %d and %d", first.ID, second.ID)
	}
	if n := countRows(t, db, "themes"); n != 1 {
		t.Errorf("expected 1 theme row, got %d", n)
	}
}

func TestEnsureArticleKeepsOriginalTitle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var first, second *Article
	inTx(t, db, func(tx *Tx) (err error) {
		first, err = EnsureArticle(ctx, tx, "Jeu vidéo", "fr.wikipedia")
		return err
	})
	inTx(t, db, func(tx *Tx) (err error) {
		second, err = EnsureArticle(ctx, tx, "Jeu_vidéo", "fr.wikipedia")
		return err
	})

	if first.ID != second.ID {
		t.Errorf("expected same article id, got %d and %d", first.ID, second.ID)
	}
	if second.Title != "Jeu vidéo" {
		t.Errorf("title was updated to %q", second.Title)
	}
	if second.Slug != "Jeu_vidéo" {
		t.Errorf("unexpected slug %q", second.Slug)
	}
	if n := countRows(t, db, "articles"); n != 1 {
		t.Errorf("expected 1 article row, got %d", n)
	}
}

func TestEnsureArticleProjectsAreDistinct(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	inTx(t, db, func(tx *Tx) error {
		fr, err := EnsureArticle(ctx, tx, "Paris", "fr.wikipedia")
		if err != nil {
			return err
		}
		en, err := EnsureArticle(ctx, tx, "Paris", "en.wikipedia")
		if err != nil {
			return err
		}
		if fr.ID == en.ID {
			t.Error("expected distinct articles per project")
		}
		return nil
	})
}

func TestLinkArticleThemeIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	inTx(t, db, func(tx *Tx) error {
		theme, err := EnsureTheme(ctx, tx, "Test")
		if err != nil {
			return err
		}
		a, err := EnsureArticle(ctx, tx, "Paris", "fr.wikipedia")
		if err != nil {
			return err
		}
		for range 3 {
			if err := LinkArticleTheme(ctx, tx, a, theme); err != nil {
				return err
			}
		}
		ids, err := ThemeArticleIDs(ctx, tx, theme.ID)
		if err != nil {
			return err
		}
		if len(ids) != 1 || ids[0] != a.ID {
			t.Errorf("unexpected theme article ids %v", ids)
		}
		return nil
	})
	if n := countRows(t, db, "article_themes"); n != 1 {
		t.Errorf("expected 1 link row, got %d", n)
	}
}

func TestInsertSemesterStatIsImmutable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	inTx(t, db, func(tx *Tx) error {
		a, err := EnsureArticle(ctx, tx, "Paris", "fr.wikipedia")
		if err != nil {
			return err
		}
		missing, err := GetSemesterStat(ctx, tx, a.ID, s1)
		if err != nil {
			return err
		}
		if missing != nil {
			t.Error("expected no stat before insert")
		}

		sum := semester.Aggregate(semester.Series{
			{Day: "20240101", Views: 10},
			{Day: "20240102", Views: 20},
		})
		first, err := InsertSemesterStat(ctx, tx, a.ID, s1, sum)
		if err != nil {
			return err
		}
		if first.ViewsTotal != 30 || first.ViewsAvgDaily != 15 {
			t.Errorf("unexpected stat %+v", first)
		}
		if len(first.Series) != 2 || first.Series[1].Day != "20240102" {
			t.Errorf("series not round-tripped: %+v", first.Series)
		}

		second, err := InsertSemesterStat(ctx, tx, a.ID, s1, semester.Summary{ViewsTotal: 999})
		if err != nil {
			return err
		}
		if second.ID != first.ID || second.ViewsTotal != 30 {
			t.Errorf("existing stat was modified: %+v", second)
		}
		return nil
	})
	if n := countRows(t, db, "article_semester_stats"); n != 1 {
		t.Errorf("expected 1 stat row, got %d", n)
	}
}

func TestInsertSemesterStatEmptySeries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	inTx(t, db, func(tx *Tx) error {
		a, err := EnsureArticle(ctx, tx, "Vide", "fr.wikipedia")
		if err != nil {
			return err
		}
		stat, err := InsertSemesterStat(ctx, tx, a.ID, s1, semester.Aggregate(nil))
		if err != nil {
			return err
		}
		if stat.ViewsTotal != 0 || stat.ViewsAvgDaily != 0 || len(stat.Series) != 0 {
			t.Errorf("unexpected empty stat %+v", stat)
		}
		return nil
	})
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.InTx(ctx, func(tx *Tx) error {
		if _, err := EnsureTheme(ctx, tx, "Rolled"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := countRows(t, db, "themes"); n != 0 {
		t.Errorf("expected rollback, found %d themes", n)
	}
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		db.InTx(ctx, func(tx *Tx) error {
			EnsureTheme(ctx, tx, "Panicked")
			panic("boom")
		})
	}()

	if n := countRows(t, db, "themes"); n != 0 {
		t.Errorf("expected rollback, found %d themes", n)
	}
}

// seedQuestion stores a question for theme with one article per title.
func seedQuestion(t *testing.T, db *DB, theme string, p semester.Period, titles ...string) *Question {
	t.Helper()
	ctx := context.Background()
	var q *Question
	inTx(t, db, func(tx *Tx) error {
		th, err := EnsureTheme(ctx, tx, theme)
		if err != nil {
			return err
		}
		q, err = InsertQuestion(ctx, tx, th.ID, p)
		if err != nil {
			return err
		}
		for i, title := range titles {
			a, err := EnsureArticle(ctx, tx, title, "fr.wikipedia")
			if err != nil {
				return err
			}
			stat, err := InsertSemesterStat(ctx, tx, a.ID, p, semester.Summary{
				ViewsTotal:    int64((i + 1) * 100),
				ViewsAvgDaily: float64(i + 1),
			})
			if err != nil {
				return err
			}
			if err := InsertQuestionArticle(ctx, tx, q.ID, stat); err != nil {
				return err
			}
		}
		return nil
	})
	return q
}

func TestQuestionUniquePerThemePeriod(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "Test", s1, "A", "B")

	err := db.InTx(ctx, func(tx *Tx) error {
		th, err := EnsureTheme(ctx, tx, "Test")
		if err != nil {
			return err
		}
		_, err = InsertQuestion(ctx, tx, th.ID, s1)
		return err
	})
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
	if n := countRows(t, db, "questions"); n != 1 {
		t.Errorf("expected 1 question, got %d", n)
	}
}

func TestFindQuestionAndTitles(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	q := seedQuestion(t, db, "Test", s1, "Zèbre", "Abeille", "Moustique")

	inTx(t, db, func(tx *Tx) error {
		th, err := GetThemeByName(ctx, tx, "Test")
		if err != nil {
			return err
		}
		found, err := FindQuestion(ctx, tx, th.ID, s1)
		if err != nil {
			return err
		}
		if found == nil || found.ID != q.ID || found.Status != StatusReady {
			t.Errorf("unexpected question %+v", found)
		}

		other, err := FindQuestion(ctx, tx, th.ID, semester.Period{Year: 2024, Half: semester.S2})
		if err != nil {
			return err
		}
		if other != nil {
			t.Error("expected no question for S2")
		}

		titles, err := QuestionArticleTitles(ctx, tx, q.ID)
		if err != nil {
			return err
		}
		want := []string{"Zèbre", "Abeille", "Moustique"}
		if len(titles) != len(want) {
			t.Fatalf("expected %d titles, got %v", len(want), titles)
		}
		for i := range want {
			if titles[i] != want[i] {
				t.Errorf("title %d = %q, want %q", i, titles[i], want[i])
			}
		}
		return nil
	})
}

func TestListQuestionsLatestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "Test", s1, "A")
	latest := seedQuestion(t, db, "Test", semester.Period{Year: 2024, Half: semester.S2}, "B", "C")

	list, err := db.ListQuestions(ctx, 10)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(list))
	}
	if list[0].ID != latest.ID {
		t.Errorf("expected latest question first, got %d", list[0].ID)
	}
	if list[0].Theme != "Test" || len(list[0].Articles) != 2 {
		t.Errorf("unexpected summary %+v", list[0])
	}

	limited, err := db.ListQuestions(ctx, 1)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

func TestGetQuestionDetail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	q := seedQuestion(t, db, "Test", s1, "A", "B")

	d, err := db.GetQuestionDetail(ctx, q.ID)
	if err != nil {
		t.Fatalf("GetQuestionDetail: %v", err)
	}
	if d == nil || len(d.Articles) != 2 {
		t.Fatalf("unexpected detail %+v", d)
	}
	if d.Articles[1].Title != "B" || d.Articles[1].ViewsTotal != 200 {
		t.Errorf("unexpected article %+v", d.Articles[1])
	}

	missing, err := db.GetQuestionDetail(ctx, 9999)
	if err != nil {
		t.Fatalf("GetQuestionDetail: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown question")
	}
}

func TestRandomReadyQuestionRequiresFullSize(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedQuestion(t, db, "Partial", s1, "A", "B")
	full := seedQuestion(t, db, "Full", s1, "C", "D", "E", "F")

	got, err := db.RandomReadyQuestion(ctx, "", 0, "", 4)
	if err != nil {
		t.Fatalf("RandomReadyQuestion: %v", err)
	}
	if got == nil || got.ID != full.ID {
		t.Fatalf("expected full question, got %+v", got)
	}

	none, err := db.RandomReadyQuestion(ctx, "Partial", 0, "", 4)
	if err != nil {
		t.Fatalf("RandomReadyQuestion: %v", err)
	}
	if none != nil {
		t.Error("expected no question for partial theme")
	}

	filtered, err := db.RandomReadyQuestion(ctx, "Full", 2024, "S2", 4)
	if err != nil {
		t.Fatalf("RandomReadyQuestion: %v", err)
	}
	if filtered != nil {
		t.Error("expected semester filter to exclude S1 question")
	}
}

func TestArticleMetadata(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var a *Article
	inTx(t, db, func(tx *Tx) (err error) {
		a, err = EnsureArticle(ctx, tx, "Paris", "fr.wikipedia")
		return err
	})

	missing, err := db.GetArticlesMissingSummary(ctx, 10)
	if err != nil {
		t.Fatalf("GetArticlesMissingSummary: %v", err)
	}
	if len(missing) != 1 {
		t.Fatalf("expected 1 article missing summary, got %d", len(missing))
	}

	err = db.UpdateArticleMetadata(ctx, a.ID, ArticleMetadata{
		PageID:   ptr(int64(681159)),
		Summary:  ptr("Capitale de la France."),
		ImageURL: ptr("https://upload.wikimedia.org/paris.jpg"),
	})
	if err != nil {
		t.Fatalf("UpdateArticleMetadata: %v", err)
	}

	missing, err = db.GetArticlesMissingSummary(ctx, 10)
	if err != nil {
		t.Fatalf("GetArticlesMissingSummary: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no articles missing summary, got %d", len(missing))
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	seedQuestion(t, db, "Test", s1, "A", "B", "C", "D")
	seedQuestion(t, db, "Other", s1, "A")

	s, err := db.GetStats(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if s.Themes != 2 || s.Articles != 4 || s.Questions != 2 || s.CompleteQuestions != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.SemesterStats != 4 {
		t.Errorf("expected 4 semester stats, got %d", s.SemesterStats)
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("Jeu vidéo de rôle"); got != "Jeu_vidéo_de_rôle" {
		t.Errorf("Slug = %q", got)
	}
}
