package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/SirGenkii/GoogleTrendGame/internal/database"
	"github.com/SirGenkii/GoogleTrendGame/internal/logger"
	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var (
	md     = goldmark.New()
	policy = bluemonday.UGCPolicy()
)

// Server serves the question pages and the question API used by the game.
type Server struct {
	db    *database.DB
	log   *logger.Logger
	size  int
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server. size is the number of articles a question
// needs to be served by the API.
func New(db *database.DB, log *logger.Logger, size int) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"comma":    humanize.Comma,
		"avg": func(f float64) string {
			return humanize.CommafWithDigits(f, 1)
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of the base so that their
	// {{define "content"}} blocks do not collide.
	pageNames := []string{"index.html", "question.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, log: log, size: size, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/question/", s.handleQuestion)
	s.mux.HandleFunc("/api/questions/random", s.handleRandomQuestion)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	questions, err := s.db.ListQuestions(r.Context(), 100)
	if err != nil {
		s.log.Error("Listing questions failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Questions": questions,
	})
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/question/"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	q, err := s.db.GetQuestionDetail(r.Context(), id)
	if err != nil {
		s.log.Error("Loading question failed", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if q == nil {
		http.NotFound(w, r)
		return
	}

	s.render(w, "question.html", map[string]any{
		"Question": q,
		"Answer":   answerOrder(q.Articles),
	})
}

// ArticleJSON is one article of a served question.
type ArticleJSON struct {
	Title         string  `json:"title"`
	Summary       *string `json:"summary"`
	ImageURL      *string `json:"image_url"`
	ViewsTotal    int64   `json:"views_total"`
	ViewsAvgDaily float64 `json:"views_avg_daily"`
}

// QuestionJSON is the question shape consumed by the game.
type QuestionJSON struct {
	ID       int64         `json:"id"`
	Theme    string        `json:"theme"`
	Year     int           `json:"year"`
	Semester string        `json:"semester"`
	Articles []ArticleJSON `json:"articles"`
	// Answer lists the titles from the least to the most viewed.
	Answer []string `json:"answer"`
}

func (s *Server) handleRandomQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := r.URL.Query()
	theme := strings.TrimSpace(query.Get("theme"))

	year := 0
	if v := query.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "year must be an integer"})
			return
		}
		year = n
	}

	half := strings.ToUpper(query.Get("semester"))
	if half != "" {
		if _, err := semester.Parse(year, half); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	q, err := s.db.RandomReadyQuestion(r.Context(), theme, year, half, s.size)
	if err != nil {
		s.log.Error("Picking random question failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if q == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no question available"})
		return
	}

	out := QuestionJSON{
		ID:       q.ID,
		Theme:    q.Theme,
		Year:     q.Year,
		Semester: q.Semester,
		Articles: make([]ArticleJSON, 0, len(q.Articles)),
		Answer:   answerOrder(q.Articles),
	}
	for _, a := range q.Articles {
		out.Articles = append(out.Articles, ArticleJSON{
			Title:         a.Title,
			Summary:       a.Summary,
			ImageURL:      a.ImageURL,
			ViewsTotal:    a.ViewsTotal,
			ViewsAvgDaily: a.ViewsAvgDaily,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// answerOrder returns the titles sorted by average daily views, lowest
// first.
func answerOrder(articles []database.QuestionArticleDetail) []string {
	sorted := make([]database.QuestionArticleDetail, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ViewsAvgDaily < sorted[j].ViewsAvgDaily
	})
	titles := make([]string, len(sorted))
	for i, a := range sorted {
		titles[i] = a.Title
	}
	return titles
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("Template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.log.Error("Rendering template failed", "template", name, "error", err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())) //nolint: gosec
}

// Serve starts the HTTP server on the given port and shuts it down when
// ctx is cancelled.
func Serve(ctx context.Context, db *database.DB, log *logger.Logger, port, size int) error {
	srv, err := New(db, log, size)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "url", "http://"+addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
