package main

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SirGenkii/GoogleTrendGame/internal/collect"
	"github.com/SirGenkii/GoogleTrendGame/internal/config"
	"github.com/SirGenkii/GoogleTrendGame/internal/database"
	"github.com/SirGenkii/GoogleTrendGame/internal/logger"
	"github.com/SirGenkii/GoogleTrendGame/internal/output"
	"github.com/SirGenkii/GoogleTrendGame/internal/pipeline"
	"github.com/SirGenkii/GoogleTrendGame/internal/question"
	"github.com/SirGenkii/GoogleTrendGame/internal/semester"
	"github.com/SirGenkii/GoogleTrendGame/internal/server"
	"github.com/SirGenkii/GoogleTrendGame/internal/wikimedia"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	formatFlag string
	cfg        *config.Config
	appLog     *logger.Logger
	formatter  *output.Formatter
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "wikipop",
	Short:        "Wikipedia popularity questions",
	Long:         "wikipop aggregates Wikipedia pageviews per semester and assembles \"which article was the most viewed\" questions.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		appLog, err = logger.New(cfg.Logging.Mode, level)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLog != nil {
			appLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format: human, text or json")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(computeStatCmd)
	rootCmd.AddCommand(generateQuestionCmd)
	rootCmd.AddCommand(listQuestionsCmd)
	rootCmd.AddCommand(importTopCmd)
	rootCmd.AddCommand(importRangeCmd)
	rootCmd.AddCommand(generateRangeCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("wikipop", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/wikipop/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the database, the wiki project and the themes.")
		return nil
	},
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create or migrate the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		appLog.Info("Schema ready", "driver", db.Driver())
		fmt.Printf("Database ready: %s\n", displayPath(db))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context(), cfg.Questions.Size)
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		return formatter.OutputStatus(displayPath(db), stats)
	},
}

// --- seed command ---

var seedOpts collect.SeedOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a theme and link seed articles to it",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		opts := seedOpts
		if opts.Theme == "" {
			opts.Theme = cfg.Questions.DefaultTheme
		}
		result, err := collect.NewCollector(cfg, db, appLog).Seed(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return formatter.OutputSeed(result)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedOpts.Theme, "theme", "t", "", "Theme name (default: questions.default_theme)")
	seedCmd.Flags().StringVarP(&seedOpts.ArticlesFile, "articles-file", "f", "", "CSV file whose first column holds article titles")
	seedCmd.Flags().StringVar(&seedOpts.FeedURL, "feed", "", "RSS or Atom feed linking to wiki articles")
}

// --- single period commands ---

var (
	periodYear     int
	periodSemester string
)

// periodFlags registers -y/-s on cmd.
func periodFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&periodYear, "year", "y", 0, "Year (default: periods.year or $YEAR)")
	cmd.Flags().StringVarP(&periodSemester, "semester", "s", "", "Semester S1 or S2 (default: periods.semester or $SEMESTER)")
}

// resolvePeriod returns the flag values, falling back to the config.
func resolvePeriod(cmd *cobra.Command) (int, string) {
	year, sem := cfg.Periods.Year, cfg.Periods.Semester
	if cmd.Flags().Changed("year") {
		year = periodYear
	}
	if cmd.Flags().Changed("semester") {
		sem = periodSemester
	}
	return year, sem
}

var computeStatCmd = &cobra.Command{
	Use:   "compute-stat TITLE",
	Short: "Compute the semester stat of one article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, sem := resolvePeriod(cmd)

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, appLog, wikimedia.NewClient(cfg.Wikimedia))
		stat, err := pipe.ComputeStat(cmd.Context(), args[0], year, sem)
		if err != nil {
			return fmt.Errorf("computing stat for %s: %w", args[0], err)
		}
		return formatter.OutputStat(args[0], stat)
	},
}

var (
	questionTheme    string
	questionArticles string
)

var generateQuestionCmd = &cobra.Command{
	Use:   "generate-question",
	Short: "Build a question for a theme and semester",
	RunE: func(cmd *cobra.Command, args []string) error {
		year, sem := resolvePeriod(cmd)
		theme := questionTheme
		if theme == "" {
			theme = cfg.Questions.DefaultTheme
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, appLog, wikimedia.NewClient(cfg.Wikimedia))
		payload, err := pipe.GenerateQuestion(cmd.Context(), question.Request{
			Theme:    theme,
			Year:     year,
			Semester: sem,
			Articles: splitList(questionArticles),
		})
		if err != nil {
			return err
		}
		return formatter.OutputQuestion(payload)
	},
}

var listLimit int

var listQuestionsCmd = &cobra.Command{
	Use:   "list-questions",
	Short: "List the latest questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		list, err := db.ListQuestions(cmd.Context(), listLimit)
		if err != nil {
			return fmt.Errorf("listing questions: %w", err)
		}
		return formatter.OutputQuestionList(list)
	},
}

var importLimit int

var importTopCmd = &cobra.Command{
	Use:   "import-top",
	Short: "Import the most viewed articles of a semester into every theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		year, sem := resolvePeriod(cmd)
		period, err := semester.Parse(year, sem)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, appLog, wikimedia.NewClient(cfg.Wikimedia))
		result, err := pipe.ImportTop(cmd.Context(), period, resolveLimit(cmd))
		if err != nil {
			return fmt.Errorf("importing %s: %w", period, err)
		}
		return formatter.OutputImport(result)
	},
}

func init() {
	periodFlags(computeStatCmd)

	periodFlags(generateQuestionCmd)
	generateQuestionCmd.Flags().StringVarP(&questionTheme, "theme", "t", "", "Theme name (default: questions.default_theme)")
	generateQuestionCmd.Flags().StringVar(&questionArticles, "articles", "", "Comma separated article titles instead of a random draw")

	listQuestionsCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Number of questions to show")

	periodFlags(importTopCmd)
	importTopCmd.Flags().IntVarP(&importLimit, "limit", "n", 0, "Articles kept per theme (default: import.limit or $LIMIT)")
}

// resolveLimit returns --limit when set, else the configured limit.
func resolveLimit(cmd *cobra.Command) int {
	if cmd.Flags().Changed("limit") {
		return importLimit
	}
	return cfg.Import.Limit
}

// --- range commands ---

var (
	rangeStart  int
	rangeEnd    int
	rangeEndSem string
	rangeThemes string
)

// rangeFlags registers -a/-b/-e on cmd.
func rangeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&rangeStart, "start-year", "a", 0, "First year (default: periods.start_year or $START_YEAR)")
	cmd.Flags().IntVarP(&rangeEnd, "end-year", "b", 0, "Last year (default: periods.end_year or $END_YEAR)")
	cmd.Flags().StringVarP(&rangeEndSem, "end-semester", "e", "", "Last semester of the last year (default: periods.end_semester_last_year or $END_SEM_LAST)")
}

// resolveRange expands the range flags into periods, falling back to the
// config.
func resolveRange(cmd *cobra.Command) ([]semester.Period, error) {
	start, end, last := cfg.Periods.StartYear, cfg.Periods.EndYear, cfg.Periods.EndSemesterLastYear
	if cmd.Flags().Changed("start-year") {
		start = rangeStart
	}
	if cmd.Flags().Changed("end-year") {
		end = rangeEnd
	}
	if cmd.Flags().Changed("end-semester") {
		last = rangeEndSem
	}
	return semester.Periods(start, end, last)
}

var importRangeCmd = &cobra.Command{
	Use:   "import-range",
	Short: "Import the semester tops over a range of years",
	RunE: func(cmd *cobra.Command, args []string) error {
		periods, err := resolveRange(cmd)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, appLog, wikimedia.NewClient(cfg.Wikimedia))
		return formatter.OutputRange(pipe.ImportRange(cmd.Context(), periods, resolveLimit(cmd)))
	},
}

var generateRangeCmd = &cobra.Command{
	Use:   "generate-range",
	Short: "Build a question per theme and semester over a range of years",
	RunE: func(cmd *cobra.Command, args []string) error {
		periods, err := resolveRange(cmd)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, appLog, wikimedia.NewClient(cfg.Wikimedia))
		return formatter.OutputRange(pipe.GenerateRange(cmd.Context(), periods, splitList(rangeThemes)))
	},
}

func init() {
	rangeFlags(importRangeCmd)
	importRangeCmd.Flags().IntVarP(&importLimit, "limit", "n", 0, "Articles kept per theme (default: import.limit or $LIMIT)")

	rangeFlags(generateRangeCmd)
	generateRangeCmd.Flags().StringVar(&rangeThemes, "themes", "", "Comma separated themes (default: every configured theme)")
}

// --- enrich command ---

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill missing article summaries and images",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		client := wikimedia.NewClient(cfg.Wikimedia)
		pipe := pipeline.New(cfg, db, appLog, client)
		step := pipe.Enrich(cmd.Context(), client, enrichLimit)
		if step.Err != nil {
			return step.Err
		}
		formatter.OutputStep(step)
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVarP(&enrichLimit, "limit", "n", 50, "Maximum number of articles to enrich")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the question web server and API",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, db, appLog, port, cfg.Questions.Size)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on (default: server.port)")
}

func openDB() (*database.DB, error) {
	db, err := database.Connect(cfg.Database.Driver, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Database.Driver, err)
	}
	return db, nil
}

// displayPath hides postgres credentials.
func displayPath(db *database.DB) string {
	if db.Driver() == "sqlite" {
		return db.Path()
	}
	u, err := url.Parse(db.Path())
	if err != nil {
		return db.Driver()
	}
	return u.Redacted()
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
