package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Database  Database  `yaml:"database" toml:"database"`
	Wikimedia Wikimedia `yaml:"wikimedia" toml:"wikimedia"`
	Periods   Periods   `yaml:"periods" toml:"periods"`
	Import    Import    `yaml:"import" toml:"import"`
	Questions Questions `yaml:"questions" toml:"questions"`
	Seed      Seed      `yaml:"seed" toml:"seed"`
	Themes    []Theme   `yaml:"themes" toml:"themes"`
	Output    Output    `yaml:"output" toml:"output"`
	Server    Server    `yaml:"server" toml:"server"`
	Logging   Logging   `yaml:"logging" toml:"logging"`
}

type Database struct {
	Driver string `yaml:"driver" toml:"driver"`
	URL    string `yaml:"url" toml:"url"`
}

type Wikimedia struct {
	Project    string   `yaml:"project" toml:"project"`
	UserAgent  string   `yaml:"user_agent" toml:"user_agent"`
	MetricsURL string   `yaml:"metrics_url" toml:"metrics_url"`
	SiteURL    string   `yaml:"site_url" toml:"site_url"`
	Timeout    Duration `yaml:"timeout" toml:"timeout"`
}

type Periods struct {
	StartYear           int    `yaml:"start_year" toml:"start_year"`
	EndYear             int    `yaml:"end_year" toml:"end_year"`
	EndSemesterLastYear string `yaml:"end_semester_last_year" toml:"end_semester_last_year"`
	// Year and Semester are the defaults of single-period commands.
	Year     int    `yaml:"year" toml:"year"`
	Semester string `yaml:"semester" toml:"semester"`
}

type Import struct {
	Limit int `yaml:"limit" toml:"limit"`
}

type Questions struct {
	Size         int    `yaml:"size" toml:"size"`
	DefaultTheme string `yaml:"default_theme" toml:"default_theme"`
}

type Seed struct {
	ArticlesFile string   `yaml:"articles_file" toml:"articles_file"`
	Articles     []string `yaml:"articles" toml:"articles"`
}

// Theme is a named topical grouping. An empty keyword list matches every title.
type Theme struct {
	Name     string   `yaml:"name" toml:"name"`
	Keywords []string `yaml:"keywords" toml:"keywords"`
}

type Output struct {
	DataDir string `yaml:"data_dir" toml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port" toml:"port"`
}

type Logging struct {
	Level string `yaml:"level" toml:"level"`
	Mode  string `yaml:"mode" toml:"mode"`
}

// Duration decodes "20s"-style strings from YAML and TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// ConfigDir returns the XDG config directory for wikipop.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "wikipop")
}

// DataDir returns the XDG data directory for wikipop.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "wikipop")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/wikipop/config.yaml > ./config.yaml.
// An empty path with a nil error means the embedded defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads a YAML or TOML config file, then applies .env files and
// environment overrides. An empty path loads the embedded defaults.
func Load(path string) (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	var (
		cfg *Config
		err error
	)
	switch {
	case path == "":
		cfg, err = parse(DefaultConfigYAML)
	case strings.EqualFold(filepath.Ext(path), ".toml"):
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		cfg, err = parseTOML(data)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		cfg, err = parse(data)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns a Config holding every default value.
func defaults() *Config {
	return &Config{
		Database: Database{Driver: "sqlite"},
		Wikimedia: Wikimedia{
			Project:    "fr.wikipedia",
			UserAgent:  "WikiPopBattle/0.1 (contact@example.com)",
			MetricsURL: "https://wikimedia.org/api/rest_v1/metrics/pageviews",
			Timeout:    Duration{20 * time.Second},
		},
		Periods: Periods{
			StartYear:           2015,
			EndYear:             2025,
			EndSemesterLastYear: "S1",
			Year:                time.Now().Year(),
			Semester:            "S1",
		},
		Import:    Import{Limit: 500},
		Questions: Questions{Size: 4, DefaultTheme: "Général"},
		Server:    Server{Port: 8000},
		Logging:   Logging{Level: "INFO", Mode: "dev"},
	}
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// parseTOML parses TOML bytes into a Config, applying defaults.
func parseTOML(data []byte) (*Config, error) {
	cfg := defaults()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides config values from WIKI_* variables and the range
// command variables (START_YEAR, END_YEAR, END_SEM_LAST, YEAR, SEMESTER, LIMIT).
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", key, v)
		}
		*dst = n
		return nil
	}

	str("WIKI_DB_URL", &c.Database.URL)
	str("WIKI_DB_DRIVER", &c.Database.Driver)
	str("WIKI_PROJECT", &c.Wikimedia.Project)
	str("WIKI_USER_AGENT", &c.Wikimedia.UserAgent)
	str("WIKI_LOG_LEVEL", &c.Logging.Level)
	str("WIKI_SAMPLE_ARTICLES_FILE", &c.Seed.ArticlesFile)
	str("END_SEM_LAST", &c.Periods.EndSemesterLastYear)
	str("SEMESTER", &c.Periods.Semester)

	// Later entries win: START_YEAR overrides WIKI_DEFAULT_START_YEAR.
	overrides := []struct {
		key string
		dst *int
	}{
		{"WIKI_DEFAULT_START_YEAR", &c.Periods.StartYear},
		{"WIKI_DEFAULT_END_YEAR", &c.Periods.EndYear},
		{"START_YEAR", &c.Periods.StartYear},
		{"END_YEAR", &c.Periods.EndYear},
		{"YEAR", &c.Periods.Year},
		{"LIMIT", &c.Import.Limit},
	}
	for _, o := range overrides {
		if err := num(o.key, o.dst); err != nil {
			return err
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabaseURL returns the configured DSN, defaulting to a SQLite file in
// the data directory.
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return filepath.Join(c.GetDataDir(), "wikipop.db")
}

// ThemeNames returns the configured theme names in order.
func (c *Config) ThemeNames() []string {
	names := make([]string, 0, len(c.Themes))
	for _, t := range c.Themes {
		names = append(names, t.Name)
	}
	return names
}

// Site returns the base URL of the wiki itself, e.g. https://fr.wikipedia.org.
func (w Wikimedia) Site() string {
	if w.SiteURL != "" {
		return strings.TrimRight(w.SiteURL, "/")
	}
	return "https://" + strings.TrimSuffix(w.Project, ".org") + ".org"
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
