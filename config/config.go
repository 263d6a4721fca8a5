package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig
	Browser   BrowserConfig
	Resolver  ResolverConfig
	Scheduler SchedulerConfig
	OpsDBPath string
	LogLevel  string
	Sources   map[string]*SourceConfig
}

type DatabaseConfig struct {
	DSN string
}

type BrowserConfig struct {
	UserDataDir string
	Headless    bool
	SlowMoMS    int
}

type ResolverConfig struct {
	// ScrapeDeadline bounds one full search-and-extract sequence; individual
	// element waits already time out, this caps their accumulation.
	ScrapeDeadline time.Duration
	// PreviewTTL is how long an unconfirmed resolution preview is held
	// before the reaper drops it.
	PreviewTTL time.Duration
}

type SchedulerConfig struct {
	Cron string
}

// SourceConfig describes one external mapping site: its selectors and the
// keyword lists the extractor matches info blocks against. Kept in YAML so
// a site layout change is a config edit, not a rebuild.
type SourceConfig struct {
	ID                  string        `yaml:"id"`
	Name                string        `yaml:"name"`
	BaseURL             string        `yaml:"base_url"`
	SearchInput         string        `yaml:"search_input"`
	Selectors           SelectorSet   `yaml:"selectors"`
	ResidentialKeywords []string      `yaml:"residential_keywords"`
	FloorKeyword        string        `yaml:"floor_keyword"`
	EntranceKeyword     string        `yaml:"entrance_keyword"`
	Timeouts            TimeoutConfig `yaml:"timeouts"`
}

type SelectorSet struct {
	Card            string `yaml:"card"`
	ResultList      string `yaml:"result_list"`
	ResultItem      string `yaml:"result_item"`
	ResultLink      string `yaml:"result_link"`
	ResultType      string `yaml:"result_type"`
	Title           string `yaml:"title"`
	AddressParts    string `yaml:"address_parts"`
	InfoBlocks      string `yaml:"info_blocks"`
	EntrancesBlock  string `yaml:"entrances_block"`
	ApartmentToggle string `yaml:"apartment_toggle"`
	ApartmentPanel  string `yaml:"apartment_panel"`
	ApartmentLine   string `yaml:"apartment_line"`
	ScheduleToggle  string `yaml:"schedule_toggle"`
	ScheduleRows    string `yaml:"schedule_rows"`
	PhoneReveal     string `yaml:"phone_reveal"`
	PhoneValue      string `yaml:"phone_value"`
	CommentsBlock   string `yaml:"comments_block"`
}

type TimeoutConfig struct {
	CardMS    int `yaml:"card_ms"`
	SearchMS  int `yaml:"search_ms"`
	ResultsMS int `yaml:"results_ms"`
	FieldMS   int `yaml:"field_ms"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			DSN: os.Getenv("DATABASE_URL"),
		},
		Browser: BrowserConfig{
			UserDataDir: getEnv("BROWSER_PROFILE_DIR", "user_data"),
			Headless:    os.Getenv("BROWSER_HEADLESS") != "false",
			SlowMoMS:    getEnvInt("BROWSER_SLOWMO_MS", 50),
		},
		Resolver: ResolverConfig{
			ScrapeDeadline: getEnvDuration("SCRAPE_DEADLINE", 90*time.Second),
			PreviewTTL:     getEnvDuration("PREVIEW_TTL", 10*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("HEALTHCHECK_CRON"),
		},
		OpsDBPath: getEnv("OPS_DB_PATH", "techline.db"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Sources:   make(map[string]*SourceConfig),
	}

	if err := cfg.loadSourceConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSourceConfigs() error {
	configDir := "config/sources"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var source SourceConfig
		if err := yaml.Unmarshal(data, &source); err != nil {
			return err
		}

		c.Sources[source.ID] = &source
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
