package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store           StoreConfig           `yaml:"store" mapstructure:"store"`
	Scrape          ScrapeConfig          `yaml:"scrape" mapstructure:"scrape"`
	Generation      GenerationConfig      `yaml:"generation" mapstructure:"generation"`
	Ollama          OllamaConfig          `yaml:"ollama" mapstructure:"ollama"`
	StableDiffusion StableDiffusionConfig `yaml:"stable_diffusion" mapstructure:"stable_diffusion"`
	Anthropic       AnthropicConfig       `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline        PipelineConfig        `yaml:"pipeline" mapstructure:"pipeline"`
	Server          ServerConfig          `yaml:"server" mapstructure:"server"`
	Log             LogConfig             `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ScrapeConfig configures lead acquisition.
type ScrapeConfig struct {
	// Browser selects the session backend: "http" or "chrome".
	Browser            string        `yaml:"browser" mapstructure:"browser"`
	Headless           bool          `yaml:"headless" mapstructure:"headless"`
	SearchBaseURL      string        `yaml:"search_base_url" mapstructure:"search_base_url"`
	UserAgent          string        `yaml:"user_agent" mapstructure:"user_agent"`
	QueryJitter        time.Duration `yaml:"query_jitter" mapstructure:"query_jitter"`
	CandidateDelay     time.Duration `yaml:"candidate_delay" mapstructure:"candidate_delay"`
	CandidateJitter    time.Duration `yaml:"candidate_jitter" mapstructure:"candidate_jitter"`
	SearchTimeout      time.Duration `yaml:"search_timeout" mapstructure:"search_timeout"`
	PageTimeout        time.Duration `yaml:"page_timeout" mapstructure:"page_timeout"`
	ContactPageTimeout time.Duration `yaml:"contact_page_timeout" mapstructure:"contact_page_timeout"`
	RequestsPerSecond  float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	VerifyMX           bool          `yaml:"verify_mx" mapstructure:"verify_mx"`
	DNSServers         []string      `yaml:"dns_servers" mapstructure:"dns_servers"`
}

// GenerationConfig selects and tunes the generative collaborators.
type GenerationConfig struct {
	// Provider selects the text generator: "ollama" or "anthropic".
	Provider     string        `yaml:"provider" mapstructure:"provider"`
	TextTimeout  time.Duration `yaml:"text_timeout" mapstructure:"text_timeout"`
	ImageTimeout time.Duration `yaml:"image_timeout" mapstructure:"image_timeout"`
	Retries      int           `yaml:"retries" mapstructure:"retries"`
}

// OllamaConfig holds the default text-generation endpoint. Stored settings
// override these values at campaign start.
type OllamaConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Model string `yaml:"model" mapstructure:"model"`
}

// StableDiffusionConfig holds the default image-generation endpoint.
type StableDiffusionConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig configures the enrichment orchestrator.
type PipelineConfig struct {
	MaxActiveCampaigns int    `yaml:"max_active_campaigns" mapstructure:"max_active_campaigns"`
	ContinueOnLeadErr  bool   `yaml:"continue_on_lead_error" mapstructure:"continue_on_lead_error"`
	MockupsDir         string `yaml:"mockups_dir" mapstructure:"mockups_dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional .env file, config.yaml and the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospects.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("scrape.browser", "http")
	v.SetDefault("scrape.headless", true)
	v.SetDefault("scrape.search_base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	v.SetDefault("scrape.query_jitter", 3*time.Second)
	v.SetDefault("scrape.candidate_delay", 1*time.Second)
	v.SetDefault("scrape.candidate_jitter", 2*time.Second)
	v.SetDefault("scrape.search_timeout", 30*time.Second)
	v.SetDefault("scrape.page_timeout", 15*time.Second)
	v.SetDefault("scrape.contact_page_timeout", 10*time.Second)
	v.SetDefault("scrape.requests_per_second", 2.0)
	v.SetDefault("scrape.verify_mx", false)
	v.SetDefault("scrape.dns_servers", []string{"8.8.8.8:53", "1.1.1.1:53"})
	v.SetDefault("generation.provider", "ollama")
	v.SetDefault("generation.text_timeout", 60*time.Second)
	v.SetDefault("generation.image_timeout", 120*time.Second)
	v.SetDefault("generation.retries", 1)
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3")
	v.SetDefault("stable_diffusion.url", "http://127.0.0.1:7860")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2000)
	v.SetDefault("pipeline.max_active_campaigns", 1)
	v.SetDefault("pipeline.continue_on_lead_error", false)
	v.SetDefault("pipeline.mockups_dir", "mockups")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks that the settings required by the given command mode are
// present and in range. Modes: "store", "campaign", "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	switch mode {
	case "store":
	case "campaign", "serve":
		switch c.Scrape.Browser {
		case "http", "chrome":
		default:
			problems = append(problems, "scrape.browser must be http or chrome")
		}
		switch c.Generation.Provider {
		case "ollama":
		case "anthropic":
			if c.Anthropic.Key == "" {
				problems = append(problems, "anthropic.key is required when generation.provider is anthropic")
			}
		default:
			problems = append(problems, "generation.provider must be ollama or anthropic")
		}
		if c.Pipeline.MaxActiveCampaigns < 1 {
			problems = append(problems, "pipeline.max_active_campaigns must be >= 1")
		}
		if c.Generation.Retries < 0 {
			problems = append(problems, "generation.retries must be >= 0")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}
