package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Assay/internal/candidate"
	"github.com/MikeSquared-Agency/Assay/internal/scoring"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Hermes     HermesConfig     `yaml:"hermes"`
	Model      ModelConfig      `yaml:"model"`
	Reference  ReferenceConfig  `yaml:"reference"`
	Candidates candidate.Roles  `yaml:"candidates"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

// ModelConfig selects the predictor: the remote model server at URL when set,
// otherwise the local artifact at Path.
type ModelConfig struct {
	Path      string `yaml:"path"`
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type ReferenceConfig struct {
	Path           string  `yaml:"path"`
	MaxDensity     float64 `yaml:"max_density"`
	MaxBulkModulus float64 `yaml:"max_bulk_modulus"`
	StableOnly     bool    `yaml:"stable_only"`
}

type RankingConfig struct {
	StabilityThreshold float64 `yaml:"stability_threshold"`
	TopK               int     `yaml:"top_k"`
	Workers            int     `yaml:"workers"`
	RequireStability   bool    `yaml:"require_stability"`
}

type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.TimeoutMs) * time.Millisecond
}

// Thresholds returns the ranking thresholds in scoring form.
func (c *Config) Thresholds() scoring.Thresholds {
	return scoring.Thresholds{
		StabilityThreshold: c.Ranking.StabilityThreshold,
		TopK:               c.Ranking.TopK,
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if c.Ranking.Workers < 1 {
		return fmt.Errorf("ranking.workers must be at least 1, got %d", c.Ranking.Workers)
	}
	if c.Model.Path == "" && c.Model.URL == "" {
		return fmt.Errorf("model.path or model.url is required")
	}
	switch c.Output.Format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("output.format must be table, json or yaml, got %q", c.Output.Format)
	}
	return nil
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Model: ModelConfig{
			Path:      "models/regressor.yaml",
			TimeoutMs: 60000,
		},
		Reference: ReferenceConfig{
			Path:           "data/materials_cleaned.csv",
			MaxDensity:     12,
			MaxBulkModulus: 450,
		},
		Candidates: candidate.DefaultRoles(),
		Ranking: RankingConfig{
			StabilityThreshold: 67,
			TopK:               10,
			Workers:            4,
			RequireStability:   true,
		},
		Output: OutputConfig{
			Path:   "data/candidates.csv",
			Format: "table",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ASSAY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ASSAY_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("ASSAY_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("ASSAY_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ASSAY_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("ASSAY_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("ASSAY_MODEL_URL"); v != "" {
		cfg.Model.URL = v
	}
	if v := os.Getenv("ASSAY_MODEL_TOKEN"); v != "" {
		cfg.Model.Token = v
	}
	if v := os.Getenv("ASSAY_REFERENCE_PATH"); v != "" {
		cfg.Reference.Path = v
	}
	if v := os.Getenv("ASSAY_STABILITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ranking.StabilityThreshold = f
		}
	}
	if v := os.Getenv("ASSAY_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ranking.TopK = n
		}
	}
	if v := os.Getenv("ASSAY_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ranking.Workers = n
		}
	}
	if v := os.Getenv("ASSAY_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("ASSAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
