// Package config loads the service configuration from YAML with environment overrides.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kashmir-agri/farmers-corner/images/kernels"
	"github.com/kashmir-agri/farmers-corner/preprocess"
)

// Environment variables that override file values.
const (
	EnvAddr        = "FC_ADDR"
	EnvLogLevel    = "FC_LOG_LEVEL"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvGeminiModel = "GEMINI_MODEL"
)

// Config is the root configuration document.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PreprocessConfig exposes the tunable parts of the image pipeline.
type PreprocessConfig struct {
	MaxDimension int    `yaml:"max_dimension"`
	JPEGQuality  int    `yaml:"jpeg_quality"`
	Border       string `yaml:"border"`
	Edge         string `yaml:"edge"`
	Parallel     bool   `yaml:"parallel"`
}

// GeminiConfig configures the remote diagnosis model.
type GeminiConfig struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	ExpertModel string `yaml:"expert_model"`
	TTSModel    string `yaml:"tts_model"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a configuration usable without a file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Preprocess: PreprocessConfig{
			MaxDimension: preprocess.DefaultMaxDimension,
			JPEGQuality:  90,
			Border:       kernels.BorderZero.String(),
			Edge:         kernels.EdgeClamp.String(),
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			ExpertModel: "gemini-2.5-pro",
			TTSModel:    "gemini-2.5-flash-preview-tts",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv(EnvAddr, c.Server.Addr)
	c.Log.Level = getEnv(EnvLogLevel, c.Log.Level)
	c.Gemini.APIKey = getEnv(EnvGeminiKey, c.Gemini.APIKey)
	c.Gemini.Model = getEnv(EnvGeminiModel, c.Gemini.Model)
}

// Validate rejects values the pipeline or server cannot use.
func (c Config) Validate() error {
	if _, err := c.PreprocessConfig(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server addr must not be empty")
	}
	if c.Server.ShutdownTimeout < 0 {
		return errors.New("server shutdown_timeout must not be negative")
	}
	return nil
}

// PreprocessConfig converts the file settings into a pipeline configuration.
func (c Config) PreprocessConfig() (preprocess.Config, error) {
	border, err := kernels.ParseBorderPolicy(c.Preprocess.Border)
	if err != nil {
		return preprocess.Config{}, errors.Wrap(err, "preprocess.border")
	}

	edge, err := kernels.ParseEdgeMode(c.Preprocess.Edge)
	if err != nil {
		return preprocess.Config{}, errors.Wrap(err, "preprocess.edge")
	}

	pc := preprocess.DefaultConfig()
	pc.MaxDimension = c.Preprocess.MaxDimension
	pc.JPEGQuality = c.Preprocess.JPEGQuality
	pc.Border = border
	pc.Tonal.Edge = edge
	pc.Parallel = c.Preprocess.Parallel
	if err := pc.Validate(); err != nil {
		return preprocess.Config{}, errors.Wrap(err, "preprocess")
	}
	return pc, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
