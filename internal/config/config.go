// Package config resolves the server configuration in priority order:
// defaults, then the YAML file, then environment overrides. Command flags
// are applied by the caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cardfraud/inference-api/internal/domain"
)

// Config is the resolved runtime configuration.
type Config struct {
	Port        int
	ServiceName string

	ModelPath  string
	ScalerPath string
	ScalerMode string
	Policy     string

	JaegerEndpoint string
	TraceRatio     float64

	LogLevel  string
	LogFormat string

	AlertWebhooks []string
	AlertTimeout  time.Duration
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	Server struct {
		Port        int    `yaml:"port"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"server"`
	Model struct {
		Path       string `yaml:"path"`
		ScalerPath string `yaml:"scaler_path"`
		ScalerMode string `yaml:"scaler_mode"`
		Policy     string `yaml:"policy"`
	} `yaml:"model"`
	Tracing struct {
		JaegerEndpoint string   `yaml:"jaeger_endpoint"`
		SampleRatio    *float64 `yaml:"sample_ratio"`
	} `yaml:"tracing"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Alerts struct {
		Webhooks []string `yaml:"webhooks"`
		Timeout  string   `yaml:"timeout"`
	} `yaml:"alerts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:         8080,
		ServiceName:  "fraud-inference",
		ModelPath:    "data/model.json",
		ScalerPath:   "data/scaler.json",
		ScalerMode:   domain.ScalerFitted,
		Policy:       domain.PolicyModelOrInvalidCard,
		TraceRatio:   1,
		LogLevel:     "info",
		LogFormat:    "text",
		AlertTimeout: 5 * time.Second,
	}
}

// Load resolves configuration from path and the environment. A missing file
// is not an error; an unreadable or unparsable one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.applyFile(raw); err != nil {
				return Config{}, err
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyFile(raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Server.Port > 0 {
		c.Port = f.Server.Port
	}
	if f.Server.ServiceName != "" {
		c.ServiceName = f.Server.ServiceName
	}
	if f.Model.Path != "" {
		c.ModelPath = f.Model.Path
	}
	if f.Model.ScalerPath != "" {
		c.ScalerPath = f.Model.ScalerPath
	}
	if f.Model.ScalerMode != "" {
		c.ScalerMode = f.Model.ScalerMode
	}
	if f.Model.Policy != "" {
		c.Policy = f.Model.Policy
	}
	if f.Tracing.JaegerEndpoint != "" {
		c.JaegerEndpoint = f.Tracing.JaegerEndpoint
	}
	if f.Tracing.SampleRatio != nil {
		c.TraceRatio = *f.Tracing.SampleRatio
	}
	if f.Log.Level != "" {
		c.LogLevel = f.Log.Level
	}
	if f.Log.Format != "" {
		c.LogFormat = f.Log.Format
	}
	if len(f.Alerts.Webhooks) > 0 {
		c.AlertWebhooks = f.Alerts.Webhooks
	}
	if f.Alerts.Timeout != "" {
		d, err := time.ParseDuration(f.Alerts.Timeout)
		if err != nil {
			return fmt.Errorf("parse alerts.timeout: %w", err)
		}
		c.AlertTimeout = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = p
	}
	c.ModelPath = envOrDefault("MODEL_PATH", c.ModelPath)
	c.ScalerPath = envOrDefault("SCALER_PATH", c.ScalerPath)
	c.ScalerMode = envOrDefault("SCALER_MODE", c.ScalerMode)
	c.Policy = envOrDefault("FRAUD_POLICY", c.Policy)
	c.JaegerEndpoint = envOrDefault("JAEGER_ENDPOINT", c.JaegerEndpoint)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("LOG_FORMAT", c.LogFormat)
	c.AlertWebhooks = envCSV("ALERT_WEBHOOKS", c.AlertWebhooks)
	return nil
}

// Validate reports the first setting that cannot be used. The policy
// expression itself is compiled later, when the engine is built.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	switch c.ScalerMode {
	case domain.ScalerFitted:
		if c.ScalerPath == "" {
			return errors.New("scaler path is required in fitted mode")
		}
	case domain.ScalerPerRequest:
	default:
		return fmt.Errorf("unknown scaler mode %q", c.ScalerMode)
	}
	if strings.TrimSpace(c.Policy) == "" {
		return errors.New("fraud policy is required")
	}
	if c.TraceRatio < 0 || c.TraceRatio > 1 {
		return fmt.Errorf("trace sample ratio %v outside [0,1]", c.TraceRatio)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.AlertTimeout <= 0 {
		return errors.New("alert timeout must be positive")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envCSV(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
