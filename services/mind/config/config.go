// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads, validates, and persists the noetic.yaml
// configuration file.
//
// # Description
//
// Configuration is layered: defaults, then the YAML file, then
// environment overrides. The mind phase survives restarts through this
// file; credentials never touch it and are read from the environment
// into a memguard enclave instead.
//
// # Thread Safety
//
// A Config is safe for concurrent use after Load.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/noetic/services/mind/state"
)

// DefaultFileName is the config file looked for in the repository root.
const DefaultFileName = "noetic.yaml"

// OpenAIKeyEnv is the environment variable carrying the OpenAI API key.
const OpenAIKeyEnv = "NOETIC_OPENAI_API_KEY"

// ErrNoAPIKey reports a missing OpenAI credential.
var ErrNoAPIKey = errors.New(OpenAIKeyEnv + " is not set")

var validate = validator.New()

// Duration wraps time.Duration so YAML carries human-readable values
// like "24h" or "30m" instead of raw nanosecond counts.
type Duration time.Duration

// UnmarshalYAML parses the scalar through time.ParseDuration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" || node.Value == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", node.Value, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML renders the duration back in the same form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RepositoryConfig locates the persistent store.
type RepositoryConfig struct {
	// Path is the directory holding the Badger store.
	Path string `yaml:"path" validate:"required"`
}

// MindConfig holds orchestration settings and the persisted phase.
type MindConfig struct {
	// Phase is the persisted lifecycle phase, written on Sleep.
	Phase string `yaml:"phase" validate:"omitempty,oneof=sleeping dreaming thinking"`

	// DwellCapacity bounds the recently-visited ring buffer.
	DwellCapacity int `yaml:"dwell_capacity" validate:"omitempty,min=1"`

	// TimeScopeEnabled turns the note recency filter on.
	TimeScopeEnabled bool `yaml:"time_scope_enabled"`

	// TimeScopeHorizon is how far back visible notes may reach.
	TimeScopeHorizon Duration `yaml:"time_scope_horizon" validate:"omitempty,min=0"`
}

// OpenAISection configures the OpenAI embedding provider.
type OpenAISection struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// WeaviateSection configures the Weaviate provider.
type WeaviateSection struct {
	Host   string `yaml:"host" validate:"omitempty,hostname_port"`
	Scheme string `yaml:"scheme" validate:"omitempty,oneof=http https"`
}

// InferenceConfig selects and tunes the inference provider.
type InferenceConfig struct {
	// Provider is local, openai, or weaviate.
	Provider string `yaml:"provider" validate:"required,oneof=local openai weaviate"`

	SimilarityFloor float64 `yaml:"similarity_floor" validate:"omitempty,gt=0,lte=1"`
	TopK            int     `yaml:"top_k" validate:"omitempty,min=1"`

	OpenAI   OpenAISection   `yaml:"openai"`
	Weaviate WeaviateSection `yaml:"weaviate"`
}

// TelemetryConfig selects trace/metric exporters.
type TelemetryConfig struct {
	// Exporter is none, stdout, otlp, or prometheus.
	Exporter string `yaml:"exporter" validate:"omitempty,oneof=none stdout otlp prometheus"`

	// Endpoint is the OTLP collector address when exporter is otlp.
	Endpoint string `yaml:"endpoint" validate:"omitempty,hostname_port"`
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`

	// RateLimit is requests per second granted to each client.
	RateLimit float64 `yaml:"rate_limit" validate:"omitempty,gt=0"`
	Burst     int     `yaml:"burst" validate:"omitempty,min=1"`

	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`
}

// ActivityConfig configures the optional InfluxDB history recorder.
type ActivityConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// BackupConfig configures snapshot destinations.
type BackupConfig struct {
	// Dir receives local snapshot files. Empty disables local backups.
	Dir string `yaml:"dir"`

	// GCSBucket receives cloud snapshots. Empty disables cloud backups.
	GCSBucket string `yaml:"gcs_bucket"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// Config is the full noetic.yaml schema.
type Config struct {
	Repository RepositoryConfig `yaml:"repository"`
	Mind       MindConfig       `yaml:"mind"`
	Inference  InferenceConfig  `yaml:"inference"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	API        APIConfig        `yaml:"api"`
	Activity   ActivityConfig   `yaml:"activity"`
	Backup     BackupConfig     `yaml:"backup"`
	Logging    LoggingConfig    `yaml:"logging"`

	mu   sync.Mutex
	path string
}

// Default returns the configuration used when no file exists. The
// repository path defaults to .noetic under the working directory.
func Default() *Config {
	return &Config{
		Repository: RepositoryConfig{Path: ".noetic"},
		Mind: MindConfig{
			Phase:            state.Sleeping.String(),
			DwellCapacity:    32,
			TimeScopeHorizon: Duration(30 * 24 * time.Hour),
		},
		Inference: InferenceConfig{
			Provider:        "local",
			SimilarityFloor: 0.5,
			TopK:            10,
		},
		Telemetry: TelemetryConfig{Exporter: "none"},
		API: APIConfig{
			Listen:    "127.0.0.1:7777",
			RateLimit: 25,
			Burst:     50,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the config at path, layering it over defaults. A missing
// file yields the defaults with the path remembered for Save.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// A dream cannot survive a process restart; a phase persisted
	// mid-dream loads as sleeping.
	if cfg.Mind.Phase == state.Dreaming.String() {
		cfg.Mind.Phase = state.Sleeping.String()
	}

	return cfg, nil
}

// Validate runs the schema rules over the whole document.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("invalid config: field %s fails rule %q", f.Namespace(), f.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Inference.Provider == "weaviate" && c.Inference.Weaviate.Host == "" {
		return fmt.Errorf("invalid config: inference.weaviate.host is required for the weaviate provider")
	}
	return nil
}

// Save writes the document back to its file atomically.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return fmt.Errorf("config has no backing file")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// Path returns the backing file location.
func (c *Config) Path() string {
	return c.path
}

// MindPhase returns the persisted lifecycle phase, sleeping when unset
// or unparseable.
func (c *Config) MindPhase() state.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := state.ParsePhase(c.Mind.Phase)
	if err != nil {
		return state.Sleeping
	}
	return p
}

// SetMindPhase records the phase for the next Save.
func (c *Config) SetMindPhase(p state.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Mind.Phase = p.String()
}

// OpenAIKey reads the API key from the environment into an enclave. The
// plaintext is wiped as soon as the enclave seals it.
func (c *Config) OpenAIKey() (*memguard.Enclave, error) {
	key := os.Getenv(OpenAIKeyEnv)
	if key == "" {
		return nil, ErrNoAPIKey
	}
	return memguard.NewEnclave([]byte(key)), nil
}
