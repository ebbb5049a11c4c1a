package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete chemidx configuration. It mirrors the option map
// in the external interfaces section: fingerprint settings, query
// settings, ingest error budget, cleanup quarantine delay, and the
// substructure candidate cap.
type Config struct {
	Fingerprint  FingerprintConfig  `yaml:"fingerprint" json:"fingerprint"`
	Query        QueryConfig        `yaml:"query" json:"query"`
	Ingest       IngestConfig       `yaml:"ingest" json:"ingest"`
	Cleanup      CleanupConfig      `yaml:"cleanup" json:"cleanup"`
	Substructure SubstructureConfig `yaml:"substructure" json:"substructure"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
}

// FingerprintConfig configures the structure fingerprint computed at
// ingest time and stored alongside each document.
type FingerprintConfig struct {
	// Kind selects the fingerprint algorithm. Currently only "avalon" is
	// supported by the native toolkit binding.
	Kind string `yaml:"kind" json:"kind"`
	// Width is the bit vector width. Default 512.
	Width int `yaml:"width" json:"width"`
	// AvalonBitFlags is the toolkit-defined bit-class selector passed to
	// the native Avalon fingerprint routine.
	AvalonBitFlags uint32 `yaml:"avalon_bit_flags" json:"avalon_bit_flags"`
}

// QueryConfig configures fingerprints computed for an incoming query
// structure rather than an indexed one.
type QueryConfig struct {
	// AvalonQueryFlag must be 1 when computing a query fingerprint and 0
	// when computing a structure fingerprint; the native routine sets
	// different bits for the two modes so that subset containment holds.
	AvalonQueryFlag int `yaml:"avalon_query_flag" json:"avalon_query_flag"`
}

// IngestConfig configures the SD-file ingestion pipeline's error budget.
type IngestConfig struct {
	// ConsecutiveErrorLimit aborts ingest with ERR_900_TOO_MANY_ERRORS once
	// more than this many per-record errors occur back to back. Reset to zero on
	// every successful write. Default 100.
	ConsecutiveErrorLimit int `yaml:"consecutive_error_limit" json:"consecutive_error_limit"`
}

// CleanupConfig configures the resource tracker's quarantine behavior.
type CleanupConfig struct {
	// QuarantineDelayMS is how long a quarantined native handle waits
	// before its deferred cleanup runs. Default 60000 (60s).
	QuarantineDelayMS int `yaml:"quarantine_delay_ms" json:"quarantine_delay_ms"`
}

// SubstructureConfig configures the two-stage substructure search.
type SubstructureConfig struct {
	// CandidateCap bounds the fingerprint-screened candidate set handed to
	// the substructure collector. Default min(10*max_hits, 100000).
	CandidateCap int `yaml:"candidate_cap" json:"candidate_cap"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig returns a Config populated with the defaults named in the
// external interfaces section.
func NewConfig() *Config {
	return &Config{
		Fingerprint: FingerprintConfig{
			Kind:           "avalon",
			Width:          512,
			AvalonBitFlags: 0,
		},
		Query: QueryConfig{
			AvalonQueryFlag: 0,
		},
		Ingest: IngestConfig{
			ConsecutiveErrorLimit: 100,
		},
		Cleanup: CleanupConfig{
			QuarantineDelayMS: 60000,
		},
		Substructure: SubstructureConfig{
			CandidateCap: 100000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// CandidateCapFor computes min(10*maxHits, config cap), the formula named
// in the external interfaces section for bounding a single search call's
// candidate set regardless of the configured ceiling.
func (c *Config) CandidateCapFor(maxHits int) int {
	perCall := maxHits * 10
	if perCall > c.Substructure.CandidateCap {
		return c.Substructure.CandidateCap
	}
	if perCall <= 0 {
		return c.Substructure.CandidateCap
	}
	return perCall
}

// Load reads chemidx.yaml from dir if present, merges it over the
// defaults, applies CHEMIDX_* environment overrides, and validates the
// result. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	path := filepath.Join(dir, "chemidx.yaml")
	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Fingerprint.Kind != "" {
		c.Fingerprint.Kind = other.Fingerprint.Kind
	}
	if other.Fingerprint.Width != 0 {
		c.Fingerprint.Width = other.Fingerprint.Width
	}
	if other.Fingerprint.AvalonBitFlags != 0 {
		c.Fingerprint.AvalonBitFlags = other.Fingerprint.AvalonBitFlags
	}

	if other.Query.AvalonQueryFlag != 0 {
		c.Query.AvalonQueryFlag = other.Query.AvalonQueryFlag
	}

	if other.Ingest.ConsecutiveErrorLimit != 0 {
		c.Ingest.ConsecutiveErrorLimit = other.Ingest.ConsecutiveErrorLimit
	}

	if other.Cleanup.QuarantineDelayMS != 0 {
		c.Cleanup.QuarantineDelayMS = other.Cleanup.QuarantineDelayMS
	}

	if other.Substructure.CandidateCap != 0 {
		c.Substructure.CandidateCap = other.Substructure.CandidateCap
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
}

// applyEnvOverrides applies CHEMIDX_* environment variable overrides,
// highest precedence over both defaults and the sidecar file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CHEMIDX_FINGERPRINT_WIDTH"); v != "" {
		if w, err := strconv.Atoi(v); err == nil && w > 0 {
			c.Fingerprint.Width = w
		}
	}
	if v := os.Getenv("CHEMIDX_INGEST_CONSECUTIVE_ERROR_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ingest.ConsecutiveErrorLimit = n
		}
	}
	if v := os.Getenv("CHEMIDX_CLEANUP_QUARANTINE_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Cleanup.QuarantineDelayMS = n
		}
	}
	if v := os.Getenv("CHEMIDX_SUBSTRUCTURE_CANDIDATE_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Substructure.CandidateCap = n
		}
	}
	if v := os.Getenv("CHEMIDX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Fingerprint.Kind != "avalon" {
		return fmt.Errorf("fingerprint.kind must be 'avalon', got %q", c.Fingerprint.Kind)
	}
	if c.Fingerprint.Width <= 0 {
		return fmt.Errorf("fingerprint.width must be positive, got %d", c.Fingerprint.Width)
	}
	if c.Ingest.ConsecutiveErrorLimit <= 0 {
		return fmt.Errorf("ingest.consecutive_error_limit must be positive, got %d", c.Ingest.ConsecutiveErrorLimit)
	}
	if c.Cleanup.QuarantineDelayMS < 0 {
		return fmt.Errorf("cleanup.quarantine_delay_ms must be non-negative, got %d", c.Cleanup.QuarantineDelayMS)
	}
	if c.Substructure.CandidateCap <= 0 {
		return fmt.Errorf("substructure.candidate_cap must be positive, got %d", c.Substructure.CandidateCap)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// WriteYAML writes the configuration to path as YAML.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
