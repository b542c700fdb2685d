// Package config provides unified configuration loading for reciprocity.
// It supports loading from YAML files, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/reciprocity/internal/constants"
	"github.com/nvandessel/reciprocity/internal/economy"
	"github.com/nvandessel/reciprocity/internal/engine"
	"github.com/nvandessel/reciprocity/internal/population"
	"github.com/nvandessel/reciprocity/internal/store"
)

// DirName is the per-user directory holding the config file, the report
// archive and event traces.
const DirName = store.ArchiveDirName

// ReciprocityConfig contains all reciprocity configuration settings.
type ReciprocityConfig struct {
	// Simulation describes the run shape.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Economy holds the rules of the credit economy.
	Economy economy.Params `json:"economy" yaml:"economy"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Report selects where statistics are delivered.
	Report ReportConfig `json:"report" yaml:"report"`

	// Server configures the HTTP and MCP surfaces.
	Server ServerConfig `json:"server" yaml:"server"`
}

// SimulationConfig describes the population and run length.
type SimulationConfig struct {
	Clinics            int     `json:"clinics" yaml:"clinics"`
	Patients           int     `json:"patients" yaml:"patients"`
	Rounds             int     `json:"rounds" yaml:"rounds"`
	StarterCredits     int     `json:"starter_credits" yaml:"starter_credits"`
	FreeRiderFraction  float64 `json:"free_rider_fraction" yaml:"free_rider_fraction"`
	LowQualityFraction float64 `json:"low_quality_fraction" yaml:"low_quality_fraction"`
	Seed               uint32  `json:"seed" yaml:"seed"`

	// Player configures the designated clinic.
	Player PlayerConfig `json:"player" yaml:"player"`
}

// PlayerConfig configures the designated clinic. It is only part of a run
// when Enabled is set.
type PlayerConfig struct {
	Enabled         bool    `json:"enabled" yaml:"enabled"`
	SharePropensity float64 `json:"share_propensity" yaml:"share_propensity"`
	QualityBias     float64 `json:"quality_bias" yaml:"quality_bias"`
}

// LoggingConfig configures reciprocity's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event logging to events.jsonl.
	// "trace" additionally logs every round summary.
	Level string `json:"level" yaml:"level"`

	// EventDir is where events.jsonl is written. Defaults to ~/.reciprocity.
	EventDir string `json:"event_dir,omitempty" yaml:"event_dir,omitempty"`
}

// ReportConfig selects report sinks.
type ReportConfig struct {
	// Archive enables the SQLite report archive.
	Archive bool `json:"archive" yaml:"archive"`

	// ArchivePath is the SQLite file. Defaults to ~/.reciprocity/runs.db.
	ArchivePath string `json:"archive_path,omitempty" yaml:"archive_path,omitempty"`

	// NATSURL enables the NATS sink when set. Supports ${VAR} syntax.
	NATSURL string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`

	// NATSSubject is the subject prefix for published reports.
	NATSSubject string `json:"nats_subject" yaml:"nats_subject"`
}

// RedactedNATSURL returns the NATS URL with any password masked.
// Returns "" for an empty URL and "(set)" for a URL that cannot be parsed.
func (c ReportConfig) RedactedNATSURL() string {
	if c.NATSURL == "" {
		return ""
	}
	u, err := url.Parse(c.NATSURL)
	if err != nil {
		return "(set)"
	}
	return u.Redacted()
}

// String implements fmt.Stringer to prevent accidental credential logging.
func (c ReportConfig) String() string {
	return fmt.Sprintf("ReportConfig{Archive:%t, ArchivePath:%s, NATSURL:%s, NATSSubject:%s}",
		c.Archive, c.ArchivePath, c.RedactedNATSURL(), c.NATSSubject)
}

// ServerConfig configures the HTTP API and the session registry shared with
// the MCP server.
type ServerConfig struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr" yaml:"addr"`

	// MaxSessions caps concurrently open driven runs.
	MaxSessions int `json:"max_sessions" yaml:"max_sessions"`

	// SessionIdleTTL is how long a driven run may sit unused before a new
	// session may replace it when the registry is full. Negative disables
	// eviction.
	SessionIdleTTL time.Duration `json:"session_idle_ttl" yaml:"session_idle_ttl"`

	// RateLimit is the number of requests per minute allowed per tool or route.
	// Zero disables rate limiting.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// MaxClinics, MaxPatients and MaxRounds bound runs requested over HTTP
	// or MCP. Zero removes the bound.
	MaxClinics  int `json:"max_clinics" yaml:"max_clinics"`
	MaxPatients int `json:"max_patients" yaml:"max_patients"`
	MaxRounds   int `json:"max_rounds" yaml:"max_rounds"`
}

// Limits returns the remote run size limits.
func (c ServerConfig) Limits() engine.Limits {
	return engine.Limits{
		MaxClinics:  c.MaxClinics,
		MaxPatients: c.MaxPatients,
		MaxRounds:   c.MaxRounds,
	}
}

// Default returns a ReciprocityConfig with the reference run settings.
func Default() *ReciprocityConfig {
	return &ReciprocityConfig{
		Simulation: SimulationConfig{
			Clinics:            constants.DefaultClinics,
			Patients:           constants.DefaultPatients,
			Rounds:             constants.DefaultRounds,
			StarterCredits:     constants.DefaultStarterCredits,
			FreeRiderFraction:  constants.DefaultFreeRiderFraction,
			LowQualityFraction: constants.DefaultLowQualityFraction,
			Seed:               constants.DefaultSeed,
			Player: PlayerConfig{
				Enabled:         false,
				SharePropensity: constants.DefaultPlayerSharePropensity,
				QualityBias:     constants.DefaultPlayerQualityBias,
			},
		},
		Economy: economy.DefaultParams(),
		Logging: LoggingConfig{
			Level: "info",
		},
		Report: ReportConfig{
			Archive:     false,
			NATSSubject: "reciprocity",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxSessions:    64,
			SessionIdleTTL: 30 * time.Minute,
			RateLimit:      120,
			MaxClinics:     constants.DefaultMaxClinics,
			MaxPatients:    constants.DefaultMaxPatients,
			MaxRounds:      constants.DefaultMaxRounds,
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.reciprocity/config.yaml -> .env -> environment variables
func Load() (*ReciprocityConfig, error) {
	config := Default()

	// Try to load from default config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, DirName, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// A missing .env is normal; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*ReciprocityConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in the NATS URL
	config.Report.NATSURL = expandEnvVars(config.Report.NATSURL)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *ReciprocityConfig) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Report.NATSURL != "" && c.Report.NATSSubject == "" {
		return fmt.Errorf("nats_subject must be set when nats_url is configured")
	}

	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must be non-negative, got %d", c.Server.MaxSessions)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be non-negative, got %v", c.Server.RateLimit)
	}
	for name, v := range map[string]int{
		"max_clinics":  c.Server.MaxClinics,
		"max_patients": c.Server.MaxPatients,
		"max_rounds":   c.Server.MaxRounds,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, v)
		}
	}

	return nil
}

// EngineConfig converts the simulation and economy sections into an engine
// configuration. The designated clinic is included only when enabled.
func (c *ReciprocityConfig) EngineConfig() engine.Config {
	s := c.Simulation
	cfg := engine.Config{
		Clinics:            s.Clinics,
		Patients:           s.Patients,
		Rounds:             s.Rounds,
		StarterCredits:     s.StarterCredits,
		FreeRiderFraction:  s.FreeRiderFraction,
		LowQualityFraction: s.LowQualityFraction,
		Seed:               s.Seed,
		Params:             c.Economy,
	}
	if s.Player.Enabled {
		cfg.Player = &population.Player{
			SharePropensity: s.Player.SharePropensity,
			QualityBias:     s.Player.QualityBias,
		}
	}
	return cfg
}

// ArchivePath returns the configured archive path or the default under the
// user's home directory.
func (c *ReciprocityConfig) ArchivePath() (string, error) {
	if c.Report.ArchivePath != "" {
		return c.Report.ArchivePath, nil
	}
	return store.DefaultArchivePath()
}

// EventDir returns the configured event directory or ~/.reciprocity.
func (c *ReciprocityConfig) EventDir() string {
	if c.Logging.EventDir != "" {
		return c.Logging.EventDir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(homeDir, DirName)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *ReciprocityConfig) {
	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	setInt("RECIPROCITY_CLINICS", &config.Simulation.Clinics)
	setInt("RECIPROCITY_PATIENTS", &config.Simulation.Patients)
	setInt("RECIPROCITY_ROUNDS", &config.Simulation.Rounds)
	setInt("RECIPROCITY_STARTER_CREDITS", &config.Simulation.StarterCredits)
	setFloat("RECIPROCITY_FREE_RIDER_FRACTION", &config.Simulation.FreeRiderFraction)
	setFloat("RECIPROCITY_LOW_QUALITY_FRACTION", &config.Simulation.LowQualityFraction)

	if v := os.Getenv("RECIPROCITY_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			config.Simulation.Seed = uint32(n)
		}
	}

	setBool("RECIPROCITY_PLAYER", &config.Simulation.Player.Enabled)
	setFloat("RECIPROCITY_PLAYER_SHARE_PROPENSITY", &config.Simulation.Player.SharePropensity)
	setFloat("RECIPROCITY_PLAYER_QUALITY_BIAS", &config.Simulation.Player.QualityBias)

	if v := os.Getenv("RECIPROCITY_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	setBool("RECIPROCITY_ARCHIVE", &config.Report.Archive)
	if v := os.Getenv("RECIPROCITY_ARCHIVE_PATH"); v != "" {
		config.Report.ArchivePath = v
	}
	if v := os.Getenv("RECIPROCITY_NATS_URL"); v != "" {
		config.Report.NATSURL = v
	}
	if v := os.Getenv("RECIPROCITY_NATS_SUBJECT"); v != "" {
		config.Report.NATSSubject = v
	}

	if v := os.Getenv("RECIPROCITY_HTTP_ADDR"); v != "" {
		config.Server.Addr = v
	}
	setInt("RECIPROCITY_MAX_SESSIONS", &config.Server.MaxSessions)
	if v := os.Getenv("RECIPROCITY_SESSION_IDLE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Server.SessionIdleTTL = d
		}
	}
	setFloat("RECIPROCITY_RATE_LIMIT", &config.Server.RateLimit)
	setInt("RECIPROCITY_MAX_CLINICS", &config.Server.MaxClinics)
	setInt("RECIPROCITY_MAX_PATIENTS", &config.Server.MaxPatients)
	setInt("RECIPROCITY_MAX_ROUNDS", &config.Server.MaxRounds)
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
