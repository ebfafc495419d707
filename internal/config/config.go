// =============================================================================
// Ward Census Aggregator - Configuration Module
// =============================================================================
//
// This module loads the application configuration from a YAML file and the
// process environment. Values are resolved in this order:
//   1. Built-in defaults
//   2. The YAML file (config.yaml unless --config says otherwise)
//   3. Environment variables (a .env file is loaded into the environment
//      by the CLI before this runs)
//
// ENVIRONMENT OVERRIDES:
//   API_TOKEN          - bearer token required by the HTTP API
//   LISTEN_ADDR        - HTTP listen address
//   LOG_LEVEL          - debug, info, warn, error
//   REPORT_TYPES_FILE  - YAML file replacing the built-in report layouts
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/report"
	"github.com/ginjaninja78/ward-census-aggregator/internal/sheetloader"
	"github.com/ginjaninja78/ward-census-aggregator/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// SERVER SETTINGS
	// =========================================================================

	// ListenAddr is the address the HTTP API listens on.
	// Default: ":8080"
	ListenAddr string `yaml:"listen_addr"`

	// ReadTimeoutSeconds bounds reading a whole request, upload included.
	// Default: 30
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds"`

	// WriteTimeoutSeconds bounds writing the response.
	// Default: 30
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`

	// MaxUploadBytes caps the request body size.
	// Default: 32 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// APIToken is the bearer token callers must present.
	// Prefer the API_TOKEN environment variable over putting it in the file.
	APIToken string `yaml:"api_token"`

	// =========================================================================
	// REPORT DETECTION SETTINGS
	// =========================================================================

	// Detection controls the header row search.
	Detection DetectionConfig `yaml:"detection"`

	// ReportTypesFile replaces the built-in report layout table.
	// Leave empty to use the built-in table.
	ReportTypesFile string `yaml:"report_types_file"`

	// SortGroups orders output rows ascending by group key instead of by
	// first appearance.
	// Default: false
	SortGroups bool `yaml:"sort_groups"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log encoder: "json" or "console".
	// Default: "json"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// CLI OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is where the aggregate command writes result files.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// FileNameFormat names result files. Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {original}  - Input file name without extension
	//   {type}      - Detected report type
	// Default: "{original}_{uuid}"
	FileNameFormat string `yaml:"file_name_format"`
}

// DetectionConfig controls how the header row is located.
type DetectionConfig struct {
	// MaxHeaderOffset is the last zero-based row tried as the header.
	// Default: 9
	MaxHeaderOffset *int `yaml:"max_header_offset"`

	// MarkerKeywords are the names that identify a header row.
	// Default: Ward, Unit, CurrWardUnit, Disch Unit, AdmNo, URN
	MarkerKeywords []string `yaml:"marker_keywords"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads the configuration file, applies environment overrides and
// defaults, and validates the result.
//
// PARAMETERS:
//   - configPath: The path to the YAML file. Empty means no file.
//   - optional:   When true a missing file is not an error.
func Load(configPath string, optional bool) (*MainConfig, error) {
	cfg := &MainConfig{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case optional && errors.Is(err, fs.ErrNotExist):
			// Defaults only.
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration built from defaults and the environment.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

func applyEnvOverrides(cfg *MainConfig) {
	if v := os.Getenv("API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REPORT_TYPES_FILE"); v != "" {
		cfg.ReportTypesFile = v
	}
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *MainConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ReadTimeoutSeconds == 0 {
		cfg.ReadTimeoutSeconds = 30
	}
	if cfg.WriteTimeoutSeconds == 0 {
		cfg.WriteTimeoutSeconds = 30
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.Detection.MaxHeaderOffset == nil {
		offset := sheetloader.DefaultMaxHeaderOffset
		cfg.Detection.MaxHeaderOffset = &offset
	}
	if len(cfg.Detection.MarkerKeywords) == 0 {
		cfg.Detection.MarkerKeywords = sheetloader.DefaultMarkerKeywords()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.FileNameFormat == "" {
		cfg.FileNameFormat = "{original}_{uuid}"
	}
}

// Validate checks value ranges. It does not require an API token; the
// serve command checks that with RequireAPIToken.
func (c *MainConfig) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return apperrors.ConfigInvalid(fmt.Sprintf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return apperrors.ConfigInvalid(fmt.Sprintf("log_format %q is not one of json, console", c.LogFormat))
	}

	if c.Detection.MaxHeaderOffset != nil && *c.Detection.MaxHeaderOffset < 0 {
		return apperrors.ConfigInvalid("detection.max_header_offset must not be negative")
	}
	if c.MaxUploadBytes < 0 {
		return apperrors.ConfigInvalid("max_upload_bytes must not be negative")
	}
	if c.ReadTimeoutSeconds < 0 || c.WriteTimeoutSeconds < 0 {
		return apperrors.ConfigInvalid("timeouts must not be negative")
	}

	return nil
}

// RequireAPIToken fails when no bearer token is configured.
func (c *MainConfig) RequireAPIToken() error {
	if strings.TrimSpace(c.APIToken) == "" {
		return apperrors.ConfigInvalid("API_TOKEN is required to serve the API")
	}
	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// LoaderOptions returns the header search settings for the sheet loader.
func (c *MainConfig) LoaderOptions() sheetloader.Options {
	opts := sheetloader.DefaultOptions()
	if c.Detection.MaxHeaderOffset != nil {
		opts.MaxHeaderOffset = *c.Detection.MaxHeaderOffset
	}
	if len(c.Detection.MarkerKeywords) > 0 {
		opts.MarkerKeywords = append([]string(nil), c.Detection.MarkerKeywords...)
	}
	return opts
}

// ReportSchemas returns the configured report layout table.
func (c *MainConfig) ReportSchemas() ([]types.ReportSchema, error) {
	if c.ReportTypesFile == "" {
		return report.DefaultSchemas()
	}
	return report.LoadSchemas(c.ReportTypesFile)
}
