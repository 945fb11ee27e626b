package api

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/constants"
	"github.com/loykin/dolphin/internal/database"
	"github.com/loykin/dolphin/internal/util"
)

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
}

// DatabaseConfig enables the migrations controller and the database health check.
type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver" yaml:"driver"`
	Server                 string `mapstructure:"server" yaml:"server"`
	Database               string `mapstructure:"database" yaml:"database"`
	Username               string `mapstructure:"username" yaml:"username"`
	Password               string `mapstructure:"password" yaml:"password"`
	Port                   int    `mapstructure:"port" yaml:"port"`
	TrustServerCertificate *bool  `mapstructure:"trust_server_certificate" yaml:"trust_server_certificate"`
	MigrationsDir          string `mapstructure:"migrations_dir" yaml:"migrations_dir"`
}

// Config is the API host configuration.
type Config struct {
	Addr           string          `mapstructure:"addr" yaml:"addr"`
	Environment    string          `mapstructure:"environment" yaml:"environment"`
	AllowedOrigins []string        `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	Logging        LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Database       *DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// Overrides are flag or environment values layered over the file.
// Nil fields leave the file value untouched.
type Overrides struct {
	Addr           *string  `mapstructure:"addr"`
	Environment    *string  `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       *string  `mapstructure:"log_level"`
	LogFormat      *string  `mapstructure:"log_format"`
}

// DefaultConfig returns a production configuration listening on :8080.
func DefaultConfig() Config {
	return Config{
		Addr:        constants.DefaultAPIAddr,
		Environment: constants.EnvironmentProduction,
	}
}

// LoadFile reads a YAML config over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return cfg, statErr
		}
		return cfg, fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the operator
	f, err := os.Open(clean)
	if err != nil {
		return cfg, err
	}
	defer func() { _ = f.Close() }()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("failed to parse %s: %w", clean, err)
	}
	return cfg, nil
}

// ApplyOverrides decodes values (flag/env lookups keyed by Overrides tags)
// and layers them over c. Comma separated strings are accepted for lists.
func (c *Config) ApplyOverrides(values map[string]any) error {
	var o Overrides
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           &o,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(values); err != nil {
		return fmt.Errorf("invalid override: %w", err)
	}
	if o.Addr != nil {
		c.Addr = *o.Addr
	}
	if o.Environment != nil {
		c.Environment = *o.Environment
	}
	if o.AllowedOrigins != nil {
		c.AllowedOrigins = o.AllowedOrigins
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		c.Logging.Format = *o.LogFormat
	}
	return nil
}

// Validate normalizes and checks the configuration.
func (c *Config) Validate() error {
	c.Addr = util.TrimWithDefault(c.Addr, constants.DefaultAPIAddr)
	c.Environment = util.TrimAndLower(util.TrimWithDefault(c.Environment, constants.EnvironmentProduction))
	switch c.Environment {
	case constants.EnvironmentDevelopment, constants.EnvironmentProduction:
	default:
		return fmt.Errorf("invalid environment: %s (valid: development, production)", c.Environment)
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, raw := range c.AllowedOrigins {
		origin, ok := util.TrimEmptyCheck(raw)
		if !ok {
			continue
		}
		if err := validateOrigin(origin); err != nil {
			return err
		}
		origins = append(origins, strings.TrimSuffix(origin, "/"))
	}
	c.AllowedOrigins = origins

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := common.ParseFormat(c.Logging.Format); err != nil {
		return err
	}
	if c.Database != nil {
		if _, err := database.Lookup(c.Database.Driver); err != nil {
			return err
		}
	}
	return nil
}

func validateOrigin(o string) error {
	u, err := url.Parse(o)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid allowed origin %q: must be an absolute http(s) URL", o)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("invalid allowed origin %q: must not contain a path", o)
	}
	return nil
}

// IsDevelopment reports whether development-only endpoints are served.
func (c Config) IsDevelopment() bool {
	return util.TrimAndLower(c.Environment) == constants.EnvironmentDevelopment
}

// NewLogger builds the host logger and applies the masking setting.
func (c LoggingConfig) NewLogger(w io.Writer) (*common.Logger, error) {
	level, err := common.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	format, err := common.ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	maskingEnabled := true
	if c.MaskSensitive != nil {
		maskingEnabled = *c.MaskSensitive
	}
	common.EnableMasking(maskingEnabled)
	return common.New(w, level, format), nil
}

// Descriptor converts the database section for database.Open.
func (d DatabaseConfig) Descriptor() database.Descriptor {
	trust := true
	if d.TrustServerCertificate != nil {
		trust = *d.TrustServerCertificate
	}
	return database.Descriptor{
		Driver:                 util.TrimWithDefault(d.Driver, constants.DefaultDriver),
		Server:                 strings.TrimSpace(d.Server),
		Database:               strings.TrimSpace(d.Database),
		Username:               strings.TrimSpace(d.Username),
		Password:               d.Password,
		Port:                   d.Port,
		TrustServerCertificate: trust,
	}
}

// Dir returns the migrations directory, defaulting to ./migrations.
func (d DatabaseConfig) Dir() string {
	return util.TrimWithDefault(d.MigrationsDir, constants.DefaultMigrationsDir)
}
