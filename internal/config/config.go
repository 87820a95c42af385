// Package config loads cefcodec configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mrzor/cefcodec/internal/cef"
	"github.com/mrzor/cefcodec/internal/template"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CEFCODEC_"

// Config holds all cefcodec configuration.
type Config struct {
	Codec  CodecConfig  `yaml:"codec" envPrefix:"CODEC_"`
	Log    LogConfig    `yaml:"log" envPrefix:"LOG_"`
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`
}

// CodecConfig mirrors the encoder options. Header values are templates.
type CodecConfig struct {
	Vendor    string   `yaml:"vendor" env:"VENDOR"`
	Product   string   `yaml:"product" env:"PRODUCT"`
	Version   string   `yaml:"version" env:"VERSION"`
	Signature string   `yaml:"signature" env:"SIGNATURE"`
	Name      string   `yaml:"name" env:"NAME"`
	Severity  string   `yaml:"sev" env:"SEV"`
	Fields    []string `yaml:"fields" env:"FIELDS" envSeparator:","`

	// Unescape makes the decoder undo header and extension escaping.
	Unescape bool `yaml:"unescape" env:"UNESCAPE"`
}

// LogConfig controls the default logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Listen          string        `yaml:"listen" env:"LISTEN"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	d := cef.StaticDefaults()
	return &Config{
		Codec: CodecConfig{
			Vendor:    d.Vendor,
			Product:   d.Product,
			Version:   d.Version,
			Signature: d.Signature,
			Name:      d.Name,
			Severity:  d.Severity,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Listen:          ":8080",
			MaxBodyBytes:    10 << 20,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load builds the configuration from the defaults, the YAML file at path
// (skipped when path is empty) and then the environment. environ overrides
// the process environment when non-nil.
func Load(path string, environ map[string]string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.Codec.Fields = ParseFieldList(strings.Join(cfg.Codec.Fields, ","))
	return cfg, nil
}

// ParseFieldList splits a comma or semicolon separated list of field names.
// Blank entries are dropped.
func ParseFieldList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EncoderOptions converts the codec section to encoder options.
func (c CodecConfig) EncoderOptions() cef.Options {
	return cef.Options{
		Vendor:    c.Vendor,
		Product:   c.Product,
		Version:   c.Version,
		Signature: c.Signature,
		Name:      c.Name,
		Severity:  c.Severity,
		Fields:    c.Fields,
	}
}

// Validate reports every problem found in c.
func (c *Config) Validate() error {
	var errs []error

	templates := []struct{ name, text string }{
		{"vendor", c.Codec.Vendor},
		{"product", c.Codec.Product},
		{"version", c.Codec.Version},
		{"signature", c.Codec.Signature},
		{"name", c.Codec.Name},
		{"sev", c.Codec.Severity},
	}
	for _, t := range templates {
		if _, err := template.Compile(t.text); err != nil {
			errs = append(errs, fmt.Errorf("codec.%s: %w", t.name, err))
		}
	}
	if strings.TrimSpace(c.Codec.Severity) == "" {
		errs = append(errs, errors.New("codec.sev: must not be empty"))
	}
	for _, f := range c.Codec.Fields {
		if cef.SanitizeExtensionKey(f) == "" {
			errs = append(errs, fmt.Errorf("codec.fields: %q has no letters or digits to use as a key", f))
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be json or text, got %q", c.Log.Format))
	}

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen: must not be empty"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes: must be positive, got %d", c.Server.MaxBodyBytes))
	}

	return errors.Join(errs...)
}
