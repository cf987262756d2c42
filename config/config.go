// Package config loads lasersend settings from a TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mastercactapus/lasersend/port"
	"github.com/mastercactapus/lasersend/stream"
)

// Transport kinds.
const (
	TransportSerial = "serial"
	TransportSPJS   = "spjs"
)

// Backoff kinds.
const (
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
)

// Duration is a time.Duration written as a string such as "5s" in TOML.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

type Config struct {
	Transport string   `toml:"transport"`
	Port      string   `toml:"port"`
	Baud      int      `toml:"baud"`
	Timeout   Duration `toml:"timeout"`
	SPJS      string   `toml:"spjs_url"`

	// Retries is the number of polls per line before giving up. Zero never gives up.
	Retries     int      `toml:"retries"`
	Backoff     string   `toml:"backoff"`
	BackoffMin  Duration `toml:"backoff_min"`
	BackoffMax  Duration `toml:"backoff_max"`
	LineDelay   Duration `toml:"line_delay"`
	DefaultFile string   `toml:"default_file"`
	Echo        bool     `toml:"echo"`

	BedWidth  float64 `toml:"bed_width"`
	BedHeight float64 `toml:"bed_height"`

	History string `toml:"history"`
	Listen  string `toml:"listen"`

	MQTT MQTT `toml:"mqtt"`
}

type MQTT struct {
	Broker string `toml:"broker"`
	Topic  string `toml:"topic"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Transport:   TransportSerial,
		Port:        defaultPort(),
		Baud:        port.DefaultBaud,
		Timeout:     Duration{port.DefaultTimeout},
		SPJS:        "ws://localhost:8989/ws",
		Backoff:     BackoffConstant,
		BackoffMin:  Duration{100 * time.Millisecond},
		BackoffMax:  Duration{5 * time.Second},
		LineDelay:   Duration{10 * time.Millisecond},
		DefaultFile: "test.gcode",
		Echo:        true,
		BedWidth:    300,
		BedHeight:   200,
		Listen:      "127.0.0.1:8080",
		MQTT:        MQTT{Topic: "lasersend"},
	}
}

// Dir returns the lasersend config directory, using XDG_CONFIG_HOME or
// falling back to ~/.config.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "lasersend"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config at path, writing the defaults there first if
// the file does not exist. An empty path means Path().
func Load(path string) (Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default(), err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	if err != nil {
		return Default(), fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("# lasersend settings\n\n")
	if err := Write(&buf, cfg); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case TransportSerial, TransportSPJS:
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	c.Backoff = strings.ToLower(strings.TrimSpace(c.Backoff))
	switch c.Backoff {
	case BackoffConstant, BackoffExponential:
	default:
		return fmt.Errorf("config: unknown backoff %q", c.Backoff)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("config: invalid baud %d", c.Baud)
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("config: timeout must be positive")
	}
	if c.Retries < 0 {
		return fmt.Errorf("config: retries must not be negative")
	}
	if c.LineDelay.Duration < 0 {
		return fmt.Errorf("config: line_delay must not be negative")
	}
	return nil
}

// RetryPolicy builds the per-line retry policy.
func (c Config) RetryPolicy() stream.RetryPolicy {
	if c.Backoff == BackoffExponential {
		return stream.ExponentialRetry(c.Retries, c.BackoffMin.Duration, c.BackoffMax.Duration)
	}
	return stream.ConstantRetry(c.Retries, c.BackoffMin.Duration)
}

// HistoryPath returns the job database location, defaulting to the
// config directory.
func (c Config) HistoryPath() (string, error) {
	if c.History != "" {
		return c.History, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
