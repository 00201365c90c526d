package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rail44/userdash/internal/fetch"
	"github.com/rail44/userdash/internal/user"
	"github.com/rail44/userdash/internal/view"
)

// FileName is the config file searched for from the working directory upward
const FileName = "userdash.toml"

// ErrNotFound is returned by Find when no config file exists
var ErrNotFound = errors.New(FileName + " not found")

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config represents the complete configuration for userdash
type Config struct {
	Endpoint   string   `toml:"endpoint"`
	Timeout    Duration `toml:"timeout"`
	UserAgent  string   `toml:"user_agent"`
	Locale     string   `toml:"locale"`
	Sort       string   `toml:"sort"`
	LinkScheme string   `toml:"link_scheme"`
	Addr       string   `toml:"addr"`
	LogLevel   string   `toml:"log_level"`

	// Path of the file the config was read from, empty for defaults
	Path string `toml:"-"`
}

// Duration decodes TOML strings like "5s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Endpoint:   fetch.DefaultEndpoint,
		Locale:     view.DefaultLocale,
		Sort:       string(user.SortByName),
		LinkScheme: user.DefaultLinkScheme,
		Addr:       ":8080",
		LogLevel:   "info",
	}
}

// Load reads userdash.toml from startPath or the nearest parent directory.
// A missing file is not an error: defaults are returned.
func Load(startPath string) (*Config, error) {
	configPath, err := Find(startPath)
	if errors.Is(err, ErrNotFound) {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile reads one config file, filling unset keys with defaults
func LoadFile(configPath string) (*Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if _, err := toml.Decode(string(configData), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Path = configPath

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// Find searches for userdash.toml starting from the given path
func Find(startPath string) (string, error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	// If startPath is a file, start from its directory
	info, err := os.Stat(absPath)
	if err == nil && !info.IsDir() {
		absPath = filepath.Dir(absPath)
	}

	currentDir := absPath
	for {
		configPath := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", ErrNotFound
}

// expandEnvVars expands ${VAR_NAME} environment variables in the string
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		value := os.Getenv(match[2 : len(match)-1])
		if value == "" {
			// Keep original if not set (will be caught in validation)
			return match
		}
		return value
	})
}

// Validate checks field values and expands environment variables
func (c *Config) Validate() error {
	var problems []string

	c.Endpoint = expandEnvVars(c.Endpoint)
	c.UserAgent = expandEnvVars(c.UserAgent)
	for _, field := range []string{c.Endpoint, c.UserAgent} {
		if m := envPattern.FindStringSubmatch(field); m != nil {
			return fmt.Errorf("environment variable %s is not set", m[1])
		}
	}

	if c.Endpoint == "" {
		problems = append(problems, "endpoint is required")
	} else if u, err := url.Parse(c.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("endpoint must be an absolute http(s) URL, got %q", c.Endpoint))
	}
	if c.Timeout.Duration < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	if _, err := user.ParseSortField(c.Sort); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := view.NewCollator(c.Locale); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}

// SortField returns the configured initial sort field
func (c *Config) SortField() user.SortField {
	f, err := user.ParseSortField(c.Sort)
	if err != nil {
		return user.SortByName
	}
	return f
}
