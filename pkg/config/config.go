// Package config loads the marktree configuration file.
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

	"gopkg.in/yaml.v3"
	"src.marktree.dev/pkg/errutil"
	"src.marktree.dev/pkg/md"
)

// Config is the content of a configuration file.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Markdown MarkdownConfig `yaml:"markdown"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Larger is more verbose; 0 only logs errors.
	Verbosity int `yaml:"verbosity"`
	// Log file; stderr when empty.
	File string `yaml:"file"`
}

// CacheConfig configures the parse cache.
type CacheConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// MarkdownConfig selects the Markdown extensions.
type MarkdownConfig struct {
	Strikethrough bool `yaml:"strikethrough"`
	Autolinks     bool `yaml:"autolinks"`
	RawHTML       bool `yaml:"rawHTML"`
}

// Default returns the configuration used when there is no configuration file.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{Path: defaultCachePath()},
		Markdown: MarkdownConfig{
			Strikethrough: md.DefaultOptions.Strikethrough,
			Autolinks:     md.DefaultOptions.Autolinks,
			RawHTML:       md.DefaultOptions.RawHTML,
		},
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "marktree", "cache.db")
}

// Load reads the configuration file at path. Fields missing from the file keep
// their default values; a missing file yields the defaults. Environment
// variables in the file are expanded.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := decode(bytes.NewBufferString(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, validate(cfg)
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err == io.EOF {
		// Empty file.
		return nil
	}
	return err
}

func validate(cfg *Config) error {
	var errs []error
	if cfg.Log.Verbosity < 0 {
		errs = append(errs, fmt.Errorf("log.verbosity must not be negative, got %d", cfg.Log.Verbosity))
	}
	if cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.Path) == "" {
		errs = append(errs, errors.New("cache.path is required when the cache is enabled"))
	}
	return errutil.Multi(errs...)
}

// MarkdownOptions returns the parse options selected by the configuration.
func (c *Config) MarkdownOptions() md.Options {
	return md.Options{
		Strikethrough: c.Markdown.Strikethrough,
		Autolinks:     c.Markdown.Autolinks,
		RawHTML:       c.Markdown.RawHTML,
	}
}

// Variant identifies the Markdown options, for keying cached results.
func (c *Config) Variant() string {
	var sb strings.Builder
	for _, on := range []bool{c.Markdown.Strikethrough, c.Markdown.Autolinks, c.Markdown.RawHTML} {
		if on {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
