package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/moodchat/pkg/events"
)

// ErrUnavailable is returned (wrapped) when the config file cannot be read or parsed.
// Callers continue with the defaults that Load still returns.
var ErrUnavailable = errors.New("configuration unavailable")

type Preferences struct {
	Backend string `yaml:"backend"` // "yaml" or "sqlite"
	Path    string `yaml:"path"`
}

type Config struct {
	ServerURL string `yaml:"server_url"`
	APIToken  string `yaml:"api_token"`
	AssetRoot string `yaml:"asset_root"`

	ImageCacheDir string      `yaml:"image_cache_dir"`
	Preferences   Preferences `yaml:"preferences"`

	ProactiveInterval         time.Duration `yaml:"proactive_interval"`
	SummarizationPollInterval time.Duration `yaml:"summarization_poll_interval"`
	RevealDelay               time.Duration `yaml:"reveal_delay"`
	RequestTimeout            time.Duration `yaml:"request_timeout"`

	Events   events.Settings `yaml:"events"`
	FeedAddr string          `yaml:"feed_addr"`
}

// Dir is the per-user configuration directory.
func Dir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, "moodchat")
	}
	return ".moodchat"
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() *Config {
	dir := Dir()
	return &Config{
		ServerURL:                 "http://localhost:8000",
		AssetRoot:                 "http://localhost:8000/static/avatars",
		ImageCacheDir:             filepath.Join(dir, "image_cache"),
		Preferences:               Preferences{Backend: "yaml", Path: filepath.Join(dir, "preferences.yaml")},
		ProactiveInterval:         5 * time.Minute,
		SummarizationPollInterval: 2 * time.Second,
		RevealDelay:               time.Second,
		RequestTimeout:            60 * time.Second,
	}
}

// Load reads path (DefaultPath when empty) over the defaults. On failure it still
// returns the defaults, together with an error wrapping ErrUnavailable.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(ErrUnavailable, "read %s: %v", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(b, &fileCfg); err != nil {
		return cfg, errors.Wrapf(ErrUnavailable, "parse %s: %v", path, err)
	}
	cfg.merge(&fileCfg)
	return cfg, nil
}

// IsUnavailable reports whether err came from a failed Load.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrap(err, "create config dir")
		}
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// Validate checks what a session needs before talking to the service.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("server_url is required")
	}
	if c.ProactiveInterval <= 0 || c.SummarizationPollInterval <= 0 {
		return errors.New("intervals must be positive")
	}
	if c.RevealDelay < 0 {
		return errors.New("reveal_delay must not be negative")
	}
	return nil
}

func (c *Config) merge(o *Config) {
	setString(&c.ServerURL, o.ServerURL)
	setString(&c.APIToken, o.APIToken)
	setString(&c.AssetRoot, o.AssetRoot)
	setString(&c.ImageCacheDir, o.ImageCacheDir)
	setString(&c.Preferences.Backend, o.Preferences.Backend)
	setString(&c.Preferences.Path, o.Preferences.Path)
	setString(&c.FeedAddr, o.FeedAddr)
	setDuration(&c.ProactiveInterval, o.ProactiveInterval)
	setDuration(&c.SummarizationPollInterval, o.SummarizationPollInterval)
	setDuration(&c.RevealDelay, o.RevealDelay)
	setDuration(&c.RequestTimeout, o.RequestTimeout)
	c.Events = o.Events
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
