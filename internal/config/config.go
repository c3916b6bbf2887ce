package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes a single structured calendar source. Exactly one of
// Path (local .ics file) or URL (subscription endpoint) should be set; when
// both are present, Path wins.
type SourceConfig struct {
	// ID is an internal identifier used for logging and reports.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Path is a local .ics file path.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// URL is an ICS subscription endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration. All tunables the
// components need come from here; nothing is read from process-wide state.
type Config struct {
	// Listen is the HTTP listen address for the day-feed API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone every event is normalized into
	// (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for
	// rebuilding the day grouping while serving.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Sources is the list of structured calendar inputs.
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// TextPath is an optional free-text file scanned for
	// "HH:MM-HH:MM DD.MM" time-range patterns.
	TextPath string `yaml:"text_path,omitempty" json:"text_path,omitempty"`

	// ReferenceYear is the year assumed for extracted text patterns.
	// Zero means the current year at extraction time.
	ReferenceYear int `yaml:"reference_year,omitempty" json:"reference_year,omitempty"`

	// Cutoff ("HH:MM") splits extracted events into the two title classes:
	// starts strictly before the cutoff get EarlyTitle, the rest LateTitle.
	Cutoff     string `yaml:"cutoff" json:"cutoff"`
	EarlyTitle string `yaml:"early_title" json:"early_title"`
	LateTitle  string `yaml:"late_title" json:"late_title"`

	// CacheDir is where fetched subscription bodies are cached on disk.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Europe/Berlin",
		RefreshCron: "*/15 * * * *",
		Sources:     []SourceConfig{},
		Cutoff:      "16:30",
		EarlyTitle:  "X1",
		LateTitle:   "X2",
		CacheDir:    "./var/ics-cache",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Berlin"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	if c.Cutoff == "" {
		c.Cutoff = "16:30"
	}
	if c.EarlyTitle == "" {
		c.EarlyTitle = "X1"
	}
	if c.LateTitle == "" {
		c.LateTitle = "X2"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there
//     (0600, parent directory created) and returned.
//   - If the file exists, it is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path. The write is
// atomic (temp file + rename in the target directory) and the final file ends
// up with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".daycal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
