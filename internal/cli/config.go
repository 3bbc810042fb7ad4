package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses yaml values like "30s" or "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// ProbeConfig tunes the file readiness probe.
type ProbeConfig struct {
	Timeout       Duration `yaml:"timeout"`
	Interval      Duration `yaml:"interval"`
	StableSamples int      `yaml:"stable_samples"`
}

// Config is the optional YAML configuration file. Flags override file
// values; file values override the built-in defaults.
type Config struct {
	WatchDir    string      `yaml:"watch_dir"`
	OutputDir   string      `yaml:"output_dir"`
	ArchiveDir  string      `yaml:"archive_dir"`
	Interactive bool        `yaml:"interactive"`
	Journal     string      `yaml:"journal"`
	Probe       ProbeConfig `yaml:"probe"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		WatchDir:   "/var/lib/centroidd/incoming",
		OutputDir:  "/var/lib/centroidd/output",
		ArchiveDir: "/var/lib/centroidd/backup",
		Probe: ProbeConfig{
			Timeout:       Duration(30 * time.Second),
			Interval:      Duration(500 * time.Millisecond),
			StableSamples: 2,
		},
	}
}

// LoadConfig reads a YAML config over the defaults. An empty path returns
// the defaults unchanged; a named file that cannot be read or parsed is an
// error (a misconfigured service must not silently fall back).
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Probe.StableSamples < 0 {
		return cfg, fmt.Errorf("config %s: probe.stable_samples must be >= 0", path)
	}
	return cfg, nil
}
