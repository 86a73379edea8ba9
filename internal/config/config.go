package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Config holds runtime settings for the credvault CLI.
//
// Dir is the vault directory; empty means the per-user default.
type Config struct {
	Dir       string
	LogLevel  string
	LogFormat string
	Remote    Remote
}

// Remote describes the S3-compatible file store. Credentials are not part
// of the configuration; they come from saved vault accounts.
type Remote struct {
	Endpoint string
	Region   string
	Bucket   string
	Prefix   string
	Timeout  time.Duration
	LinkTTL  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Dir = ""
	c.LogLevel = "warn"
	c.LogFormat = "text"
	c.Remote = Remote{
		Endpoint: "http://127.0.0.1:9000",
		Region:   "us-east-1",
		Bucket:   "files",
		Prefix:   "uploads",
		Timeout:  30 * time.Second,
		LinkTTL:  15 * time.Minute,
	}
}

// Load builds a Config from defaults, then the JSON file named by the
// --config flag (if any), then the flags the user set. fs must have been
// prepared with RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyFlags(fs); err != nil {
		return nil, err
	}
	return cfg, nil
}
