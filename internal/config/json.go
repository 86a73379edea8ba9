package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/credvault/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "empty".
type jsonConfig struct {
	Dir       *string     `json:"dir"`
	LogLevel  *string     `json:"log_level"`
	LogFormat *string     `json:"log_format"`
	Remote    *jsonRemote `json:"remote"`
}

type jsonRemote struct {
	Endpoint *string         `json:"endpoint"`
	Region   *string         `json:"region"`
	Bucket   *string         `json:"bucket"`
	Prefix   *string         `json:"prefix"`
	Timeout  *timex.Duration `json:"timeout"`
	LinkTTL  *timex.Duration `json:"link_ttl"`
}

// parseJSON overlays cfg with the values present in the file at path.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.Dir, jc.Dir)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if r := jc.Remote; r != nil {
		setString(&cfg.Remote.Endpoint, r.Endpoint)
		setString(&cfg.Remote.Region, r.Region)
		setString(&cfg.Remote.Bucket, r.Bucket)
		setString(&cfg.Remote.Prefix, r.Prefix)
		if r.Timeout != nil {
			cfg.Remote.Timeout = r.Timeout.Duration
		}
		if r.LinkTTL != nil {
			cfg.Remote.LinkTTL = r.LinkTTL.Duration
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
