package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flag names understood by RegisterFlags and ApplyFlags.
const (
	FlagConfig    = "config"
	FlagDir       = "dir"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
	FlagEndpoint  = "endpoint"
	FlagRegion    = "region"
	FlagBucket    = "bucket"
	FlagPrefix    = "prefix"
	FlagTimeout   = "timeout"
	FlagLinkTTL   = "link-ttl"
)

// RegisterFlags defines the configuration flags on fs. Defaults shown in
// help are the built-in ones.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to JSON config file")
	fs.String(FlagDir, d.Dir, "vault directory (default: per-user config dir)")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(FlagLogFormat, d.LogFormat, "log format: text or json")
	fs.String(FlagEndpoint, d.Remote.Endpoint, "S3-compatible endpoint URL")
	fs.String(FlagRegion, d.Remote.Region, "S3 region")
	fs.String(FlagBucket, d.Remote.Bucket, "bucket holding the files")
	fs.String(FlagPrefix, d.Remote.Prefix, "key prefix for uploads")
	fs.Duration(FlagTimeout, d.Remote.Timeout, "timeout for remote operations")
	fs.Duration(FlagLinkTTL, d.Remote.LinkTTL, "lifetime of shared download links")
}

// ApplyFlags copies the flags the user changed into c.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{FlagDir, &c.Dir},
		{FlagLogLevel, &c.LogLevel},
		{FlagLogFormat, &c.LogFormat},
		{FlagEndpoint, &c.Remote.Endpoint},
		{FlagRegion, &c.Remote.Region},
		{FlagBucket, &c.Remote.Bucket},
		{FlagPrefix, &c.Remote.Prefix},
	}
	for _, f := range strs {
		if !fs.Changed(f.name) {
			continue
		}
		v, err := fs.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	durs := []struct {
		name string
		dst  *time.Duration
	}{
		{FlagTimeout, &c.Remote.Timeout},
		{FlagLinkTTL, &c.Remote.LinkTTL},
	}
	for _, f := range durs {
		if !fs.Changed(f.name) {
			continue
		}
		v, err := fs.GetDuration(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}
