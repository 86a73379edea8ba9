// Package config loads runtime configuration for the credvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / --config.
//  3. Command-line flags, which override earlier values. Only flags the user
//     actually set take part, so a flag's default never hides a JSON value.
//
// # JSON schema
//
// Durations accept strings like "30s" or integer nanoseconds:
//
//	{
//	  "dir": "/home/me/.config/credvault",
//	  "log_level": "info",
//	  "log_format": "json",
//	  "remote": {
//	    "endpoint": "http://127.0.0.1:9000",
//	    "region": "us-east-1",
//	    "bucket": "files",
//	    "prefix": "uploads",
//	    "timeout": "30s",
//	    "link_ttl": "15m"
//	  }
//	}
//
// Missing keys leave the current value untouched.
package config
