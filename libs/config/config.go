package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once sync.Once
	v    *viper.Viper
)

// store returns the process-wide viper instance. Environment variables always
// win; CONFIG_FILE (yaml) supplies values the environment leaves unset.
func store() *viper.Viper {
	once.Do(func() {
		v = viper.New()
		v.AutomaticEnv()
		if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					panic(fmt.Errorf("read config file %s: %w", path, err))
				}
			}
		}
	})
	return v
}

func lookup(key string) string {
	return strings.TrimSpace(store().GetString(key))
}

func String(key, fallback string) string {
	val := lookup(key)
	if val == "" {
		return fallback
	}
	return val
}

func RequiredString(key string) (string, error) {
	val := lookup(key)
	if val == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return val, nil
}

func Port(key, fallback string) (string, error) {
	val := String(key, fallback)
	p, err := strconv.Atoi(val)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, val)
	}
	return val, nil
}

// Int returns fallback when the key is unset or not an integer.
func Int(key string, fallback int) int {
	raw := lookup(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func Bool(key string, fallback bool) bool {
	switch strings.ToLower(lookup(key)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

// Duration accepts Go durations ("90s", "5m") and bare integers as seconds.
func Duration(key string, fallback time.Duration) time.Duration {
	raw := lookup(key)
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// Strings splits a comma separated value, dropping empty items.
func Strings(key, fallback string) []string {
	raw := String(key, fallback)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
