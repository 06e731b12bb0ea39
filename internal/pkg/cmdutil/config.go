// Package cmdutil provides shared utilities for CLI command implementations.
package cmdutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GetStringConfig returns the config value for key, or flagValue if the key is not set.
// Flag values take precedence over config file values.
func GetStringConfig(key, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString(key)
}

// GetBoolConfig returns the config value for key, or flagValue if the key is not set.
func GetBoolConfig(key string, flagValue bool) bool {
	if flagValue {
		return true
	}
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return flagValue
}

// GetDurationConfig returns the config value for key, or flagValue if the key is not set.
func GetDurationConfig(key string, flagValue time.Duration) time.Duration {
	if viper.IsSet(key) {
		if d := viper.GetDuration(key); d > 0 {
			return d
		}
	}
	return flagValue
}

// ExpandPath replaces a leading "~/" with the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// ErrNoDictionary is returned when neither a flag nor the config names a
// dictionary file.
var ErrNoDictionary = errors.New("no dictionary given (use --dictionary or set dictionary in the config)")

// DictionaryPath resolves the dictionary file from flagValue or the
// "dictionary" config key.
func DictionaryPath(flagValue string) (string, error) {
	path := GetStringConfig("dictionary", flagValue)
	if path == "" {
		return "", ErrNoDictionary
	}
	return ExpandPath(path)
}

// ParseSizeString parses a size string (e.g., "100M", "1G", "500K") and returns bytes.
// Supported suffixes: K/k (KiB), M/m (MiB), G/g (GiB).
func ParseSizeString(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	lastChar := s[len(s)-1]
	var multiplier int64 = 1

	switch lastChar {
	case 'K', 'k':
		multiplier = 1024
		s = s[:len(s)-1]
	case 'M', 'm':
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	case 'G', 'g':
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	var value int64
	if _, err := fmt.Sscanf(s, "%d", &value); err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative size %d", value)
	}

	return value * multiplier, nil
}
