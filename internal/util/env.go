package util

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// GetEnv returns the ENV variable value or the provided default.
func GetEnv(key string, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}

	return defaultVal
}

// GetEnvAsInt returns the ENV variable parsed as int or the provided default.
func GetEnvAsInt(key string, defaultVal int) int {
	strVal, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	val, err := strconv.Atoi(strVal)
	if err != nil {
		log.Warn().Str("key", key).Str("value", strVal).Msg("Failed to parse ENV variable as int, using default")
		return defaultVal
	}

	return val
}

// GetEnvAsInt64 returns the ENV variable parsed as int64 or the provided default.
func GetEnvAsInt64(key string, defaultVal int64) int64 {
	strVal, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	val, err := strconv.ParseInt(strVal, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", strVal).Msg("Failed to parse ENV variable as int64, using default")
		return defaultVal
	}

	return val
}

// GetEnvAsBool returns the ENV variable parsed as bool or the provided default.
func GetEnvAsBool(key string, defaultVal bool) bool {
	strVal, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	val, err := strconv.ParseBool(strVal)
	if err != nil {
		log.Warn().Str("key", key).Str("value", strVal).Msg("Failed to parse ENV variable as bool, using default")
		return defaultVal
	}

	return val
}

// GetEnvAsDuration returns the ENV variable parsed as time.Duration or the provided default.
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	strVal, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	val, err := time.ParseDuration(strVal)
	if err != nil {
		log.Warn().Str("key", key).Str("value", strVal).Msg("Failed to parse ENV variable as duration, using default")
		return defaultVal
	}

	return val
}

// GetEnvAsStringArr returns the ENV variable split by the separator (default ",") or the provided default.
func GetEnvAsStringArr(key string, defaultVal []string, separator ...string) []string {
	strVal, ok := os.LookupEnv(key)
	if !ok || strVal == "" {
		return defaultVal
	}

	sep := ","
	if len(separator) >= 1 {
		sep = separator[0]
	}

	parts := strings.Split(strVal, sep)
	res := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			res = append(res, part)
		}
	}

	return res
}
