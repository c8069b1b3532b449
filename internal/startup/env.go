package startup

import (
	"errors"
	"os"
	"strconv"
	"time"

	"media-index/internal/logging"
)

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// envOr parses the variable key, falling back to defaultValue when it is
// unset or does not parse. Bad values are logged.
func envOr[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := parse(value)
	if err != nil {
		logging.Warn("Invalid value for %s: %q (%v), using default: %v", key, value, err, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	return envOr(key, defaultValue, strconv.ParseBool)
}

func getEnvInt(key string, defaultValue int) int {
	return envOr(key, defaultValue, strconv.Atoi)
}

// getEnvDuration accepts Go durations; "0" disables the setting.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return envOr(key, defaultValue, func(s string) (time.Duration, error) {
		d, err := time.ParseDuration(s)
		if err == nil && d < 0 {
			return 0, errors.New("negative duration")
		}
		return d, err
	})
}
