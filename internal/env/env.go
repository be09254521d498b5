package env

import (
	"log"
	"os"
	"strconv"
	"time"
)

func GetString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		log.Printf("%s not found, defaulting to %s", key, fallback)
		return fallback
	}

	return value
}

func GetInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	valueAsInt, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("%s=%q is not an integer, defaulting to %d", key, value, fallback)
		return fallback
	}

	return valueAsInt
}

func GetInt64(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	valueAsInt, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("%s=%q is not an integer, defaulting to %d", key, value, fallback)
		return fallback
	}

	return valueAsInt
}

func GetBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	valueAsBool, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}

	return valueAsBool
}

// GetDuration reads values such as "15m" or "1h30m".
func GetDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("%s=%q is not a duration, defaulting to %s", key, value, fallback)
		return fallback
	}

	return duration
}
