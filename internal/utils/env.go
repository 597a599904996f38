package utils

import (
	"os"
	"strconv"

	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

func GetEnv(key, fallback string, log *logger.Logger) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if log != nil {
		log.Debug("Env var missing, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func GetEnvAsInt(key string, fallback int, log *logger.Logger) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if log != nil {
			log.Warn("Env var is not an integer, using fallback", "key", key, "value", v)
		}
		return fallback
	}
	return n
}
