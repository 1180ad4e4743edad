package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultPort          = "8080"
	defaultCORSOrigins   = "http://localhost:5173,http://127.0.0.1:5173"
	defaultHoldTTL       = 600 * time.Second
	defaultSweepInterval = 30 * time.Second
)

// Config carries everything cmd wiring needs. DatabaseURL and RedisAddr are
// optional: without them the service runs on the in-memory adapters.
type Config struct {
	Port          string
	DatabaseURL   string
	RedisAddr     string
	CORSOrigins   []string
	HoldTTL       time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from the environment, falling back to a .env file
// found in the current or a parent directory.
func Load(logger *logrus.Logger) Config {
	loadEnvFile(logger)

	cfg := Config{
		Port:          envOr(logger, "PORT", defaultPort),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		CORSOrigins:   parseCSV(envOr(logger, "CORS_ORIGINS", defaultCORSOrigins)),
		HoldTTL:       envSeconds(logger, "HOLD_TTL_SECONDS", defaultHoldTTL),
		SweepInterval: envSeconds(logger, "SWEEP_INTERVAL_SECONDS", defaultSweepInterval),
	}
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}
	return cfg
}

func envOr(logger *logrus.Logger, key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	logger.WithField("key", key).Warnf("%s not set, using default %s", key, fallback)
	return fallback
}

func envSeconds(logger *logrus.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		logger.WithField("key", key).Warnf("invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func loadEnvFile(logger *logrus.Logger) {
	path, err := findEnvFile()
	if err != nil {
		logger.WithError(err).Warn("failed to locate .env")
		return
	}
	if path == "" {
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.WithError(err).Warnf("failed to open %s", path)
		return
	}
	if err := parseEnvFile(logger, file); err != nil {
		logger.WithError(err).Warnf("failed to load %s", path)
	} else {
		logger.Infof("loaded env from %s", path)
	}
	_ = file.Close()
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func parseEnvFile(logger *logrus.Logger, file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		value = trimQuotes(value)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logger.Warnf("failed to set %s from env file", key)
		}
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
