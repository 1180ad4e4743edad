package config

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(testLogger())

	assert.NotEmpty(t, cfg.Port)
	assert.Equal(t, 600*time.Second, cfg.HoldTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("HOLD_TTL_SECONDS", "120")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "bogus")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg := Load(testLogger())

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 120*time.Second, cfg.HoldTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval, "invalid values fall back")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestTrimQuotes(t *testing.T) {
	assert.Equal(t, "value", trimQuotes(`"value"`))
	assert.Equal(t, "value", trimQuotes(`'value'`))
	assert.Equal(t, `"value`, trimQuotes(`"value`))
	assert.Equal(t, "x", trimQuotes("x"))
}
