package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPortalURL = "https://portal.example.com"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.False(t, cfg.PortalEnabled)
	assert.Empty(t, cfg.PortalBaseURL)
	assert.Equal(t, 15*time.Second, cfg.PortalTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "normalized-usage-records", cfg.KafkaSinkTopic)
	assert.Equal(t, 14000, cfg.Heuristics.DefaultAnnualKWh)
	assert.Equal(t, 100, cfg.Heuristics.MinIntervalReadings)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("PORTAL_BASE_URL", testPortalURL)
	t.Setenv("PORTAL_TIMEOUT", "5s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(1048576), cfg.MaxUploadBytes)
	assert.True(t, cfg.PortalEnabled)
	assert.Equal(t, testPortalURL, cfg.PortalBaseURL)
	assert.Equal(t, 5*time.Second, cfg.PortalTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidMaxUploadBytes(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_UPLOAD_BYTES")
}

func TestLoad_InvalidPortalTimeout(t *testing.T) {
	t.Setenv("PORTAL_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORTAL_TIMEOUT")
}

func TestLoad_PortalEnabledWithoutURL(t *testing.T) {
	t.Setenv("PORTAL_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORTAL_BASE_URL")
}

func TestLoad_PortalURLImpliesEnabled(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", testPortalURL)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.PortalEnabled)
}

func TestLoad_PortalExplicitlyDisabled(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", testPortalURL)
	t.Setenv("PORTAL_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.PortalEnabled)
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", ",")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_HeuristicsFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_annual_kwh: 12500\ngood_days: 170\n"), 0o644))
	t.Setenv("HEURISTICS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12500, cfg.Heuristics.DefaultAnnualKWh)
	assert.Equal(t, 170, cfg.Heuristics.GoodDays)
	// Untouched fields keep their defaults.
	assert.Equal(t, 300, cfg.Heuristics.ExcellentDays)
	assert.Equal(t, "http://naesb.org/espi", cfg.Heuristics.ESPIMarker)
}

func TestLoad_HeuristicsFileMissing(t *testing.T) {
	t.Setenv("HEURISTICS_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEURISTICS_FILE")
}

func TestLoad_HeuristicsFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_annual_kwh: -5\n"), 0o644))
	t.Setenv("HEURISTICS_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_annual_kwh")
}
