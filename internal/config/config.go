package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/powertothepeople/usage-engine/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// Live metering-portal configuration.
	PortalBaseURL string
	PortalEnabled bool
	PortalTimeout time.Duration

	// Kafka publishing of normalized records. Optional; the service runs
	// fully without a broker.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Heuristics are the parsing and grading thresholds, optionally
	// overridden from a YAML file via HEURISTICS_FILE.
	Heuristics domain.Heuristics
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	portalTimeout, err := parseDuration("PORTAL_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	maxUpload, err := parseMaxUploadBytes()
	if err != nil {
		return nil, err
	}

	portalBaseURL := os.Getenv("PORTAL_BASE_URL")
	portalEnabled := portalBaseURL != ""
	if v := os.Getenv("PORTAL_ENABLED"); v != "" {
		portalEnabled = v == "true"
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	heuristics, err := loadHeuristics()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MaxUploadBytes:  maxUpload,

		PortalBaseURL: portalBaseURL,
		PortalEnabled: portalEnabled,
		PortalTimeout: portalTimeout,

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "normalized-usage-records"),

		Heuristics: heuristics,
	}

	if cfg.PortalEnabled && cfg.PortalBaseURL == "" {
		return nil, errors.New("PORTAL_ENABLED is true but PORTAL_BASE_URL is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
	}

	return cfg, nil
}

// loadHeuristics returns the built-in thresholds, overlaid with any values
// present in the YAML file named by HEURISTICS_FILE. Fields absent from the
// file keep their defaults.
func loadHeuristics() (domain.Heuristics, error) {
	h := domain.DefaultHeuristics()

	path := os.Getenv("HEURISTICS_FILE")
	if path == "" {
		return h, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return h, fmt.Errorf("reading HEURISTICS_FILE: %w", err)
	}
	if err := yaml.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("parsing HEURISTICS_FILE: %w", err)
	}
	if err := h.Validate(); err != nil {
		return h, fmt.Errorf("invalid HEURISTICS_FILE: %w", err)
	}
	return h, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseMaxUploadBytes() (int64, error) {
	const def = 10 << 20 // 10 MiB
	s := os.Getenv("MAX_UPLOAD_BYTES")
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %q", s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
