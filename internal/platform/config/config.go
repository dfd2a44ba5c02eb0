package config

import (
	"os"
	"strconv"
	"time"
)

// EditPolicy controls how many times a registrant may revise an existing record
// through the explicit-id path.
type EditPolicy string

const (
	// EditPolicySingle refuses a second edit once a record has been revised.
	EditPolicySingle EditPolicy = "single"
	// EditPolicyUnlimited allows any number of revisions.
	EditPolicyUnlimited EditPolicy = "unlimited"
)

// CapacityMode controls whether the capacity target blocks admission or is
// purely a progress-bar figure.
type CapacityMode string

const (
	CapacityModeBlocking CapacityMode = "blocking"
	CapacityModeAdvisory CapacityMode = "advisory"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	RedisURL        string
	PostgresDSN     string
	KafkaBrokers    string
	AuditTopic      string
	AdminPassphrase string

	EditPolicy   EditPolicy
	CapacityMode CapacityMode

	// Defaults applied when the app-config document is absent from the store.
	DefaultDeadline time.Time
	DefaultCapacity int

	// StoreTimeout bounds every call against the remote document backend.
	StoreTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            getenv("OUTING_ADDR", ":8080"),
		RedisURL:        os.Getenv("OUTING_REDIS_URL"),
		PostgresDSN:     os.Getenv("OUTING_POSTGRES_DSN"),
		KafkaBrokers:    os.Getenv("OUTING_KAFKA_BROKERS"),
		AuditTopic:      getenv("OUTING_AUDIT_TOPIC", "outing.edit-log"),
		AdminPassphrase: getenv("OUTING_ADMIN_PASSPHRASE", "sce2026"),
		EditPolicy:      EditPolicyUnlimited,
		CapacityMode:    CapacityModeAdvisory,
		DefaultDeadline: defaultDeadline(),
		DefaultCapacity: 28,
		StoreTimeout:    5 * time.Second,
	}

	if v := os.Getenv("OUTING_EDIT_POLICY"); v == string(EditPolicySingle) {
		cfg.EditPolicy = EditPolicySingle
	}
	if v := os.Getenv("OUTING_CAPACITY_MODE"); v == string(CapacityModeBlocking) {
		cfg.CapacityMode = CapacityModeBlocking
	}
	if v := os.Getenv("OUTING_DEFAULT_DEADLINE"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			cfg.DefaultDeadline = t
		}
	}
	if v := os.Getenv("OUTING_DEFAULT_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultCapacity = n
		}
	}
	if v := os.Getenv("OUTING_STORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.StoreTimeout = d
		}
	}

	return cfg
}

// defaultDeadline mirrors the published signup cutoff: 2025-12-26 18:00 CST.
func defaultDeadline() time.Time {
	return time.Date(2025, time.December, 26, 18, 0, 0, 0, time.FixedZone("CST", 8*3600))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
