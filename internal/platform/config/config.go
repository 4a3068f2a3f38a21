package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Profile carries the ASPSP timings that drive authorisation and
// confirmation expiry.
type Profile struct {
	RedirectURLExpiration             time.Duration
	CancellationRedirectURLExpiration time.Duration
	AuthorisationExpiration           time.Duration
	NotConfirmedConsentExpiration     time.Duration
	NotConfirmedPaymentExpiration     time.Duration
	// MaxConsentValidityDays caps validUntil of new consents; 0 is unlimited.
	MaxConsentValidityDays int
}

// DatabaseConfig configures the postgres pool. An empty URL selects the
// in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the authorisation cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures lifecycle event publishing and decoupled SCA
// notifications. Empty Brokers disables both.
type KafkaConfig struct {
	Brokers        string
	EventsTopic    string
	DecoupledTopic string
	ConsumerGroup  string
	Acks           string
}

// Server captures process level configuration.
type Server struct {
	Addr                string
	Environment         string
	DefaultInstanceID   string
	RedirectSigningKey  string
	ExpirySweepInterval time.Duration

	Profile  Profile
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// DefaultProfile mirrors the ASPSP profile defaults of the CMS.
func DefaultProfile() Profile {
	return Profile{
		RedirectURLExpiration:             10 * time.Minute,
		CancellationRedirectURLExpiration: 10 * time.Minute,
		AuthorisationExpiration:           24 * time.Hour,
		NotConfirmedConsentExpiration:     24 * time.Hour,
		NotConfirmedPaymentExpiration:     24 * time.Hour,
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed values are reported rather than silently replaced by defaults.
func FromEnv() (Server, error) {
	env := envReader{lookup: os.LookupEnv}

	cfg := Server{
		Addr:                env.str("CMS_ADDR", ":8080"),
		Environment:         env.str("ENVIRONMENT", "development"),
		DefaultInstanceID:   env.str("DEFAULT_INSTANCE_ID", ""),
		RedirectSigningKey:  env.str("REDIRECT_SIGNING_KEY", ""),
		ExpirySweepInterval: env.duration("EXPIRY_SWEEP_INTERVAL", time.Minute),
		Profile: Profile{
			RedirectURLExpiration:             env.duration("REDIRECT_URL_EXPIRATION", 10*time.Minute),
			CancellationRedirectURLExpiration: env.duration("PAYMENT_CANCELLATION_REDIRECT_URL_EXPIRATION", 10*time.Minute),
			AuthorisationExpiration:           env.duration("AUTHORISATION_EXPIRATION", 24*time.Hour),
			NotConfirmedConsentExpiration:     env.duration("NOT_CONFIRMED_CONSENT_EXPIRATION", 24*time.Hour),
			NotConfirmedPaymentExpiration:     env.duration("NOT_CONFIRMED_PAYMENT_EXPIRATION", 24*time.Hour),
			MaxConsentValidityDays:            env.integer("MAX_CONSENT_VALIDITY_DAYS", 0),
		},
		Database: DatabaseConfig{
			URL:             env.str("DATABASE_URL", ""),
			MaxOpenConns:    env.integer("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.duration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          env.str("REDIS_URL", ""),
			PoolSize:     env.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:        env.str("KAFKA_BROKERS", ""),
			EventsTopic:    env.str("KAFKA_EVENTS_TOPIC", "xs2acms.lifecycle-events"),
			DecoupledTopic: env.str("KAFKA_DECOUPLED_TOPIC", "xs2acms.decoupled-sca"),
			ConsumerGroup:  env.str("KAFKA_CONSUMER_GROUP", "xs2acms"),
			Acks:           env.str("KAFKA_ACKS", "all"),
		},
	}
	if err := env.err(); err != nil {
		return Server{}, err
	}
	if cfg.Profile.MaxConsentValidityDays < 0 {
		return Server{}, fmt.Errorf("MAX_CONSENT_VALIDITY_DAYS must not be negative")
	}
	if cfg.RedirectSigningKey == "" && cfg.Environment == "production" {
		return Server{}, fmt.Errorf("REDIRECT_SIGNING_KEY is required in production")
	}
	return cfg, nil
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *envReader) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		e.errs = append(e.errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return d
}

func (e *envReader) integer(key string, fallback int) int {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: invalid integer %q", key, raw))
		return fallback
	}
	return n
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(e.errs, "; "))
}
