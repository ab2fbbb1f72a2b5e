package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBytes       int64         `env:"MAX_REQUEST_BYTES,default=65536"`

	// database settings
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`

	// certificate issuance settings
	CertificateValidity  time.Duration `env:"CERTIFICATE_VALIDITY,default=720h"`
	FingerprintWindow    time.Duration `env:"FINGERPRINT_WINDOW,default=1h"`
	MaxAttemptsPerWindow int           `env:"MAX_ATTEMPTS_PER_WINDOW,default=5"`
	CodeMaxRetries       int           `env:"CODE_MAX_RETRIES,default=3"`

	// signing settings
	SigningWorkers   int           `env:"SIGNING_WORKERS,default=2"`
	SigningQueueSize int           `env:"SIGNING_QUEUE_SIZE,default=64"`
	SigningTimeout   time.Duration `env:"SIGNING_TIMEOUT,default=30s"`
	SignerIdentity   string        `env:"SIGNER_IDENTITY,default=CN=CND Issuing Service"`

	// Required configuration - must be set by environment variables
	SigningKeyPath    string `env:"SIGNING_KEY_PATH,required=true"`
	ValidationBaseURL string `env:"VALIDATION_BASE_URL,required=true"`
	DatabaseURL       string `env:"DATABASE_URL,required=true"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	// Validate database pool configuration
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.DBMinConnections < 0 {
		return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
	}
	if cfg.DBMinConnections > cfg.DBMaxConnections {
		return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
			cfg.DBMinConnections, cfg.DBMaxConnections)
	}

	if cfg.CertificateValidity <= 0 {
		return fmt.Errorf("CERTIFICATE_VALIDITY must be a positive duration")
	}
	if cfg.FingerprintWindow <= 0 {
		return fmt.Errorf("FINGERPRINT_WINDOW must be a positive duration")
	}
	if cfg.MaxAttemptsPerWindow < 1 {
		return fmt.Errorf("MAX_ATTEMPTS_PER_WINDOW must be at least 1")
	}
	if cfg.CodeMaxRetries < 1 {
		return fmt.Errorf("CODE_MAX_RETRIES must be at least 1")
	}
	if cfg.SigningWorkers < 1 {
		return fmt.Errorf("SIGNING_WORKERS must be at least 1")
	}
	if cfg.SigningQueueSize < 1 {
		return fmt.Errorf("SIGNING_QUEUE_SIZE must be at least 1")
	}

	return nil
}
