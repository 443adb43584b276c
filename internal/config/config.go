package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath        = "./dev.db"
	defaultPort          = "8080"
	defaultEnv           = "dev"
	defaultBillingPrefix = "U4RAD"
	defaultRedisAddr     = "localhost:6379"
)

// Billing counter backends.
const (
	SequenceSQLite   = "sqlite"
	SequencePostgres = "postgres"
	SequenceRedis    = "redis"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env             string
	AdminEmail      string
	AdminPassword   string
	SessionSecret   string
	DBPath          string
	Port            string
	BillingPrefix   string
	SequenceBackend string
	PostgresDSN     string
	RedisAddr       string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	return load(".env")
}

func load(dotenvPath string) Config {
	// Existing environment variables win over the file.
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: could not read %s: %v", dotenvPath, err)
	}

	cfg := Config{
		Env:             os.Getenv("APP_ENV"),
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		DBPath:          os.Getenv("DB_PATH"),
		Port:            os.Getenv("PORT"),
		BillingPrefix:   os.Getenv("BILLING_PREFIX"),
		SequenceBackend: strings.ToLower(strings.TrimSpace(os.Getenv("SEQUENCE_BACKEND"))),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
	}

	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.BillingPrefix == "" {
		cfg.BillingPrefix = defaultBillingPrefix
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = defaultRedisAddr
	}

	switch cfg.SequenceBackend {
	case SequenceSQLite, SequencePostgres, SequenceRedis:
	case "":
		cfg.SequenceBackend = SequenceSQLite
	default:
		log.Printf("warning: unknown SEQUENCE_BACKEND %q, using sqlite", cfg.SequenceBackend)
		cfg.SequenceBackend = SequenceSQLite
	}
	if cfg.SequenceBackend == SequencePostgres && cfg.PostgresDSN == "" {
		log.Print("warning: SEQUENCE_BACKEND=postgres but POSTGRES_DSN is not set, using sqlite")
		cfg.SequenceBackend = SequenceSQLite
	}

	if cfg.AdminEmail == "" {
		log.Print("warning: ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		log.Print("warning: ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		log.Print("warning: SESSION_SECRET is not set")
	}

	return cfg
}

// IsDev reports whether the application runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}
