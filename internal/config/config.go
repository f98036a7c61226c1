package config

import (
	"os"
	"time"
)

// Config holds everything loaded from the environment at startup. The JWT
// secret is injected into the token service from here rather than read from a
// package-level variable, so tests can construct isolated instances.
type Config struct {
	Port string

	DatabaseDSN string

	JWTSecret  string
	SessionTTL time.Duration
	RestoreTTL time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	// Base URL the restore/reset links in outgoing mail point at.
	FrontendBaseURL string

	SeedAdminUsername string
	SeedAdminPassword string
	SeedAdminEmail    string
	SeedAdminPhone    string
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads the process environment into a Config. godotenv is expected to
// have populated the environment already (done in main).
func Load() Config {
	dbHost := getenv("DB_HOST", "localhost")
	dbPort := getenv("DB_PORT", "5432")
	dbUser := getenv("DB_USER", "postgres")
	dbPassword := getenv("DB_PASSWORD", "postgres")
	dbName := getenv("DB_NAME", "postgres")
	dbSslMode := getenv("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // development fallback, never used in release mode
	}

	return Config{
		Port:        getenv("PORT", "8080"),
		DatabaseDSN: dsn,

		JWTSecret:  secret,
		SessionTTL: 15 * time.Minute,
		RestoreTTL: 15 * time.Minute,

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getenv("SMTP_PORT", "465"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASS"),
		MailFrom:     getenv("MAIL_FROM", os.Getenv("SMTP_USER")),

		FrontendBaseURL: getenv("FRONTEND_BASE_URL", "http://localhost:3000"),

		SeedAdminUsername: os.Getenv("SEED_ADMIN_USERNAME"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPhone:    os.Getenv("SEED_ADMIN_PHONE"),
	}
}
