package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"time"

	"github.com/joho/godotenv" // optional .env file support for local runs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The values are read once at startup and never
// mutated afterwards, so a Config can be shared freely between requests.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	BaseURL         string // public base URL used to build links in emails
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	MigrateOnStart  bool   // apply pending migrations when the server starts
	JWTSecret       string // secret used to sign JWTs
	JWTAlgorithm    string // HMAC signing algorithm name (HS256, HS384, HS512)
	AccessTTLMin    int    // access token time‑to‑live in minutes
	RefreshTTLDays  int    // refresh token time‑to‑live in days
	BcryptCost      int    // bcrypt cost for password hashing
	LogLevel        string // logrus level name
	LogFormat       string // "json" or "text"
	AMQPURL         string // RabbitMQ URL; empty disables the queue
	ShutdownTimeout time.Duration
	Mail            MailConfig
	Storage         StorageConfig
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when present;
// variables already set in the environment win.  Required variables are
// enforced by must() and missing values cause the program to exit with a
// fatal log message.
func Load() Config {
	_ = godotenv.Load() // a missing .env file is not an error

	return Config{
		Env:             must("APP_ENV"),                                 // environment (dev/test/prod)
		Port:            must("APP_PORT"),                                // port to bind the HTTP server
		BaseURL:         envStr("APP_BASE_URL", "http://localhost:8000"), // links in confirmation mails
		DBUser:          must("DB_USER"),                                 // database user
		DBPass:          os.Getenv("DB_PASS"),                            // database password (empty allowed)
		DBHost:          must("DB_HOST"),                                 // database host
		DBPort:          must("DB_PORT"),                                 // database port
		DBName:          must("DB_NAME"),                                 // database name
		MigrateOnStart:  envBool("DB_MIGRATE_ON_START", true),
		JWTSecret:       must("JWT_SECRET"), // secret used for signing JWTs
		JWTAlgorithm:    envStr("JWT_ALGORITHM", "HS256"),
		AccessTTLMin:    envInt("ACCESS_TOKEN_TTL_MIN", 15),  // TTL for access tokens in minutes
		RefreshTTLDays:  envInt("REFRESH_TOKEN_TTL_DAYS", 7), // TTL for refresh tokens in days
		BcryptCost:      envInt("BCRYPT_COST", 12),           // bcrypt cost factor
		LogLevel:        envStr("LOG_LEVEL", "info"),
		LogFormat:       envStr("LOG_FORMAT", "text"),
		AMQPURL:         amqpURL(),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
		Mail:            LoadMailConfig(),
		Storage:         LoadStorageConfig(),
	}
}

// AccessTTL returns the access token lifetime as a duration.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL returns the refresh token lifetime as a duration.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// amqpURL honours both RABBITMQ_URL and AMQP_URL.  There is no localhost
// default: an empty value means the broker is not used and confirmation
// mails are sent directly.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
