package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Sub-systems with many knobs (rate limiting,
// caching, mail, storage, oauth) keep their own structs and loaders in
// sibling files.
type Config struct {
	Env         string        // application environment (e.g. "dev", "prod")
	Port        string        // HTTP port to listen on
	BaseURL     string        // public URL of the web front-end, used in emails and redirects
	DBUser      string        // database username
	DBPass      string        // database password (optional)
	DBHost      string        // database host address
	DBPort      string        // database port number
	DBName      string        // database name
	DBMigrate   bool          // run embedded migrations on startup
	DBLogSQL    bool          // log every SQL statement
	JWTSecret   string        // secret used to sign session and admin tokens
	SessionTTL  time.Duration // lifetime of an end-user session
	AdminTTL    time.Duration // lifetime of an admin token
	BcryptCost  int           // bcrypt cost for password hashing
	LogLevel    string        // debug | info | warn | error
	CORSOrigins []string      // allowed origins for browser clients
	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For.  Empty
	// means the socket address is the client IP.
	TrustedProxies []string
	Cookies        CookieConfig
}

// CookieConfig controls the attributes of the session and admin cookies.
type CookieConfig struct {
	SessionName string
	AdminName   string
	Domain      string
	Secure      bool
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	env := must("APP_ENV")
	return Config{
		Env:            env,
		Port:           must("APP_PORT"),
		BaseURL:        strings.TrimRight(envStr("APP_BASE_URL", "http://localhost:3000"), "/"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMigrate:      envBool("DB_MIGRATE", true),
		DBLogSQL:       envBool("DB_LOG_SQL", false),
		JWTSecret:      must("JWT_SECRET"),
		SessionTTL:     envDur("SESSION_TTL", 30*24*time.Hour),
		AdminTTL:       envDur("ADMIN_TOKEN_TTL", 8*time.Hour),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		CORSOrigins:    splitList(envStr("CORS_ORIGINS", "http://localhost:3000")),
		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
		Cookies: CookieConfig{
			SessionName: envStr("SESSION_COOKIE_NAME", "session-token"),
			AdminName:   envStr("ADMIN_COOKIE_NAME", "admin-token"),
			Domain:      os.Getenv("COOKIE_DOMAIN"),
			Secure:      envBool("COOKIE_SECURE", env != "dev"),
		},
	}
}

// IsDev reports whether the service runs in the development environment.
func (c Config) IsDev() bool { return c.Env == "dev" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
