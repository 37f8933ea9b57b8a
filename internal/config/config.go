package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.  Three independent JWT secrets are kept so that a compromise
// of one token class cannot be used to mint tokens of another class and so
// that key rotation can be staged per class.
type Config struct {
	Env              string // application environment (e.g. "dev", "prod")
	Port             string // HTTP port to listen on
	DBUser           string // database username
	DBPass           string // database password (optional)
	DBHost           string // database host address
	DBPort           string // database port number
	DBName           string // database name
	DBMaxOpen        int    // connection pool: max open connections
	DBMaxIdle        int    // connection pool: max idle connections
	DBConnLifeMin    int    // connection pool: max connection lifetime in minutes
	AccessSecret     string // secret used to sign access tokens
	RefreshSecret    string // secret used to sign refresh tokens
	ActivationSecret string // secret used to sign account activation tokens
	AccessTTLMin     int    // access token time-to-live in minutes
	RefreshTTLDays   int    // refresh token time-to-live in days
	ActivationTTLMin int    // activation token time-to-live in minutes
	BcryptCost       int    // bcrypt cost for password hashing
	S3Bucket         string // bucket holding uploaded media (avatars, thumbnails)
	S3Region         string // region of the media bucket
	S3Endpoint       string // custom S3 endpoint (empty for AWS default)
	S3AccessKey      string // media storage access key
	S3SecretKey      string // media storage secret key
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		DBMaxOpen:        intOr("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdle:        intOr("DB_MAX_IDLE_CONNS", 25),
		DBConnLifeMin:    intOr("DB_CONN_LIFETIME_MIN", 30),
		AccessSecret:     must("ACCESS_TOKEN_SECRET"),
		RefreshSecret:    must("REFRESH_TOKEN_SECRET"),
		ActivationSecret: must("ACTIVATION_TOKEN_SECRET"),
		AccessTTLMin:     mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:   mustInt("REFRESH_TOKEN_TTL_DAYS"),
		ActivationTTLMin: mustInt("ACTIVATION_TOKEN_TTL_MIN"),
		BcryptCost:       mustInt("BCRYPT_COST"),
		S3Bucket:         must("S3_BUCKET"),
		S3Region:         must("S3_REGION"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"), // empty means AWS default
		S3AccessKey:      must("S3_ACCESS_KEY"),
		S3SecretKey:      must("S3_SECRET_KEY"),
	}
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// intOr reads an optional integer variable, falling back to a default when
// unset.  A present-but-malformed value is still fatal.
func intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
