package appconf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps a command-line or environment flag value to an
// Environment. Unrecognized values fall back to Development.
func EnvFlagToEnvironment(flag string) Environment {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "test":
		return Test
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

const DefaultTimezone = "Europe/Tallinn"

// Config holds the application-level settings.
type Config struct {
	Port      int
	Env       Environment
	ApiKeys   []string
	RateLimit int
	Timezone  string
	Verbose   bool
}

// GtfsSettings holds the feed-related settings read from the environment.
// They are kept separate from Config so the GTFS layer does not depend on
// the HTTP server configuration.
type GtfsSettings struct {
	URL                   string
	DataPath              string
	StaticAuthHeaderKey   string
	StaticAuthHeaderValue string
}

// Load reads configuration from the process environment. A .env file in the
// working directory is loaded first when present.
func Load() (Config, GtfsSettings, error) {
	_ = godotenv.Load()

	port, err := getenvInt("PORT", 4000)
	if err != nil {
		return Config{}, GtfsSettings{}, err
	}
	rateLimit, err := getenvInt("RATE_LIMIT", 100)
	if err != nil {
		return Config{}, GtfsSettings{}, err
	}

	cfg := Config{
		Port:      port,
		Env:       EnvFlagToEnvironment(os.Getenv("ENV")),
		ApiKeys:   splitList(os.Getenv("API_KEYS")),
		RateLimit: rateLimit,
		Timezone:  getenvDefault("TIMEZONE", DefaultTimezone),
		Verbose:   getenvBool("VERBOSE"),
	}

	gtfs := GtfsSettings{
		URL:                   os.Getenv("GTFS_URL"),
		DataPath:              getenvDefault("GTFS_DATA_PATH", "./gtfs.db"),
		StaticAuthHeaderKey:   os.Getenv("GTFS_AUTH_HEADER_KEY"),
		StaticAuthHeaderValue: os.Getenv("GTFS_AUTH_HEADER_VALUE"),
	}

	if cfg.Env == Test {
		gtfs.DataPath = ":memory:"
	}

	return cfg, gtfs, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return n, nil
}

func getenvBool(key string) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
