package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rangelab/rangectl/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Addr           string
	GatewayURL     string
	EventsURL      string
	ProvisionerURL string
	Datasource     string

	// ConnectionIDs maps roles to preconfigured gateway connection ids,
	// "role=id" pairs. Status responses may override these at runtime.
	ConnectionIDs map[domain.Role]string

	PollInterval         time.Duration
	DegradedPollInterval time.Duration
	HealthInterval       time.Duration
	IdleThreshold        time.Duration

	DBPath   string
	MockMode bool
	Debug    bool
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Addr = getEnv("RANGECTL_ADDR", ":8080")
	cfg.GatewayURL = getEnv("RANGECTL_GATEWAY", "http://localhost:5000")
	cfg.EventsURL = getEnv("RANGECTL_EVENTS", "")
	cfg.ProvisionerURL = getEnv("RANGECTL_PROVISIONER", "http://localhost:3000")
	cfg.Datasource = getEnv("RANGECTL_DATASOURCE", "mysql")
	cfg.DBPath = getEnv("RANGECTL_DB", getDefaultDBPath())
	cfg.MockMode = getEnvBool("RANGECTL_MOCK", false)
	connIDs := getEnv("RANGECTL_CONNECTIONS", "")

	cfg.PollInterval = getEnvDuration("RANGECTL_POLL_INTERVAL", 30*time.Second)
	cfg.DegradedPollInterval = getEnvDuration("RANGECTL_DEGRADED_POLL_INTERVAL", 10*time.Second)
	cfg.HealthInterval = getEnvDuration("RANGECTL_HEALTH_INTERVAL", 5*time.Minute)
	cfg.IdleThreshold = getEnvDuration("RANGECTL_IDLE_THRESHOLD", 15*time.Minute)

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.GatewayURL, "gateway", cfg.GatewayURL, "Remote-access gateway base URL")
	flag.StringVar(&cfg.EventsURL, "events", cfg.EventsURL, "Push channel URL (empty to derive from gateway)")
	flag.StringVar(&cfg.ProvisionerURL, "provisioner", cfg.ProvisionerURL, "VM provisioning backend URL")
	flag.StringVar(&cfg.Datasource, "datasource", cfg.Datasource, "Gateway authentication datasource")
	flag.StringVar(&connIDs, "connections", connIDs, "Role connection ids, e.g. victim=12,attacker=13")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite audit database")
	flag.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run against an in-process mock gateway")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Status poll interval")
	flag.DurationVar(&cfg.DegradedPollInterval, "degraded-poll-interval", cfg.DegradedPollInterval, "Status poll interval while the push channel is down")
	flag.DurationVar(&cfg.HealthInterval, "health-interval", cfg.HealthInterval, "Idle session sweep interval")
	flag.DurationVar(&cfg.IdleThreshold, "idle-threshold", cfg.IdleThreshold, "Inactivity threshold before token re-validation")

	flag.Parse()

	if cfg.EventsURL == "" {
		cfg.EventsURL = strings.TrimRight(cfg.GatewayURL, "/") + "/events"
	}
	cfg.ConnectionIDs = parseConnectionIDs(connIDs)

	return cfg
}

// parseConnectionIDs parses "victim=12,attacker=13" into a role map.
func parseConnectionIDs(s string) map[domain.Role]string {
	ids := make(map[domain.Role]string)
	if s == "" {
		return ids
	}
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		ids[domain.Role(parts[0])] = parts[1]
	}
	return ids
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "rangectl.db"
	}

	dir := filepath.Join(home, ".rangectl")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .rangectl directory, using current dir: %v", err)
		return "rangectl.db"
	}

	return filepath.Join(dir, "rangectl.db")
}
