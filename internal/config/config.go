package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultSyncInterval = 5 * time.Minute
	defaultStatePath    = "ddnssync.db"
	defaultResolverURL  = "https://api.ipify.org?format=json"
	defaultMetricsAddr  = ":9090"
	defaultLogLevel     = "info"
	defaultLogEnv       = "prod"
)

type Config struct {
	SyncInterval time.Duration `yaml:"syncInterval"`
	StatePath    string        `yaml:"statePath"`
	Log          Log           `yaml:"log"`
	DNS          DNS           `yaml:"dns"`
	Resolver     Resolver      `yaml:"resolver"`
	Metrics      Metrics       `yaml:"metrics"`
	Reconcile    Reconcile     `yaml:"reconcile"`
}

type DNS struct {
	Token   string   `yaml:"token"`
	ZoneID  string   `yaml:"zoneId"`
	Records []string `yaml:"records"`
}

type Resolver struct {
	URL string `yaml:"url"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type Reconcile struct {
	DryRun bool `yaml:"dryRun"`
}

func Load(path string) (*Config, error) {
	configFile := true
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail find config file, proceeding", "path", path)
		configFile = false
	}

	var cfg Config
	if configFile {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	// Override from environment if set
	if token := os.Getenv("DDNS_SYNC_CLOUDFLARE_TOKEN"); token != "" {
		cfg.DNS.Token = token
	}
	if zoneID := os.Getenv("DDNS_SYNC_ZONE_ID"); zoneID != "" {
		cfg.DNS.ZoneID = zoneID
	}
	if records := os.Getenv("DDNS_SYNC_RECORDS"); records != "" {
		cfg.DNS.Records = parseRecords(records)
	}
	if syncInterval := os.Getenv("DDNS_SYNC_INTERVAL"); syncInterval != "" {
		if interval, err := parseInterval(syncInterval); err == nil {
			cfg.SyncInterval = interval
		} else {
			slog.Default().Warn("fail parse sync interval from string", "interval", syncInterval, "error", err)
		}
	}
	if resolverURL := os.Getenv("DDNS_SYNC_RESOLVER_URL"); resolverURL != "" {
		cfg.Resolver.URL = resolverURL
	}
	if statePath := os.Getenv("DDNS_SYNC_STATE_PATH"); statePath != "" {
		cfg.StatePath = statePath
	}
	if metricsAddr := os.Getenv("DDNS_SYNC_METRICS_ADDR"); metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if dryRun := os.Getenv("DDNS_SYNC_DRYRUN"); dryRun != "" {
		switch strings.ToLower(dryRun) {
		case "true":
			cfg.Reconcile.DryRun = true
		case "false":
			cfg.Reconcile.DryRun = false
		default:
			slog.Default().Warn("fail parse dryrun to bool from string", "dryrun", dryRun)
		}
	}
	if loglevel := os.Getenv("DDNS_SYNC_LOG_LEVEL"); loglevel != "" {
		cfg.Log.Level = loglevel
	}
	if logenv := os.Getenv("DDNS_SYNC_LOG_ENV"); logenv != "" {
		cfg.Log.Env = logenv
	}

	// Set defaults
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = defaultSyncInterval
	}
	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath
	}
	if cfg.Resolver.URL == "" {
		cfg.Resolver.URL = defaultResolverURL
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = defaultMetricsAddr
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}
	return &cfg, nil
}

// Validate reports fatal configuration problems. Called once at startup,
// before the sync loop is allowed to begin.
func (cfg *Config) Validate() error {
	if cfg.DNS.Token == "" {
		return errors.New("cloudflare api token required")
	}
	if cfg.DNS.ZoneID == "" {
		return errors.New("cloudflare zone id required")
	}
	if len(cfg.DNS.Records) == 0 {
		return errors.New("at least one record name required")
	}
	if cfg.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", cfg.SyncInterval)
	}
	return nil
}

// parseRecords accepts a JSON array of record names, falling back to a
// comma-separated list for convenience.
func parseRecords(raw string) []string {
	var records []string
	if err := json.Unmarshal([]byte(raw), &records); err == nil {
		return records
	}
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			records = append(records, r)
		}
	}
	return records
}

// parseInterval accepts a Go duration string or a bare integer number of minutes.
func parseInterval(raw string) (time.Duration, error) {
	if interval, err := time.ParseDuration(raw); err == nil {
		return interval, nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("fail parse %q as duration or minutes", raw)
	}
	return time.Duration(minutes) * time.Minute, nil
}
