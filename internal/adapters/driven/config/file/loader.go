package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// Environment variables that override the file.
const (
	EnvMongoURI            = "MONGODB_URI"
	EnvMongoDB             = "MONGODB_DB"
	EnvAPIKey              = "PARALLEL_API_KEY"
	EnvBaseURL             = "PARALLEL_BASE_URL"
	EnvProcessor           = "PARALLEL_PROCESSOR"
	EnvTimeoutSeconds      = "PARALLEL_TIMEOUT_SECONDS"
	EnvPollIntervalSeconds = "PARALLEL_POLL_INTERVAL_SECONDS"
	EnvCORSOrigins         = "CORS_ORIGINS"
	EnvStorageDriver       = "DRP_STORAGE_DRIVER"
	EnvDataDir             = "DRP_DATA_DIR"
	EnvAddr                = "DRP_ADDR"
)

// fileConfig mirrors config.toml. Pointers distinguish absent keys from zero values.
type fileConfig struct {
	Storage struct {
		Driver                *string  `toml:"driver"`
		URI                   *string  `toml:"uri"`
		Database              *string  `toml:"database"`
		DataDir               *string  `toml:"data_dir"`
		ConnectTimeoutSeconds *float64 `toml:"connect_timeout_seconds"`
	} `toml:"storage"`
	Research struct {
		APIKey              *string  `toml:"api_key"`
		BaseURL             *string  `toml:"base_url"`
		Processor           *string  `toml:"processor"`
		PollIntervalSeconds *float64 `toml:"poll_interval_seconds"`
		TimeoutSeconds      *float64 `toml:"timeout_seconds"`
		Limit               *int     `toml:"limit"`
		RequestsPerSecond   *float64 `toml:"requests_per_second"`
		MaxFetchErrors      *int     `toml:"max_fetch_errors"`
	} `toml:"research"`
	Server struct {
		Addr        *string  `toml:"addr"`
		MCPAddr     *string  `toml:"mcp_addr"`
		CORSOrigins []string `toml:"cors_origins"`
		Debug       *bool    `toml:"debug"`
	} `toml:"server"`
}

// Loader reads configuration from a TOML file and the environment.
// Environment variables take precedence over the file.
type Loader struct {
	filePath  string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader for path.
// If path is empty, defaults to ~/.deepresearchpod/config.toml.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, ".deepresearchpod", "config.toml")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Loader{filePath: filepath.Clean(path), lookupEnv: os.LookupEnv}, nil
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.filePath
}

// Load builds the configuration from defaults, the file and the environment.
// A missing file is not an error.
func (l *Loader) Load() (domain.Config, error) {
	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(l.filePath)
	switch {
	case err == nil:
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", l.filePath, err)
		}
		fc.apply(&cfg)
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("read %s: %w", l.filePath, err)
	}

	if err := l.applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *domain.Config) {
	s, r, srv := &fc.Storage, &fc.Research, &fc.Server

	setString(&cfg.Storage.Driver, s.Driver)
	setString(&cfg.Storage.URI, s.URI)
	setString(&cfg.Storage.Database, s.Database)
	setString(&cfg.Storage.DataDir, s.DataDir)
	setSeconds(&cfg.Storage.ConnectTimeout, s.ConnectTimeoutSeconds)

	setString(&cfg.Research.APIKey, r.APIKey)
	setString(&cfg.Research.BaseURL, r.BaseURL)
	setString(&cfg.Research.Processor, r.Processor)
	setSeconds(&cfg.Research.PollInterval, r.PollIntervalSeconds)
	setSeconds(&cfg.Research.Timeout, r.TimeoutSeconds)
	if r.Limit != nil {
		cfg.Research.Limit = *r.Limit
	}
	if r.RequestsPerSecond != nil {
		cfg.Research.RequestsPerSecond = *r.RequestsPerSecond
	}
	if r.MaxFetchErrors != nil {
		cfg.Research.MaxFetchErrors = *r.MaxFetchErrors
	}

	setString(&cfg.Server.Addr, srv.Addr)
	setString(&cfg.Server.MCPAddr, srv.MCPAddr)
	if srv.CORSOrigins != nil {
		cfg.Server.CORSOrigins = srv.CORSOrigins
	}
	if srv.Debug != nil {
		cfg.Server.Debug = *srv.Debug
	}
}

func (l *Loader) applyEnv(cfg *domain.Config) error {
	strs := map[string]*string{
		EnvMongoURI:      &cfg.Storage.URI,
		EnvMongoDB:       &cfg.Storage.Database,
		EnvAPIKey:        &cfg.Research.APIKey,
		EnvBaseURL:       &cfg.Research.BaseURL,
		EnvProcessor:     &cfg.Research.Processor,
		EnvStorageDriver: &cfg.Storage.Driver,
		EnvDataDir:       &cfg.Storage.DataDir,
		EnvAddr:          &cfg.Server.Addr,
	}
	for key, dst := range strs {
		if v, ok := l.env(key); ok {
			*dst = v
		}
	}

	secs := map[string]*time.Duration{
		EnvTimeoutSeconds:      &cfg.Research.Timeout,
		EnvPollIntervalSeconds: &cfg.Research.PollInterval,
	}
	for key, dst := range secs {
		v, ok := l.env(key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number of seconds, got %q", domain.ErrInvalidInput, key, v)
		}
		*dst = seconds(f)
	}

	if v, ok := l.env(EnvCORSOrigins); ok {
		cfg.Server.CORSOrigins = SplitOrigins(v)
	}
	return nil
}

// env returns a non-empty, trimmed environment value.
func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// SplitOrigins parses a comma-separated origin list, dropping blanks.
func SplitOrigins(v string) []string {
	var origins []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setSeconds(dst *time.Duration, v *float64) {
	if v != nil {
		*dst = seconds(*v)
	}
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
