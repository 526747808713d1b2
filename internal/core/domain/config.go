package domain

import "time"

// Storage drivers.
const (
	StorageDriverMongo  = "mongodb"
	StorageDriverSQLite = "sqlite"
	StorageDriverMemory = "memory"
)

// Collection names used by the storage adapter.
const (
	CollectionTasks    = "research_tasks"
	CollectionResearch = "research"
)

// ProcessorUltra is the provider's slowest and most thorough processing tier.
const ProcessorUltra = "ultra"

// Config aggregates all runtime configuration.
type Config struct {
	Storage  StorageConfig
	Research ResearchConfig
	Server   ServerConfig
}

// StorageConfig configures the durable backend.
type StorageConfig struct {
	// Driver selects the durable backend (mongodb, sqlite, memory).
	Driver string

	// URI is the MongoDB connection string.
	URI string

	// Database is the MongoDB database name.
	Database string

	// DataDir holds the SQLite database file.
	DataDir string

	// ConnectTimeout bounds connection and server selection so an
	// unavailable backend is detected quickly instead of hanging.
	ConnectTimeout time.Duration
}

// ResearchConfig configures the research provider and the poll policy.
type ResearchConfig struct {
	APIKey            string
	BaseURL           string
	Processor         string
	PollInterval      time.Duration
	Timeout           time.Duration
	Limit             int
	RequestsPerSecond float64
	MaxFetchErrors    int
}

// ServerConfig configures the HTTP and MCP endpoints.
type ServerConfig struct {
	Addr        string
	MCPAddr     string
	CORSOrigins []string
	Debug       bool
}

// ResearchPolicy holds the tunable constants of the poll loop.
type ResearchPolicy struct {
	Processor      string
	PollInterval   time.Duration
	Timeout        time.Duration
	Limit          int
	MaxFetchErrors int
}

// DefaultTimeoutFor returns the poll budget for a processor tier.
func DefaultTimeoutFor(processor string) time.Duration {
	if processor == ProcessorUltra {
		return 300 * time.Second
	}
	return 120 * time.Second
}

// Policy derives the poll policy, filling zero values with defaults.
func (c ResearchConfig) Policy() ResearchPolicy {
	p := ResearchPolicy{
		Processor:      c.Processor,
		PollInterval:   c.PollInterval,
		Timeout:        c.Timeout,
		Limit:          c.Limit,
		MaxFetchErrors: c.MaxFetchErrors,
	}
	if p.Processor == "" {
		p.Processor = ProcessorUltra
	}
	if p.PollInterval <= 0 {
		p.PollInterval = 3 * time.Second
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeoutFor(p.Processor)
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.MaxFetchErrors <= 0 {
		p.MaxFetchErrors = 5
	}
	return p
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Driver:         StorageDriverMongo,
			Database:       "deepresearchpod",
			ConnectTimeout: 5 * time.Second,
		},
		Research: ResearchConfig{
			BaseURL:           "https://api.parallel.ai",
			Processor:         ProcessorUltra,
			PollInterval:      3 * time.Second,
			Limit:             10,
			RequestsPerSecond: 2,
			MaxFetchErrors:    5,
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
	}
}
