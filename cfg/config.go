package cfg

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// AdminAPIVersion selects how the cluster status payload is decoded
type AdminAPIVersion string

const (
	APIVersionAuto    AdminAPIVersion = "auto"    // Sniff per payload
	APIVersionLegacy  AdminAPIVersion = "legacy"  // desc/liveness/started_at shape
	APIVersionCurrent AdminAPIVersion = "current" // flat fields with updatedAt nanos
)

// NodeConfiguration describes one cluster member
type NodeConfiguration struct {
	ID       int    `toml:"id"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`      // SQL port
	HTTPPort int    `toml:"http_port"` // Admin UI port
	Store    string `toml:"store"`     // Data directory for process control
}

// ClusterConfiguration describes topology and SQL connection parameters
type ClusterConfiguration struct {
	Nodes       []NodeConfiguration `toml:"nodes"`
	PrimaryNode string              `toml:"primary_node"` // host:port of the node used for SQL and admin access
	Database    string              `toml:"database"`
	User        string              `toml:"user"`
	SSLMode     string              `toml:"ssl_mode"`
	AppName     string              `toml:"application_name"`
}

// StatusConfiguration controls the admin status poller
type StatusConfiguration struct {
	PollIntervalSeconds       int             `toml:"poll_interval_seconds"`
	StalenessThresholdSeconds int             `toml:"staleness_threshold_seconds"`
	HTTPTimeoutSeconds        int             `toml:"http_timeout_seconds"`
	APIVersion                AdminAPIVersion `toml:"api_version"`
}

// WorkloadConfiguration controls the synthetic workload generator
type WorkloadConfiguration struct {
	Mix              map[string]float64 `toml:"mix"` // operation kind -> relative weight
	Operations       int                `toml:"operations"`
	Concurrency      int                `toml:"concurrency"`
	ReferentKeyspace int                `toml:"referent_keyspace"` // Key range for customers/parts/suppliers
	BootstrapSchema  bool               `toml:"bootstrap_schema"`
}

// SQLConfiguration controls connection pooling and retry behavior
type SQLConfiguration struct {
	MaxOpenConns           int `toml:"max_open_conns"`
	MinIdleConns           int `toml:"min_idle_conns"`
	ConnMaxLifetimeSeconds int `toml:"conn_max_lifetime_seconds"`
	AcquireTimeoutMS       int `toml:"acquire_timeout_ms"`
	StatementTimeoutMS     int `toml:"statement_timeout_ms"`
	MaxRetries             int `toml:"max_retries"`
	RetryBackoffMS         int `toml:"retry_backoff_ms"`
}

// NodeControlConfiguration controls the cockroach process wrapper
type NodeControlConfiguration struct {
	Binary   string `toml:"binary"`
	Insecure bool   `toml:"insecure"`
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// Configuration is the main configuration structure
type Configuration struct {
	Cluster     ClusterConfiguration     `toml:"cluster"`
	Status      StatusConfiguration      `toml:"status"`
	Workload    WorkloadConfiguration    `toml:"workload"`
	SQL         SQLConfiguration         `toml:"sql"`
	NodeControl NodeControlConfiguration `toml:"node_control"`
	Logging     LoggingConfiguration     `toml:"logging"`
	Prometheus  PrometheusConfiguration  `toml:"prometheus"`
}

// Default configuration
var Config = &Configuration{
	Cluster: ClusterConfiguration{
		Nodes:       []NodeConfiguration{},
		PrimaryNode: "localhost:26257",
		Database:    "tpch",
		User:        "root",
		SSLMode:     "disable",
		AppName:     "roachload",
	},

	Status: StatusConfiguration{
		PollIntervalSeconds:       10,
		StalenessThresholdSeconds: 600, // Empirical default carried over, not tuned
		HTTPTimeoutSeconds:        5,
		APIVersion:                APIVersionAuto,
	},

	Workload: WorkloadConfiguration{
		Mix: map[string]float64{
			"create_order": 30,
			"read_order":   40,
			"update_order": 20,
			"analytics":    10,
		},
		Operations:       1000,
		Concurrency:      10,
		ReferentKeyspace: 1000,
		BootstrapSchema:  true,
	},

	SQL: SQLConfiguration{
		MaxOpenConns:           50,
		MinIdleConns:           5,
		ConnMaxLifetimeSeconds: 300,
		AcquireTimeoutMS:       5000,
		StatementTimeoutMS:     10000,
		MaxRetries:             3,
		RetryBackoffMS:         100,
	},

	NodeControl: NodeControlConfiguration{
		Binary:   "cockroach",
		Insecure: true,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: false,
		Address: "0.0.0.0",
		Port:    9090,
	},
}

// Load loads configuration from file
func Load(configPath string) error {
	if configPath == "" {
		return nil
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		return nil
	}

	log.Info().Str("path", configPath).Msg("Loading configuration")
	if _, err := toml.DecodeFile(configPath, Config); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	return nil
}

// Validate checks configuration for errors
func Validate() error {
	if len(Config.Cluster.Nodes) == 0 {
		return fmt.Errorf("at least one cluster node must be configured")
	}

	for _, n := range Config.Cluster.Nodes {
		if n.Host == "" {
			return fmt.Errorf("node %d: host is required", n.ID)
		}
		if n.Port < 1 || n.Port > 65535 {
			return fmt.Errorf("node %d: invalid SQL port: %d", n.ID, n.Port)
		}
		if n.HTTPPort < 1 || n.HTTPPort > 65535 {
			return fmt.Errorf("node %d: invalid HTTP port: %d", n.ID, n.HTTPPort)
		}
	}

	if _, err := PrimaryNode(); err != nil {
		return err
	}

	switch Config.Status.APIVersion {
	case APIVersionAuto, APIVersionLegacy, APIVersionCurrent:
	default:
		return fmt.Errorf("invalid status api_version: %s", Config.Status.APIVersion)
	}

	if Config.Status.StalenessThresholdSeconds < 1 {
		return fmt.Errorf("staleness threshold must be >= 1 second")
	}

	if Config.Status.PollIntervalSeconds < 1 {
		return fmt.Errorf("poll interval must be >= 1 second")
	}

	if Config.Status.HTTPTimeoutSeconds < 1 {
		return fmt.Errorf("status HTTP timeout must be >= 1 second")
	}

	total := 0.0
	for kind, weight := range Config.Workload.Mix {
		if weight < 0 {
			return fmt.Errorf("workload mix weight for %s must be >= 0", kind)
		}
		total += weight
	}
	if total <= 0 {
		return fmt.Errorf("workload mix weights must sum to a positive total")
	}

	if Config.Workload.Operations < 0 {
		return fmt.Errorf("workload operations must be >= 0")
	}

	if Config.Workload.Concurrency < 1 {
		return fmt.Errorf("workload concurrency must be >= 1")
	}

	if Config.Workload.ReferentKeyspace < 1 {
		return fmt.Errorf("referent keyspace must be >= 1")
	}

	if Config.SQL.MaxOpenConns < 1 {
		return fmt.Errorf("max open connections must be >= 1")
	}

	if Config.SQL.MinIdleConns < 0 {
		return fmt.Errorf("min idle connections must be >= 0")
	}

	if Config.SQL.MinIdleConns > Config.SQL.MaxOpenConns {
		return fmt.Errorf("min idle connections cannot exceed max open connections")
	}

	if Config.SQL.AcquireTimeoutMS < 1 {
		return fmt.Errorf("pool acquire timeout must be >= 1ms")
	}

	if Config.SQL.StatementTimeoutMS < 1 {
		return fmt.Errorf("statement timeout must be >= 1ms")
	}

	if Config.SQL.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}

	if Config.SQL.RetryBackoffMS < 0 {
		return fmt.Errorf("retry backoff must be >= 0")
	}

	if Config.Prometheus.Enabled && (Config.Prometheus.Port < 1 || Config.Prometheus.Port > 65535) {
		return fmt.Errorf("invalid prometheus port: %d", Config.Prometheus.Port)
	}

	return nil
}

// PrimaryNode resolves the primary_node address to a configured node
func PrimaryNode() (NodeConfiguration, error) {
	for _, n := range Config.Cluster.Nodes {
		if fmt.Sprintf("%s:%d", n.Host, n.Port) == Config.Cluster.PrimaryNode {
			return n, nil
		}
	}
	return NodeConfiguration{}, fmt.Errorf("primary_node %q does not match any configured node", Config.Cluster.PrimaryNode)
}

// AdminURL returns the admin UI base URL derived from the primary node
func AdminURL() (string, error) {
	primary, err := PrimaryNode()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d", primary.Host, primary.HTTPPort), nil
}

// DSN builds the postgres-protocol connection string for the primary node
func DSN() (string, error) {
	primary, err := PrimaryNode()
	if err != nil {
		return "", err
	}

	parts := []string{
		fmt.Sprintf("host=%s", primary.Host),
		fmt.Sprintf("port=%d", primary.Port),
		fmt.Sprintf("dbname=%s", Config.Cluster.Database),
		fmt.Sprintf("user=%s", Config.Cluster.User),
		fmt.Sprintf("sslmode=%s", Config.Cluster.SSLMode),
		fmt.Sprintf("application_name=%s", Config.Cluster.AppName),
	}
	return strings.Join(parts, " "), nil
}
