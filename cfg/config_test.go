package cfg

import (
	"os"
	"path/filepath"
	"testing"
)

func validTestConfig() *Configuration {
	return &Configuration{
		Cluster: ClusterConfiguration{
			Nodes: []NodeConfiguration{
				{ID: 1, Host: "localhost", Port: 26257, HTTPPort: 8080},
				{ID: 2, Host: "localhost", Port: 26258, HTTPPort: 8081},
			},
			PrimaryNode: "localhost:26257",
			Database:    "tpch",
			User:        "root",
			SSLMode:     "disable",
		},
		Status: StatusConfiguration{
			PollIntervalSeconds:       10,
			StalenessThresholdSeconds: 600,
			HTTPTimeoutSeconds:        5,
			APIVersion:                APIVersionAuto,
		},
		Workload: WorkloadConfiguration{
			Mix:              map[string]float64{"create_order": 30, "read_order": 70},
			Operations:       100,
			Concurrency:      5,
			ReferentKeyspace: 1000,
		},
		SQL: SQLConfiguration{
			MaxOpenConns:       10,
			MinIdleConns:       2,
			AcquireTimeoutMS:   1000,
			StatementTimeoutMS: 5000,
			MaxRetries:         3,
			RetryBackoffMS:     100,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()

	if err := Validate(); err != nil {
		t.Errorf("Expected no error for valid config, got: %v", err)
	}
}

func TestValidate_NoNodes(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()
	Config.Cluster.Nodes = nil

	if err := Validate(); err == nil {
		t.Error("Expected error for empty node list")
	}
}

func TestValidate_PrimaryNotInTopology(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()
	Config.Cluster.PrimaryNode = "otherhost:5432"

	if err := Validate(); err == nil {
		t.Error("Expected error when primary node is not a configured node")
	}
}

func TestValidate_NegativeMixWeight(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()
	Config.Workload.Mix = map[string]float64{"create_order": -1, "read_order": 101}

	if err := Validate(); err == nil {
		t.Error("Expected error for negative mix weight")
	}
}

func TestValidate_ZeroTotalWeight(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()
	Config.Workload.Mix = map[string]float64{"create_order": 0}

	if err := Validate(); err == nil {
		t.Error("Expected error for zero total mix weight")
	}
}

func TestValidate_InvalidAPIVersion(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()
	Config.Status.APIVersion = "v99"

	if err := Validate(); err == nil {
		t.Error("Expected error for unknown admin API version")
	}
}

func TestValidate_MinIdleAboveMaxOpen(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()
	Config.SQL.MinIdleConns = 20
	Config.SQL.MaxOpenConns = 10

	if err := Validate(); err == nil {
		t.Error("Expected error when min idle exceeds max open")
	}
}

func TestLoad_FromFile(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[cluster]
primary_node = "10.0.0.1:26257"

[[cluster.nodes]]
id = 1
host = "10.0.0.1"
port = 26257
http_port = 8080

[status]
staleness_threshold_seconds = 120

[workload]
operations = 50
concurrency = 2

[workload.mix]
create_order = 99.5
read_order = 0.5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if Config.Cluster.PrimaryNode != "10.0.0.1:26257" {
		t.Errorf("Expected primary node override, got %s", Config.Cluster.PrimaryNode)
	}
	if Config.Status.StalenessThresholdSeconds != 120 {
		t.Errorf("Expected staleness threshold 120, got %d", Config.Status.StalenessThresholdSeconds)
	}
	if Config.Workload.Mix["create_order"] != 99.5 {
		t.Errorf("Expected mix override, got %v", Config.Workload.Mix)
	}
	if Config.Workload.Mix["read_order"] != 0.5 {
		t.Errorf("Expected fractional mix weight, got %v", Config.Workload.Mix)
	}

	if err := Validate(); err != nil {
		t.Errorf("Loaded config should validate, got: %v", err)
	}
}

func TestDSN_PrimaryNode(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()

	dsn, err := DSN()
	if err != nil {
		t.Fatalf("DSN failed: %v", err)
	}

	expected := "host=localhost port=26257 dbname=tpch user=root sslmode=disable application_name="
	if dsn != expected {
		t.Errorf("Unexpected DSN: %s", dsn)
	}
}

func TestAdminURL_UsesHTTPPort(t *testing.T) {
	original := Config
	defer func() { Config = original }()

	Config = validTestConfig()

	url, err := AdminURL()
	if err != nil {
		t.Fatalf("AdminURL failed: %v", err)
	}

	if url != "http://localhost:8080" {
		t.Errorf("Unexpected admin URL: %s", url)
	}
}
