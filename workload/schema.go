package workload

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// The harness targets the TPC-H-shaped e-commerce schema. Bootstrap is
// idempotent so repeated runs against the same cluster are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS region (
		regionkey INT PRIMARY KEY,
		name      VARCHAR(25) NOT NULL,
		comment   VARCHAR(152)
	)`,
	`CREATE TABLE IF NOT EXISTS nation (
		nationkey INT PRIMARY KEY,
		name      VARCHAR(25) NOT NULL,
		regionkey INT NOT NULL REFERENCES region (regionkey),
		comment   VARCHAR(152)
	)`,
	`CREATE TABLE IF NOT EXISTS customer (
		custkey    INT PRIMARY KEY,
		name       VARCHAR(25) NOT NULL,
		address    VARCHAR(40),
		nationkey  INT NOT NULL,
		phone      VARCHAR(15),
		acctbal    DECIMAL(12,2),
		mktsegment VARCHAR(10),
		comment    VARCHAR(117)
	)`,
	`CREATE TABLE IF NOT EXISTS supplier (
		suppkey   INT PRIMARY KEY,
		name      VARCHAR(25) NOT NULL,
		address   VARCHAR(40),
		nationkey INT NOT NULL,
		phone     VARCHAR(15),
		acctbal   DECIMAL(12,2),
		comment   VARCHAR(101)
	)`,
	`CREATE TABLE IF NOT EXISTS part (
		partkey     INT PRIMARY KEY,
		name        VARCHAR(55) NOT NULL,
		mfgr        VARCHAR(25),
		brand       VARCHAR(10),
		type        VARCHAR(25),
		size        INT,
		container   VARCHAR(10),
		retailprice DECIMAL(12,2),
		comment     VARCHAR(23)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		orderkey      INT PRIMARY KEY,
		custkey       INT NOT NULL REFERENCES customer (custkey),
		orderstatus   CHAR(1),
		totalprice    DECIMAL(12,2),
		orderdate     DATE,
		orderpriority VARCHAR(15),
		clerk         VARCHAR(15),
		shippriority  INT,
		comment       VARCHAR(79)
	)`,
	`CREATE TABLE IF NOT EXISTS lineitem (
		orderkey      INT NOT NULL REFERENCES orders (orderkey),
		partkey       INT NOT NULL REFERENCES part (partkey),
		suppkey       INT NOT NULL REFERENCES supplier (suppkey),
		linenumber    INT NOT NULL,
		quantity      INT,
		extendedprice DECIMAL(12,2),
		discount      DECIMAL(12,2),
		tax           DECIMAL(12,2),
		returnflag    CHAR(1),
		linestatus    CHAR(1),
		shipdate      DATE,
		commitdate    DATE,
		receiptdate   DATE,
		shipinstruct  VARCHAR(25),
		shipmode      VARCHAR(10),
		comment       VARCHAR(44),
		PRIMARY KEY (orderkey, linenumber)
	)`,
}

var regionSeed = []struct {
	key  int
	name string
}{
	{0, "AFRICA"},
	{1, "AMERICA"},
	{2, "ASIA"},
	{3, "EUROPE"},
	{4, "MIDDLE EAST"},
}

// EnsureSchema creates the workload tables and seeds the static region and
// nation reference data
func (r *Runner) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := r.exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}

	for _, reg := range regionSeed {
		stmt := `INSERT INTO region (regionkey, name, comment) VALUES ($1, $2, $3) ON CONFLICT (regionkey) DO NOTHING`
		if err := r.exec.Exec(ctx, stmt, reg.key, reg.name, "seed region"); err != nil {
			return fmt.Errorf("region seed failed: %w", err)
		}
	}

	// 25 nations, 5 per region
	for n := 0; n < 25; n++ {
		stmt := `INSERT INTO nation (nationkey, name, regionkey, comment) VALUES ($1, $2, $3, $4) ON CONFLICT (nationkey) DO NOTHING`
		if err := r.exec.Exec(ctx, stmt, n, fmt.Sprintf("NATION %02d", n), n%5, "seed nation"); err != nil {
			return fmt.Errorf("nation seed failed: %w", err)
		}
	}

	log.Info().Msg("Workload schema ready")
	return nil
}
