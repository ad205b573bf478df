package workload

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/doug-martin/goqu/v9"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/crdbtools/roachload/sqlexec"
)

// referentCacheSize bounds the memory spent remembering verified keys
const referentCacheSize = 8192

// referentCache remembers customer/part/supplier keys already verified to
// exist, so hot keys skip the read-check round trip
type referentCache struct {
	seen *lru.Cache[string, struct{}]
}

func newReferentCache() (*referentCache, error) {
	seen, err := lru.New[string, struct{}](referentCacheSize)
	if err != nil {
		return nil, err
	}
	return &referentCache{seen: seen}, nil
}

func (c *referentCache) has(table string, key int) bool {
	_, ok := c.seen.Get(fmt.Sprintf("%s:%d", table, key))
	return ok
}

func (c *referentCache) add(table string, key int) {
	c.seen.Add(fmt.Sprintf("%s:%d", table, key), struct{}{})
}

// ensureReferent verifies that the keyed row exists and inserts it when
// missing. Two workers may race on the same missing key; the loser's
// duplicate-key failure counts as satisfied rather than locked around.
func (r *Runner) ensureReferent(ctx context.Context, table, keyColumn string, key int, row goqu.Record) error {
	if r.refs.has(table, key) {
		return nil
	}

	checkSQL, checkArgs, err := dialect.
		From(table).
		Select(goqu.L("1")).
		Where(goqu.Ex{keyColumn: key}).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}

	rows, err := r.exec.Query(ctx, checkSQL, checkArgs...)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		r.refs.add(table, key)
		return nil
	}

	insertSQL, insertArgs, err := dialect.Insert(table).Rows(row).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	if err := r.exec.Exec(ctx, insertSQL, insertArgs...); err != nil && !sqlexec.IsUniqueViolation(err) {
		return err
	}

	r.refs.add(table, key)
	return nil
}

func (r *Runner) ensureCustomer(ctx context.Context, rng *rand.Rand, custKey int) error {
	return r.ensureReferent(ctx, "customer", "custkey", custKey, goqu.Record{
		"custkey":    custKey,
		"name":       fmt.Sprintf("Customer#%09d", custKey),
		"address":    fmt.Sprintf("%d Main St", rng.Intn(999)+1),
		"nationkey":  rng.Intn(25),
		"phone":      fmt.Sprintf("%d-%d-%d", rng.Intn(90)+10, rng.Intn(900)+100, rng.Intn(9000)+1000),
		"acctbal":    rng.Float64()*10999.98 - 999.99,
		"mktsegment": marketSegments[rng.Intn(len(marketSegments))],
		"comment":    "synthetic customer",
	})
}

func (r *Runner) ensurePart(ctx context.Context, rng *rand.Rand, partKey int) error {
	return r.ensureReferent(ctx, "part", "partkey", partKey, goqu.Record{
		"partkey":     partKey,
		"name":        fmt.Sprintf("Part#%09d", partKey),
		"mfgr":        fmt.Sprintf("Manufacturer#%d", rng.Intn(5)+1),
		"brand":       fmt.Sprintf("Brand#%d", rng.Intn(50)+1),
		"type":        "STANDARD",
		"size":        rng.Intn(50) + 1,
		"container":   "MED BOX",
		"retailprice": 10 + rng.Float64()*990,
		"comment":     "synthetic part",
	})
}

func (r *Runner) ensureSupplier(ctx context.Context, rng *rand.Rand, suppKey int) error {
	return r.ensureReferent(ctx, "supplier", "suppkey", suppKey, goqu.Record{
		"suppkey":   suppKey,
		"name":      fmt.Sprintf("Supplier#%09d", suppKey),
		"address":   fmt.Sprintf("%d Supply Rd", rng.Intn(999)+1),
		"nationkey": rng.Intn(25),
		"phone":     fmt.Sprintf("%d-%d-%d", rng.Intn(90)+10, rng.Intn(900)+100, rng.Intn(9000)+1000),
		"acctbal":   rng.Float64() * 9999.99,
		"comment":   "synthetic supplier",
	})
}
