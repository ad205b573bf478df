package workload

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/crdbtools/roachload/sqlexec"
)

var dialect = goqu.Dialect("postgres")

var (
	orderPriorities = []string{"1-URGENT", "2-HIGH", "3-MEDIUM", "4-NOT SPECIFIED", "5-LOW"}
	shipInstructs   = []string{"DELIVER IN PERSON", "COLLECT COD", "NONE", "TAKE BACK RETURN"}
	shipModes       = []string{"AIR", "MAIL", "SHIP", "TRUCK", "RAIL", "REG AIR", "FOB"}
	returnFlags     = []string{"R", "A", "N"}
	marketSegments  = []string{"AUTOMOBILE", "BUILDING", "FURNITURE", "MACHINERY", "HOUSEHOLD"}
)

type lineItem struct {
	partKey  int
	suppKey  int
	quantity int
	price    float64
}

// executeCreateOrder inserts one order with 1-5 line items as a single
// transaction, synthesizing any referenced customer/part/supplier first
func (r *Runner) executeCreateOrder(ctx context.Context, rng *rand.Rand) error {
	custKey := rng.Intn(r.keyspace) + 1
	if err := r.ensureCustomer(ctx, rng, custKey); err != nil {
		return err
	}

	items := make([]lineItem, rng.Intn(5)+1)
	for i := range items {
		items[i] = lineItem{
			partKey:  rng.Intn(r.keyspace) + 1,
			suppKey:  rng.Intn(r.keyspace) + 1,
			quantity: rng.Intn(50) + 1,
			price:    10 + rng.Float64()*990,
		}
		if err := r.ensurePart(ctx, rng, items[i].partKey); err != nil {
			return err
		}
		if err := r.ensureSupplier(ctx, rng, items[i].suppKey); err != nil {
			return err
		}
	}

	orderKey := rng.Intn(900000) + 100000
	totalPrice := 0.0
	for _, it := range items {
		totalPrice += it.price * float64(it.quantity)
	}

	now := time.Now()
	stmts := make([]sqlexec.Statement, 0, len(items)+1)

	orderSQL, orderArgs, err := dialect.Insert("orders").Rows(goqu.Record{
		"orderkey":      orderKey,
		"custkey":       custKey,
		"orderstatus":   "O",
		"totalprice":    totalPrice,
		"orderdate":     now.Format("2006-01-02"),
		"orderpriority": orderPriorities[rng.Intn(len(orderPriorities))],
		"clerk":         fmt.Sprintf("Clerk#%09d", rng.Intn(1000)+1),
		"shippriority":  rng.Intn(2),
		"comment":       "synthetic order",
	}).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	stmts = append(stmts, sqlexec.Statement{SQL: orderSQL, Args: orderArgs})

	for i, it := range items {
		itemSQL, itemArgs, err := dialect.Insert("lineitem").Rows(goqu.Record{
			"orderkey":      orderKey,
			"partkey":       it.partKey,
			"suppkey":       it.suppKey,
			"linenumber":    i + 1,
			"quantity":      it.quantity,
			"extendedprice": it.price * float64(it.quantity),
			"discount":      rng.Float64() * 0.1,
			"tax":           rng.Float64() * 0.08,
			"returnflag":    returnFlags[rng.Intn(len(returnFlags))],
			"linestatus":    "O",
			"shipdate":      now.AddDate(0, 0, rng.Intn(30)+1).Format("2006-01-02"),
			"commitdate":    now.AddDate(0, 0, rng.Intn(31)+10).Format("2006-01-02"),
			"receiptdate":   now.AddDate(0, 0, rng.Intn(36)+15).Format("2006-01-02"),
			"shipinstruct":  shipInstructs[rng.Intn(len(shipInstructs))],
			"shipmode":      shipModes[rng.Intn(len(shipModes))],
			"comment":       fmt.Sprintf("line %d", i+1),
		}).Prepared(true).ToSQL()
		if err != nil {
			return err
		}
		stmts = append(stmts, sqlexec.Statement{SQL: itemSQL, Args: itemArgs})
	}

	return r.exec.ExecTransaction(ctx, stmts)
}

// executeReadOrder reads an order with its customer, then its line items
// with part and supplier names. Reading an absent order is still a
// successful operation.
func (r *Runner) executeReadOrder(ctx context.Context, rng *rand.Rand) error {
	orderKey := rng.Intn(999999) + 1

	orderSQL, orderArgs, err := dialect.
		From(goqu.T("orders").As("o")).
		Join(goqu.T("customer").As("c"), goqu.On(goqu.Ex{"o.custkey": goqu.I("c.custkey")})).
		Select("o.orderkey", "o.orderstatus", "o.totalprice", "o.orderdate", "c.name", "c.mktsegment").
		Where(goqu.Ex{"o.orderkey": orderKey}).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	if _, err := r.exec.Query(ctx, orderSQL, orderArgs...); err != nil {
		return err
	}

	itemsSQL, itemsArgs, err := dialect.
		From(goqu.T("lineitem").As("l")).
		Join(goqu.T("part").As("p"), goqu.On(goqu.Ex{"l.partkey": goqu.I("p.partkey")})).
		Join(goqu.T("supplier").As("s"), goqu.On(goqu.Ex{"l.suppkey": goqu.I("s.suppkey")})).
		Select("l.linenumber", "l.quantity", "l.extendedprice", goqu.I("p.name").As("part_name"), goqu.I("s.name").As("supplier_name")).
		Where(goqu.Ex{"l.orderkey": orderKey}).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = r.exec.Query(ctx, itemsSQL, itemsArgs...)
	return err
}

// executeUpdateOrder advances a random order's status (O -> P -> F)
func (r *Runner) executeUpdateOrder(ctx context.Context, rng *rand.Rand) error {
	orderKey := rng.Intn(999999) + 1
	newStatus := "P"
	if rng.Intn(2) == 1 {
		newStatus = "F"
	}

	sql, args, err := dialect.
		Update("orders").
		Set(goqu.Record{"orderstatus": newStatus}).
		Where(goqu.Ex{"orderkey": orderKey}).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	return r.exec.Exec(ctx, sql, args...)
}

// executeAnalytics runs one of the two aggregate queries
func (r *Runner) executeAnalytics(ctx context.Context, rng *rand.Rand) error {
	if rng.Intn(2) == 0 {
		return r.topCustomers(ctx)
	}
	return r.revenueByRegion(ctx)
}

func (r *Runner) topCustomers(ctx context.Context) error {
	sql, args, err := dialect.
		From(goqu.T("customer").As("c")).
		Join(goqu.T("orders").As("o"), goqu.On(goqu.Ex{"c.custkey": goqu.I("o.custkey")})).
		Select(
			"c.custkey", "c.name", "c.mktsegment",
			goqu.COUNT(goqu.I("o.orderkey")).As("num_orders"),
			goqu.SUM(goqu.I("o.totalprice")).As("total_spent"),
		).
		GroupBy("c.custkey", "c.name", "c.mktsegment").
		Order(goqu.I("total_spent").Desc()).
		Limit(10).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = r.exec.Query(ctx, sql, args...)
	return err
}

func (r *Runner) revenueByRegion(ctx context.Context) error {
	sql, args, err := dialect.
		From(goqu.T("region").As("r")).
		Join(goqu.T("nation").As("n"), goqu.On(goqu.Ex{"r.regionkey": goqu.I("n.regionkey")})).
		Join(goqu.T("customer").As("c"), goqu.On(goqu.Ex{"n.nationkey": goqu.I("c.nationkey")})).
		Join(goqu.T("orders").As("o"), goqu.On(goqu.Ex{"c.custkey": goqu.I("o.custkey")})).
		Select(
			goqu.I("r.name").As("region"),
			goqu.COUNT(goqu.DISTINCT(goqu.I("o.orderkey"))).As("num_orders"),
			goqu.SUM(goqu.I("o.totalprice")).As("total_revenue"),
		).
		GroupBy("r.regionkey", "r.name").
		Order(goqu.I("total_revenue").Desc()).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = r.exec.Query(ctx, sql, args...)
	return err
}
