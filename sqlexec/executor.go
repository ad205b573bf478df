package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/crdbtools/roachload/cfg"
	"github.com/crdbtools/roachload/telemetry"
)

// Statement is one parameterized SQL statement
type Statement struct {
	SQL  string
	Args []any
}

// Rows is a generic result set: one []any per row, column order preserved
type Rows [][]any

// Executor runs statements and transactions against the cluster with a
// bounded connection pool and transient-error retry
type Executor struct {
	db *sql.DB

	maxRetries     int
	backoff        time.Duration
	acquireTimeout time.Duration
	stmtTimeout    time.Duration
}

// Open creates an executor connected to the given postgres-protocol DSN
func Open(dsn string, c cfg.SQLConfiguration) (*Executor, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MinIdleConns)
	db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSeconds) * time.Second)

	return &Executor{
		db:             db,
		maxRetries:     c.MaxRetries,
		backoff:        time.Duration(c.RetryBackoffMS) * time.Millisecond,
		acquireTimeout: time.Duration(c.AcquireTimeoutMS) * time.Millisecond,
		stmtTimeout:    time.Duration(c.StatementTimeoutMS) * time.Millisecond,
	}, nil
}

// Ping verifies connectivity
func (e *Executor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close closes the underlying pool
func (e *Executor) Close() error {
	return e.db.Close()
}

// Query runs one read statement and returns all rows
func (e *Executor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	var rows Rows
	err := e.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		r, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer r.Close()

		cols, err := r.Columns()
		if err != nil {
			return err
		}

		rows = rows[:0]
		for r.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := r.Scan(ptrs...); err != nil {
				return err
			}
			rows = append(rows, vals)
		}
		return r.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec runs one write statement
func (e *Executor) Exec(ctx context.Context, query string, args ...any) error {
	return e.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, query, args...)
		return err
	})
}

// ExecTransaction runs the statements as one atomic transaction. A failure
// at any statement rolls the whole transaction back; retry, when the
// failure is transient, replays the entire sequence from the start.
func (e *Executor) ExecTransaction(ctx context.Context, stmts []Statement) error {
	return e.withConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s.SQL, s.Args...); err != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					log.Debug().Err(rbErr).Msg("Rollback after statement failure also failed")
				}
				return err
			}
		}

		// Serialization conflicts commonly surface at commit
		return tx.Commit()
	})
}

// withConn checks one connection out of the pool for the full duration of
// op, returns it on every path, and retries transient failures with
// exponential backoff
func (e *Executor) withConn(ctx context.Context, op func(context.Context, *sql.Conn) error) error {
	return retryLoop(ctx, e.maxRetries, e.backoff, func(attempt int) error {
		conn, err := e.acquire(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		opCtx, cancel := context.WithTimeout(ctx, e.stmtTimeout)
		defer cancel()

		return op(opCtx, conn)
	})
}

// acquire checks out an exclusive connection, bounded by the pool-acquire
// timeout so a saturated pool cannot block a worker indefinitely
func (e *Executor) acquire(ctx context.Context) (*sql.Conn, error) {
	start := time.Now()

	acqCtx, cancel := context.WithTimeout(ctx, e.acquireTimeout)
	defer cancel()

	conn, err := e.db.Conn(acqCtx)
	telemetry.PoolWaitSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		if acqCtx.Err() != nil && ctx.Err() == nil {
			telemetry.PoolExhaustedTotal.Inc()
			return nil, &DBError{
				Kind: KindPoolExhausted,
				Err:  fmt.Errorf("%w: no connection within %s", ErrPoolExhausted, e.acquireTimeout),
			}
		}
		return nil, err
	}

	return conn, nil
}

// retryLoop drives the bounded-retry policy: transient failures are retried
// up to maxRetries additional attempts with backoff*2^n delay; everything
// else surfaces immediately as a classified error.
func retryLoop(ctx context.Context, maxRetries int, backoff time.Duration, attempt func(int) error) error {
	var lastErr error

	for n := 0; n <= maxRetries; n++ {
		if n > 0 {
			telemetry.RetriesTotal.With(retryReason(lastErr)).Inc()
			delay := backoff << (n - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return &DBError{Kind: KindTransient, Err: ctx.Err()}
			}
		}

		err := attempt(n)
		if err == nil {
			return nil
		}

		switch Classify(err) {
		case KindTransient:
			lastErr = err
			log.Debug().Err(err).Int("attempt", n+1).Msg("Transient database error, will retry")
		case KindPoolExhausted:
			return asDBError(err, KindPoolExhausted)
		default:
			return asDBError(err, KindPermanent)
		}
	}

	return &DBError{
		Kind: KindTransient,
		Err:  fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr),
	}
}

func asDBError(err error, kind ErrorKind) error {
	if dbErr, ok := err.(*DBError); ok {
		return dbErr
	}
	return &DBError{Kind: kind, Err: err}
}
