package sqlexec

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/lib/pq"
)

// ErrorKind partitions database failures by how callers must react
type ErrorKind int

const (
	// KindTransient errors (serialization conflicts, lost connections) are
	// safe to retry from the top of the operation
	KindTransient ErrorKind = iota

	// KindPermanent errors (constraint, syntax, permission) must surface
	// immediately; retrying cannot help
	KindPermanent

	// KindPoolExhausted means no connection became free within the acquire
	// timeout; surfaced as an operation failure, never retried internally
	KindPoolExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindPoolExhausted:
		return "pool_exhausted"
	}
	return "unknown"
}

// ErrPoolExhausted is wrapped into every pool-timeout failure
var ErrPoolExhausted = errors.New("connection pool exhausted")

// DBError carries a classified database failure
type DBError struct {
	Kind ErrorKind
	Err  error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("%s database error: %v", e.Kind, e.Err)
}

func (e *DBError) Unwrap() error {
	return e.Err
}

// SQLSTATE codes the executor keys retry decisions on. Classification is
// strictly code-based; error text is never inspected.
const (
	sqlstateSerializationFailure = "40001"
	sqlstateUniqueViolation      = "23505"
)

// Classify maps a raw driver error onto the retry taxonomy
func Classify(err error) ErrorKind {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Kind
	}

	if errors.Is(err, ErrPoolExhausted) {
		return KindPoolExhausted
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := pqErr.Code
		switch {
		case string(code) == sqlstateSerializationFailure:
			return KindTransient
		case code.Class() == "08": // connection exception
			return KindTransient
		case code.Class() == "57": // operator intervention (node draining/shutdown)
			return KindTransient
		default:
			return KindPermanent
		}
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	return KindPermanent
}

// IsTransient reports whether the failure is safe to retry
func IsTransient(err error) bool {
	return Classify(err) == KindTransient
}

// IsSerializationFailure reports a 40001 conflict from the database's
// concurrency-control layer
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == sqlstateSerializationFailure
}

// IsUniqueViolation reports a 23505 duplicate-key failure. The workload
// generator treats a duplicate referent insert as already satisfied.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == sqlstateUniqueViolation
}

// retryReason labels the telemetry counter for a transient failure
func retryReason(err error) string {
	if IsSerializationFailure(err) {
		return "serialization"
	}
	return "connection"
}
