package database

import (
	"fmt"

	"github.com/juju/errors"
)

// Error kinds surfaced by the registry, the connection cache and the DAOs.
// Each also satisfies the matching juju/errors type so callers can branch on
// either value with errors.Is.
const (
	// ErrConfiguration reports an endpoint that cannot be turned into a pool.
	ErrConfiguration = errors.ConstError("database configuration invalid")
	// ErrPoolExhausted reports a borrow that outlived the borrow timeout.
	ErrPoolExhausted = errors.ConstError("connection pool exhausted")
	// ErrConstraintViolation reports a unique or primary key conflict.
	ErrConstraintViolation = errors.ConstError("constraint violation")
	// ErrNoWorker reports a cache lookup without a worker identity in the context.
	ErrNoWorker = errors.ConstError("no worker identity in context")
	// ErrRegistryClosed reports use of a registry after Close.
	ErrRegistryClosed = errors.ConstError("registry closed")
)

// ConfigurationErrorf builds an error matching both ErrConfiguration and errors.NotValid.
func ConfigurationErrorf(format string, args ...any) error {
	return errors.WithType(
		fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...)),
		errors.NotValid,
	)
}

// PoolExhaustedErrorf builds an error matching both ErrPoolExhausted and errors.Timeout.
func PoolExhaustedErrorf(cause error, format string, args ...any) error {
	return errors.WithType(
		fmt.Errorf("%w: %s: %w", ErrPoolExhausted, fmt.Sprintf(format, args...), cause),
		errors.Timeout,
	)
}

// ConstraintViolation wraps a driver error so it matches both
// ErrConstraintViolation and errors.AlreadyExists while keeping the cause.
func ConstraintViolation(cause error, format string, args ...any) error {
	return errors.WithType(
		fmt.Errorf("%w: %s: %w", ErrConstraintViolation, fmt.Sprintf(format, args...), cause),
		errors.AlreadyExists,
	)
}

// RollbackError is returned when an action failed and the rollback that
// followed failed too. Both causes stay reachable through errors.Is.
type RollbackError struct {
	Err         error
	RollbackErr error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%v (rollback failed: %v)", e.Err, e.RollbackErr)
}

// Unwrap exposes the action error first, then the rollback failure.
func (e *RollbackError) Unwrap() []error {
	return []error{e.Err, e.RollbackErr}
}
