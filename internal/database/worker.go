package database

import (
	"context"

	"github.com/google/uuid"
)

// WorkerID identifies one concurrently executing unit of fixture code. Each
// worker owns at most one cached connection per source.
type WorkerID string

type workerKey struct{}

// NewWorkerID returns a random identity.
func NewWorkerID() WorkerID {
	return WorkerID(uuid.NewString())
}

// WithWorker binds id to ctx.
func WithWorker(ctx context.Context, id WorkerID) context.Context {
	return context.WithValue(ctx, workerKey{}, id)
}

// WorkerFrom returns the identity bound to ctx, if any.
func WorkerFrom(ctx context.Context) (WorkerID, bool) {
	id, ok := ctx.Value(workerKey{}).(WorkerID)
	return id, ok && id != ""
}

// ensureWorker returns ctx unchanged when it already carries an identity and
// otherwise binds a fresh one. The flag reports whether the identity was minted
// here, in which case no caller can address its connection afterwards.
func ensureWorker(ctx context.Context) (context.Context, WorkerID, bool) {
	if id, ok := WorkerFrom(ctx); ok {
		return ctx, id, false
	}
	id := NewWorkerID()
	return WithWorker(ctx, id), id, true
}
