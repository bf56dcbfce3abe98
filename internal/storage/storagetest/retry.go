// Package storagetest holds storage helpers shared by service tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"orgstructure/internal/storage"
	"orgstructure/pkg/platform/sentinel"
)

// RetryingStore wraps a Store and behaves like the postgres backend under
// contention: the next Failures transactions run fn to completion, are then
// rolled back with a transient error and retried once.
type RetryingStore struct {
	storage.Store

	mu       sync.Mutex
	failures int
	attempts int
}

func NewRetryingStore(inner storage.Store, failures int) *RetryingStore {
	return &RetryingStore{Store: inner, failures: failures}
}

// Attempts counts every run of fn, retries included.
func (r *RetryingStore) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *RetryingStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Gateway) error) error {
	err := r.Store.RunInTx(ctx, func(ctx context.Context, tx storage.Gateway) error {
		r.count()
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if r.takeFailure() {
			return fmt.Errorf("deadlock detected: %w", sentinel.ErrConflict)
		}
		return nil
	})
	if err != nil && storage.IsTransient(err) {
		err = r.Store.RunInTx(ctx, func(ctx context.Context, tx storage.Gateway) error {
			r.count()
			return fn(ctx, tx)
		})
	}
	return err
}

func (r *RetryingStore) count() {
	r.mu.Lock()
	r.attempts++
	r.mu.Unlock()
}

func (r *RetryingStore) takeFailure() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == 0 {
		return false
	}
	r.failures--
	return true
}
