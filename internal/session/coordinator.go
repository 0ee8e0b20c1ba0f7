// Package session owns the lifecycle of the stateful ledger connection. The
// ledger service tolerates exactly one live session per process, so every
// caller (sync runs, assistant questions) is funneled through one FIFO queue
// and handed a connected client for the duration of a protected block.
package session

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/semaphore"

	"ledgerlink/internal/config"
	"ledgerlink/internal/ledger"
	"ledgerlink/internal/logger"
)

// Factory produces fresh, unconnected ledger clients. One is created per
// protected block and discarded on exit.
type Factory func() ledger.Client

// Fn is the work executed with a live, authenticated ledger handle.
type Fn func(ctx context.Context, client ledger.Client) error

// Coordinator serializes all ledger access process-wide. A single weighted
// semaphore (capacity 1, FIFO for blocked acquirers) stands in for per-key
// locks: unrelated tenants queue behind each other. That is a throughput
// ceiling, accepted deliberately to keep the lifecycle logic trivial.
type Coordinator struct {
	sem     *semaphore.Weighted
	factory Factory
}

// NewCoordinator creates the process-wide coordinator.
func NewCoordinator(factory Factory) *Coordinator {
	return &Coordinator{
		sem:     semaphore.NewWeighted(1),
		factory: factory,
	}
}

// WithSession runs fn with a connected, ledger-selected client. The queue
// slot is held from acquisition until teardown: two overlapping calls never
// interleave, the second connect starts only after the first disconnect
// finished. Initialization failures abort before fn and still release the
// slot. Teardown always runs; its errors are logged and swallowed so they
// never mask fn's own result.
func (c *Coordinator) WithSession(ctx context.Context, resourceKey string, cfg config.TenantConfig, fn Fn) error {
	log := logger.FromContext(ctx)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("WithSession: acquire queue slot: %w", err)
	}
	defer c.sem.Release(1)

	log.Debug().Str("resource_key", resourceKey).Msg("Ledger session slot acquired")

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("WithSession: create data directory: %w", err)
		}
	}

	client := c.factory()
	if err := client.Connect(ctx, cfg.LedgerServerURL, cfg.LedgerPassword); err != nil {
		return fmt.Errorf("WithSession: %w", err)
	}

	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Str("resource_key", resourceKey).Msg("Ledger session teardown failed")
		}
		log.Debug().Str("resource_key", resourceKey).Msg("Ledger session closed")
	}()

	if err := client.SelectLedger(ctx, cfg.LedgerSyncID); err != nil {
		return fmt.Errorf("WithSession: %w", err)
	}

	return fn(ctx, client)
}
