// Package reconcile drives the bank-to-ledger reconciliation run: fetch the
// provider window, map it to canonical form, import through one ledger
// session, then advance the per-tenant cursor.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledgerlink/internal/config"
	"ledgerlink/internal/ledger"
	"ledgerlink/internal/logger"
	"ledgerlink/internal/mapper"
	"ledgerlink/internal/openbanking"
	"ledgerlink/internal/session"
)

const dateFormat = "2006-01-02"

// CursorStore persists the last successfully imported day per tenant.
type CursorStore interface {
	LastSyncDate(ctx context.Context, tenantID string) (time.Time, bool, error)
	SetLastSyncDate(ctx context.Context, tenantID string, date time.Time) error
}

// Options tunes a single run. Zero From/To fall back to the stored cursor and
// today respectively.
type Options struct {
	DryRun   bool
	From     time.Time
	To       time.Time
	Lookback time.Duration
}

// SyncResult reports what a run did. Imported and Updated count transactions
// the ledger accepted; Skipped is the remainder of the fetch, mostly records
// the ledger already knew by external id.
type SyncResult struct {
	From     time.Time
	To       time.Time
	Fetched  int
	Imported int
	Updated  int
	Skipped  int
	Errors   []ledger.ImportError
}

// Pipeline wires the provider, the session coordinator and the cursor store.
type Pipeline struct {
	provider    openbanking.Client
	coordinator *session.Coordinator
	cursors     CursorStore
}

// NewPipeline creates a reconciliation pipeline.
func NewPipeline(provider openbanking.Client, coordinator *session.Coordinator, cursors CursorStore) *Pipeline {
	return &Pipeline{
		provider:    provider,
		coordinator: coordinator,
		cursors:     cursors,
	}
}

// Sync runs one reconciliation for the tenant. The provider fetch happens
// outside the ledger session; only the import holds the queue slot. The
// cursor advances to the window end once the import call succeeded, even when
// individual records were rejected. Fetch or session failures leave the
// cursor untouched so the next run retries the same window.
func (p *Pipeline) Sync(ctx context.Context, cfg config.TenantConfig, opts Options) (*SyncResult, error) {
	log := logger.WithTenant(logger.FromContext(ctx), cfg.TenantID).
		With().Str("run_id", uuid.NewString()).Logger()

	from, to, err := p.window(ctx, cfg.TenantID, opts)
	if err != nil {
		return nil, fmt.Errorf("Sync: %w", err)
	}

	log.Info().
		Str("from", from.Format(dateFormat)).
		Str("to", to.Format(dateFormat)).
		Bool("dry_run", opts.DryRun).
		Msg("Starting reconciliation")

	raw, err := p.provider.ListTransactions(ctx, cfg.ProviderAccountRef, from, to)
	if err != nil {
		return nil, fmt.Errorf("Sync: fetch provider transactions: %w", err)
	}

	result := &SyncResult{From: from, To: to, Fetched: len(raw)}
	if len(raw) == 0 {
		log.Info().Msg("No provider transactions in window")
		return result, nil
	}

	batch := mapper.MapAll(raw)

	if opts.DryRun {
		for _, tx := range batch {
			log.Info().
				Str("date", tx.Date).
				Int64("amount_minor", tx.AmountMinor).
				Str("payee", tx.PayeeName).
				Str("external_id", tx.ExternalID).
				Bool("cleared", tx.Cleared).
				Msg("Would import transaction")
		}
		log.Info().Int("fetched", result.Fetched).Msg("Dry run complete, nothing imported")
		return result, nil
	}

	err = p.coordinator.WithSession(ctx, cfg.TenantID, cfg, func(ctx context.Context, client ledger.Client) error {
		imported, err := client.ImportTransactions(ctx, cfg.LedgerAccountID, batch)
		if err != nil {
			return err
		}
		result.Imported = len(imported.Added)
		result.Updated = len(imported.Updated)
		result.Errors = imported.Errors
		result.Skipped = result.Fetched - result.Imported - result.Updated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Sync: %w", err)
	}

	if err := p.cursors.SetLastSyncDate(ctx, cfg.TenantID, to); err != nil {
		return nil, fmt.Errorf("Sync: advance cursor: %w", err)
	}

	log.Info().
		Int("fetched", result.Fetched).
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("Reconciliation complete")

	return result, nil
}

// window resolves the run's date range: explicit overrides win, otherwise the
// stored cursor, otherwise today minus the lookback.
func (p *Pipeline) window(ctx context.Context, tenantID string, opts Options) (time.Time, time.Time, error) {
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = config.DefaultSyncLookback
	}

	to := opts.To
	if to.IsZero() {
		to = time.Now().UTC().Truncate(24 * time.Hour)
	}

	from := opts.From
	if from.IsZero() {
		cursor, ok, err := p.cursors.LastSyncDate(ctx, tenantID)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("load cursor: %w", err)
		}
		if ok {
			from = cursor
		} else {
			from = to.Add(-lookback)
		}
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window: from %s after to %s",
			from.Format(dateFormat), to.Format(dateFormat))
	}
	return from, to, nil
}
