package ledger

import "errors"

// Coordinator-level failure classes. Connect and SelectLedger map transport
// and HTTP outcomes onto these so callers can react without inspecting
// status codes.
var (
	// ErrConnectionRefused means the ledger server was unreachable.
	ErrConnectionRefused = errors.New("ledger: connection refused")

	// ErrUnauthorized means the server rejected the configured password.
	ErrUnauthorized = errors.New("ledger: unauthorized")

	// ErrLedgerNotFound means the configured sync id matched no ledger file.
	ErrLedgerNotFound = errors.New("ledger: ledger not found")
)
