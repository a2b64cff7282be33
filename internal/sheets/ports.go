package sheets

import (
	"context"

	"yarikuri/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror replaces the mirrored copy of the ledger with the
	// given events. The mirror is a full overwrite per sync, so it is
	// idempotent and a missed message costs nothing once the next one
	// arrives.
	LedgerMirror interface {
		MirrorEvents(ctx context.Context, events []core.MonetaryEvent) error
	}
)
