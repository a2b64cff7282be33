// Package backend selects the ledger mirror implementation the worker
// writes to, keyed by the MIRROR_BACKEND setting.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"yarikuri/internal/sheets"
	gsheet "yarikuri/internal/sheets/google"
	"yarikuri/internal/sheets/memory"
)

// Mirror backends selectable via MIRROR_BACKEND.
const (
	MemoryBackend = "memory"
	SheetsBackend = "sheets"
)

// NewMirror builds the configured ledger mirror.
func NewMirror(ctx context.Context, backend string) (sheets.LedgerMirror, error) {
	switch backend {
	case SheetsBackend:
		mirror, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize sheets mirror: %w", err)
		}
		slog.InfoContext(ctx, "Initialized Google Sheets ledger mirror")
		return mirror, nil
	case MemoryBackend:
		slog.InfoContext(ctx, "Initialized in-memory ledger mirror")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown mirror backend %q", backend)
	}
}
