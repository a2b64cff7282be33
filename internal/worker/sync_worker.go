package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"yarikuri/internal/amqp"
	"yarikuri/internal/core"
	"yarikuri/internal/sheets"
	"yarikuri/internal/storage"
)

// SyncWorker mirrors the persisted ledger to an external sheet. It is
// driven by snapshot sync messages from AMQP and by a periodic check
// that recovers from lost messages.
type SyncWorker struct {
	storage *storage.SQLiteStore
	mirror  sheets.LedgerMirror

	lastMirrored atomic.Int64
}

func NewSyncWorker(storage *storage.SQLiteStore, mirror sheets.LedgerMirror) *SyncWorker {
	return &SyncWorker{
		storage: storage,
		mirror:  mirror,
	}
}

// HandleSyncMessage processes a single snapshot sync message. The
// message carries only the revision; the worker reads the current
// snapshot from the database, so consecutive messages collapse into
// one mirror of the latest state.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SnapshotSyncMessage) error {
	if msg.Revision <= w.lastMirrored.Load() {
		slog.InfoContext(ctx, "Skipping stale sync message",
			"revision", msg.Revision,
			"last_mirrored", w.lastMirrored.Load())
		return nil
	}

	slog.InfoContext(ctx, "Processing snapshot sync message", "revision", msg.Revision)

	if err := w.mirrorSnapshot(ctx); err != nil {
		return err
	}
	w.lastMirrored.Store(msg.Revision)
	return nil
}

// StartupSyncCheck mirrors the current snapshot once at worker startup
// to recover from messages missed while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup sync check")
	return w.mirrorSnapshot(ctx)
}

// PeriodicSync is the timer-driven fallback for lost messages.
func (w *SyncWorker) PeriodicSync(ctx context.Context) error {
	return w.mirrorSnapshot(ctx)
}

func (w *SyncWorker) mirrorSnapshot(ctx context.Context) error {
	snap, err := w.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		slog.InfoContext(ctx, "No snapshot persisted yet, nothing to mirror")
		return nil
	}

	events := mergedEvents(snap)
	if err := w.mirror.MirrorEvents(ctx, events); err != nil {
		return fmt.Errorf("mirror ledger: %w", err)
	}

	slog.InfoContext(ctx, "Ledger mirror updated",
		"income_events", len(snap.IncomeEvents),
		"expense_events", len(snap.ExpenseEvents))
	return nil
}

// mergedEvents combines incomes and expenses into one list sorted by
// date, incomes before expenses on the same day.
func mergedEvents(snap *core.Snapshot) []core.MonetaryEvent {
	events := make([]core.MonetaryEvent, 0, len(snap.IncomeEvents)+len(snap.ExpenseEvents))
	events = append(events, snap.IncomeEvents...)
	events = append(events, snap.ExpenseEvents...)
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Kind == core.Income && events[j].Kind == core.Expense
	})
	return events
}
