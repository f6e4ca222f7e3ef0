package council

import (
	"context"
	"log/slog"
	"time"

	"github.com/councilhq/council/internal/store"
	"github.com/councilhq/council/pkg/models"
	"github.com/google/uuid"
)

// Summarize counts usage entries by key source. The empty log yields an
// empty summary; the total always equals the number of entries.
func Summarize(entries []models.UsageEntry) models.UsageSummary {
	summary := models.UsageSummary{}
	for _, e := range entries {
		summary[e.KeySource]++
	}
	return summary
}

// Ledger drives the post-request write-back of last-used bookkeeping.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

// NewLedger creates a new Ledger.
func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st, now: time.Now}
}

// Flush updates last_used_at for every provider whose log entries were served
// by the user's own key. Invoked only after a request completed successfully.
// Best-effort: a failed update is logged and never propagated, since the
// user-facing response is already computed. Idempotent — last_used_at is a
// set-to-latest, not an increment.
func (l *Ledger) Flush(ctx context.Context, userID *uuid.UUID, entries []models.UsageEntry) {
	if userID == nil {
		return
	}

	seen := make(map[string]bool)
	at := l.now().UTC()

	for _, e := range entries {
		if e.KeySource != models.SourceUser || seen[e.Provider] {
			continue
		}
		seen[e.Provider] = true

		if err := l.store.TouchKeyLastUsed(ctx, *userID, e.Provider, at); err != nil {
			slog.Warn("last_used_at update failed",
				"user_id", *userID,
				"provider", e.Provider,
				"error", err,
			)
		}
	}
}
