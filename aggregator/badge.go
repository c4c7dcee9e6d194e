package aggregator

import (
	"context"
	"fmt"

	"github.com/giygas/pharmacy-notifier/classifier"
	"github.com/giygas/pharmacy-notifier/identity"
)

// BadgeState is the unread indicator output
type BadgeState struct {
	Visible []string `json:"visible_ids"`
	Unread  int      `json:"unread_count"`
}

// Badge computes the unread counter. Seen identifiers are written only by
// MarkVisited; Compute never modifies the dismissal record.
type Badge struct {
	store SeenMarker
}

// NewBadge creates a badge aggregator over store
func NewBadge(store SeenMarker) *Badge {
	return &Badge{store: store}
}

// Compute returns the visible identifiers (all classes minus deleted) and how
// many of them were not seen yet.
func (b *Badge) Compute(ctx context.Context, id identity.Identity, res classifier.Result) BadgeState {
	rec := b.store.Load(ctx, id)

	visible := withoutDeleted(res.All(), rec.Deleted)
	unread := 0
	for _, v := range visible {
		if !rec.Seen.Has(v) {
			unread++
		}
	}

	return BadgeState{Visible: visible, Unread: unread}
}

// MarkVisited marks every visible identifier as seen. On success the returned
// state has Unread 0; on failure it carries the unchanged count.
func (b *Badge) MarkVisited(ctx context.Context, id identity.Identity, res classifier.Result) (BadgeState, error) {
	state := b.Compute(ctx, id, res)
	if len(state.Visible) == 0 {
		return state, nil
	}

	if err := b.store.MarkSeen(ctx, id, state.Visible); err != nil {
		return state, fmt.Errorf("marking %d notifications seen: %w", len(state.Visible), err)
	}

	state.Unread = 0
	return state, nil
}
