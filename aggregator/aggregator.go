// Package aggregator combines classifier output with an identity's dismissal
// record. Both variants re-read the dismissal store on every pass, so a
// dismissal is reflected by the very next computation.
package aggregator

import (
	"context"

	"github.com/giygas/pharmacy-notifier/dismissal"
	"github.com/giygas/pharmacy-notifier/identity"
)

// RecordLoader reads the dismissal record of an identity
type RecordLoader interface {
	Load(ctx context.Context, id identity.Identity) dismissal.Record
}

// SeenMarker persists seen identifiers
type SeenMarker interface {
	RecordLoader
	MarkSeen(ctx context.Context, id identity.Identity, ids []string) error
}

// Compile-time check to ensure the dismissal store satisfies both variants
var _ SeenMarker = (*dismissal.Store)(nil)

func withoutDeleted(ids []string, deleted dismissal.Set) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !deleted.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
