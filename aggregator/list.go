package aggregator

import (
	"context"

	"github.com/giygas/pharmacy-notifier/classifier"
	"github.com/giygas/pharmacy-notifier/identity"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

// Lists are the grouped notification lists of a page, hydrated to full records
type Lists struct {
	Expired      []entities.Medicine `json:"expired"`
	LowStock     []entities.Medicine `json:"low_stock"`
	ExpiringSoon []entities.Medicine `json:"expiring_soon"`
}

// EmptyLists returns lists with non-nil, empty groups
func EmptyLists() Lists {
	return Lists{
		Expired:      []entities.Medicine{},
		LowStock:     []entities.Medicine{},
		ExpiringSoon: []entities.Medicine{},
	}
}

// Total returns the number of entries across the three groups
func (l Lists) Total() int {
	return len(l.Expired) + len(l.LowStock) + len(l.ExpiringSoon)
}

// Remove drops id from every group and reports whether anything was removed
func (l *Lists) Remove(id string) bool {
	var removed bool
	for _, group := range []*[]entities.Medicine{&l.Expired, &l.LowStock, &l.ExpiringSoon} {
		kept := (*group)[:0:0]
		for _, m := range *group {
			if m.ID == id {
				removed = true
				continue
			}
			kept = append(kept, m)
		}
		*group = kept
	}
	return removed
}

// Clone returns a copy whose groups can be modified independently
func (l Lists) Clone() Lists {
	return Lists{
		Expired:      append([]entities.Medicine{}, l.Expired...),
		LowStock:     append([]entities.Medicine{}, l.LowStock...),
		ExpiringSoon: append([]entities.Medicine{}, l.ExpiringSoon...),
	}
}

// List computes the grouped lists of the notifications and alerts pages. It
// ignores seen identifiers entirely.
type List struct {
	store RecordLoader
}

// NewList creates a list aggregator over store
func NewList(store RecordLoader) *List {
	return &List{store: store}
}

// Compute removes deleted identifiers from each class independently and
// hydrates the rest from index, the snapshot keyed by identifier. Identifiers
// missing from index are dropped.
func (a *List) Compute(ctx context.Context, id identity.Identity, index map[string]entities.Medicine, res classifier.Result) Lists {
	rec := a.store.Load(ctx, id)

	return Lists{
		Expired:      hydrate(withoutDeleted(res.Expired, rec.Deleted), index),
		LowStock:     hydrate(withoutDeleted(res.LowStock, rec.Deleted), index),
		ExpiringSoon: hydrate(withoutDeleted(res.ExpiringSoon, rec.Deleted), index),
	}
}

func hydrate(ids []string, index map[string]entities.Medicine) []entities.Medicine {
	out := make([]entities.Medicine, 0, len(ids))
	done := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := done[id]; dup {
			continue
		}
		m, ok := index[id]
		if !ok {
			continue
		}
		done[id] = struct{}{}
		out = append(out, m)
	}
	return out
}
