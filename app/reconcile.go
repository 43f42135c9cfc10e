package app

import (
	"time"

	"feedhub/domain"
)

// Classified is the outcome of reconciling one poll's items against the
// prior state of the same feed. New is empty when nothing needs fan-out;
// Updated writes happen regardless of New.
type Classified struct {
	New     []domain.NewItem
	Updated []domain.ItemUpdate
}

// Reconcile classifies incoming items against the guid -> prior-state
// mapping for a feed. An unknown guid is New. A known guid whose
// published_at changed is Updated, carrying forward the stored id. A known
// guid with the same published_at is dropped, so re-polling an unchanged
// feed writes nothing.
func Reconcile(incoming []domain.NewItem, prior map[string]domain.ItemRef) Classified {
	var out Classified
	for _, item := range incoming {
		ref, ok := prior[item.GUID]
		if !ok {
			out.New = append(out.New, item)
			continue
		}
		if !timeEqual(item.PublishedAt, ref.PublishedAt) {
			out.Updated = append(out.Updated, domain.ItemUpdate{ID: ref.ID, Item: item})
		}
	}
	return out
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
