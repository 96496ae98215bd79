// Package records implements CRUD over the four domain collections:
// shared resources, help requests, community kitchens and transport
// offers. Each collection is persisted whole under its own key;
// mutations are authorized inside the store.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/resourceshare-ph/apiserver/internal/events"
	"github.com/resourceshare-ph/apiserver/internal/kv"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
)

const dateLayout = "1/2/2006"

// Store bundles the four collections over one kv store.
type Store struct {
	kv     *kv.Store
	events *events.Publisher
	log    *slog.Logger

	Resources *ResourceStore
	Requests  *RequestStore
	Kitchens  *KitchenStore
	Transport *TransportStore
}

// NewStore constructs the record store and its collections.
func NewStore(store *kv.Store, pub *events.Publisher, log *slog.Logger) *Store {
	s := &Store{kv: store, events: pub, log: log}
	s.Resources = &ResourceStore{s: s}
	s.Requests = &RequestStore{s: s}
	s.Kitchens = &KitchenStore{s: s}
	s.Transport = &TransportStore{s: s}
	return s
}

// MergeAllBulk merges every bulk table into its collection, skipping
// rows whose ids are already present. Returns rows added per table.
func (s *Store) MergeAllBulk(ctx context.Context, loader *tabular.Loader) map[string]int {
	added := map[string]int{
		"resources": s.Resources.MergeBulk(ctx, loader.LoadTable(ctx, "resources")),
		"requests":  s.Requests.MergeBulk(ctx, loader.LoadTable(ctx, "requests")),
		"kitchens":  s.Kitchens.MergeBulk(ctx, loader.LoadTable(ctx, "kitchens")),
		"transport": s.Transport.MergeBulk(ctx, loader.LoadTable(ctx, "transport")),
	}
	for table, n := range added {
		s.log.Info("bulk merge", "table", table, "added", n)
	}
	return added
}

// ExportRows returns a table's current contents in export-column form,
// or nil for an unknown table.
func (s *Store) ExportRows(ctx context.Context, table string) []tabular.Row {
	switch table {
	case "resources":
		return s.Resources.exportRows(ctx)
	case "requests":
		return s.Requests.exportRows(ctx)
	case "kitchens":
		return s.Kitchens.exportRows(ctx)
	case "transport":
		return s.Transport.exportRows(ctx)
	}
	return nil
}

func today() string {
	return time.Now().Format(dateLayout)
}

// loadCollection reads a whole collection. Absent or unreadable state
// degrades to an empty collection; the failure is logged, never
// propagated.
func loadCollection[T any](s *Store, key string) []T {
	var items []T
	if err := s.kv.GetJSON(key, &items); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("collection unreadable, treating as empty", "key", key, "error", err)
		}
		return nil
	}
	return items
}

// mutateCollection runs fn over the collection under the store lock and
// persists the result when fn reports a change.
func mutateCollection[T any](s *Store, key string, fn func(items []T) ([]T, bool, error)) error {
	return s.kv.Update(key, func(current []byte) ([]byte, error) {
		var items []T
		if current != nil {
			if err := json.Unmarshal(current, &items); err != nil {
				s.log.Warn("collection unreadable, treating as empty", "key", key, "error", err)
				items = nil
			}
		}
		next, changed, err := fn(items)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, nil
		}
		data, err := json.MarshalIndent(next, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		return data, nil
	})
}
