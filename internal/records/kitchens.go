package records

import (
	"context"
	"strconv"

	"github.com/resourceshare-ph/apiserver/internal/events"
	"github.com/resourceshare-ph/apiserver/internal/idx"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
	"github.com/resourceshare-ph/apiserver/types"
)

const kitchensKey = "kitchens"

// KitchenStore manages community kitchen registrations.
type KitchenStore struct {
	s *Store
}

// KitchenPatch carries a partial update; nil fields keep their prior
// values.
type KitchenPatch struct {
	Location *string `json:"location"`
	Date     *string `json:"date"`
	Time     *string `json:"time"`
	Capacity *int    `json:"capacity"`
	Menu     *string `json:"menu"`
}

func validateKitchen(k types.Kitchen) error {
	if err := requireFields([]requiredField{
		{"location", k.Location},
		{"date", k.Date},
		{"time", k.Time},
		{"menu", k.Menu},
	}); err != nil {
		return err
	}
	if k.Capacity <= 0 {
		return &ValidationError{Field: "capacity"}
	}
	return nil
}

func (ks *KitchenStore) Create(ctx context.Context, actor types.Session, kitchen types.Kitchen) (types.Kitchen, error) {
	if err := validateKitchen(kitchen); err != nil {
		return types.Kitchen{}, err
	}
	kitchen.ID = idx.New()
	kitchen.Username = actor.Username
	kitchen.DateRegistered = today()

	err := mutateCollection(ks.s, kitchensKey, func(items []types.Kitchen) ([]types.Kitchen, bool, error) {
		return append(items, kitchen), true, nil
	})
	if err != nil {
		return types.Kitchen{}, err
	}
	ks.s.events.RecordChanged(ctx, events.TypeRecordCreated, "kitchens", kitchen)
	return kitchen, nil
}

func (ks *KitchenStore) Update(ctx context.Context, actor types.Session, id string, patch KitchenPatch) (types.Kitchen, error) {
	var updated types.Kitchen
	err := mutateCollection(ks.s, kitchensKey, func(items []types.Kitchen) ([]types.Kitchen, bool, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if !CanMutate(actor, items[i].Username) {
				return nil, false, ErrForbidden
			}
			applyString(&items[i].Location, patch.Location)
			applyString(&items[i].Date, patch.Date)
			applyString(&items[i].Time, patch.Time)
			applyString(&items[i].Menu, patch.Menu)
			if patch.Capacity != nil {
				items[i].Capacity = *patch.Capacity
			}
			if err := validateKitchen(items[i]); err != nil {
				return nil, false, err
			}
			updated = items[i]
			return items, true, nil
		}
		return nil, false, ErrNotFound
	})
	if err != nil {
		return types.Kitchen{}, err
	}
	ks.s.events.RecordChanged(ctx, events.TypeRecordUpdated, "kitchens", updated)
	return updated, nil
}

func (ks *KitchenStore) Delete(ctx context.Context, actor types.Session, id string) (bool, error) {
	deleted := false
	err := mutateCollection(ks.s, kitchensKey, func(items []types.Kitchen) ([]types.Kitchen, bool, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if !CanMutate(actor, items[i].Username) {
				return nil, false, ErrForbidden
			}
			deleted = true
			return append(items[:i], items[i+1:]...), true, nil
		}
		return nil, false, nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		ks.s.events.RecordChanged(ctx, events.TypeRecordDeleted, "kitchens", map[string]string{"id": id})
	}
	return deleted, nil
}

// List returns kitchens in insertion order.
func (ks *KitchenStore) List(ctx context.Context) []types.Kitchen {
	return loadCollection[types.Kitchen](ks.s, kitchensKey)
}

func (ks *KitchenStore) MergeBulk(ctx context.Context, rows []tabular.Row) int {
	added := 0
	err := mutateCollection(ks.s, kitchensKey, func(items []types.Kitchen) ([]types.Kitchen, bool, error) {
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			seen[item.ID] = true
		}
		for _, row := range rows {
			id := row["ID"]
			if id == "" || seen[id] {
				continue
			}
			capacity, _ := strconv.Atoi(row["Capacity"])
			items = append(items, types.Kitchen{
				ID:             id,
				Location:       row["Location"],
				Date:           row["Date"],
				Time:           row["Time"],
				Capacity:       capacity,
				Menu:           row["Menu"],
				DateRegistered: row["Date Registered"],
				Username:       row["Username"],
			})
			seen[id] = true
			added++
		}
		return items, added > 0, nil
	})
	if err != nil {
		ks.s.log.Error("merge bulk kitchens", "error", err)
		return 0
	}
	return added
}

func (ks *KitchenStore) exportRows(ctx context.Context) []tabular.Row {
	items := ks.List(ctx)
	rows := make([]tabular.Row, len(items))
	for i, k := range items {
		rows[i] = tabular.Row{
			"ID":              k.ID,
			"Location":        k.Location,
			"Date":            k.Date,
			"Time":            k.Time,
			"Capacity":        strconv.Itoa(k.Capacity),
			"Menu":            k.Menu,
			"Date Registered": k.DateRegistered,
			"Username":        k.Username,
		}
	}
	return rows
}
