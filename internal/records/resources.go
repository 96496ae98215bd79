package records

import (
	"context"

	"github.com/resourceshare-ph/apiserver/internal/events"
	"github.com/resourceshare-ph/apiserver/internal/idx"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
	"github.com/resourceshare-ph/apiserver/types"
)

const resourcesKey = "resources"

// ResourceStore manages shared resource offers.
type ResourceStore struct {
	s *Store
}

// ResourcePatch carries a partial update; nil fields keep their prior
// values.
type ResourcePatch struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Location *string `json:"location"`
	Contact  *string `json:"contact"`
	Notes    *string `json:"notes"`
}

func validateResource(r types.Resource) error {
	return requireFields([]requiredField{
		{"name", r.Name},
		{"category", r.Category},
		{"location", r.Location},
		{"contact", r.Contact},
	})
}

// Create validates, stamps and appends a resource owned by the acting
// session.
func (rs *ResourceStore) Create(ctx context.Context, actor types.Session, res types.Resource) (types.Resource, error) {
	if err := validateResource(res); err != nil {
		return types.Resource{}, err
	}
	res.ID = idx.New()
	res.Username = actor.Username
	res.DateShared = today()

	err := mutateCollection(rs.s, resourcesKey, func(items []types.Resource) ([]types.Resource, bool, error) {
		return append(items, res), true, nil
	})
	if err != nil {
		return types.Resource{}, err
	}
	rs.s.events.RecordChanged(ctx, events.TypeRecordCreated, "resources", res)
	return res, nil
}

// Update merges patch over the record with the given id. The acting
// session must own the record or be an admin.
func (rs *ResourceStore) Update(ctx context.Context, actor types.Session, id string, patch ResourcePatch) (types.Resource, error) {
	var updated types.Resource
	err := mutateCollection(rs.s, resourcesKey, func(items []types.Resource) ([]types.Resource, bool, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if !CanMutate(actor, items[i].Username) {
				return nil, false, ErrForbidden
			}
			applyString(&items[i].Name, patch.Name)
			applyString(&items[i].Category, patch.Category)
			applyString(&items[i].Location, patch.Location)
			applyString(&items[i].Contact, patch.Contact)
			applyString(&items[i].Notes, patch.Notes)
			if err := validateResource(items[i]); err != nil {
				return nil, false, err
			}
			updated = items[i]
			return items, true, nil
		}
		return nil, false, ErrNotFound
	})
	if err != nil {
		return types.Resource{}, err
	}
	rs.s.events.RecordChanged(ctx, events.TypeRecordUpdated, "resources", updated)
	return updated, nil
}

// Delete removes the record with the given id. Deleting an absent id is
// a no-op; the boolean reports whether anything was removed.
func (rs *ResourceStore) Delete(ctx context.Context, actor types.Session, id string) (bool, error) {
	deleted := false
	err := mutateCollection(rs.s, resourcesKey, func(items []types.Resource) ([]types.Resource, bool, error) {
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
		rs.s.events.RecordChanged(ctx, events.TypeRecordDeleted, "resources", map[string]string{"id": id})
	}
	return deleted, nil
}

// List returns resources in insertion order.
func (rs *ResourceStore) List(ctx context.Context) []types.Resource {
	return loadCollection[types.Resource](rs.s, resourcesKey)
}

// MergeBulk merges seed rows into the collection, skipping ids already
// present. Returns the number of rows added.
func (rs *ResourceStore) MergeBulk(ctx context.Context, rows []tabular.Row) int {
	added := 0
	err := mutateCollection(rs.s, resourcesKey, func(items []types.Resource) ([]types.Resource, bool, error) {
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			seen[item.ID] = true
		}
		for _, row := range rows {
			id := row["ID"]
			if id == "" || seen[id] {
				continue
			}
			items = append(items, types.Resource{
				ID:         id,
				Name:       row["Resource Name"],
				Category:   row["Category"],
				Location:   row["Location"],
				Contact:    row["Contact"],
				Notes:      row["Notes"],
				DateShared: row["Date Shared"],
				Username:   row["Username"],
			})
			seen[id] = true
			added++
		}
		return items, added > 0, nil
	})
	if err != nil {
		rs.s.log.Error("merge bulk resources", "error", err)
		return 0
	}
	return added
}

func (rs *ResourceStore) exportRows(ctx context.Context) []tabular.Row {
	items := rs.List(ctx)
	rows := make([]tabular.Row, len(items))
	for i, r := range items {
		rows[i] = tabular.Row{
			"ID":            r.ID,
			"Resource Name": r.Name,
			"Category":      r.Category,
			"Location":      r.Location,
			"Contact":       r.Contact,
			"Notes":         r.Notes,
			"Date Shared":   r.DateShared,
			"Username":      r.Username,
		}
	}
	return rows
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
