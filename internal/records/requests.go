package records

import (
	"context"
	"sort"

	"github.com/resourceshare-ph/apiserver/internal/events"
	"github.com/resourceshare-ph/apiserver/internal/idx"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
	"github.com/resourceshare-ph/apiserver/types"
)

const requestsKey = "requests"

// Urgency tiers in listing order. Unrecognized urgencies sort last.
var urgencyRank = map[string]int{
	"critical": 0,
	"urgent":   1,
	"moderate": 2,
	"low":      3,
}

func rankUrgency(urgency string) int {
	if rank, ok := urgencyRank[urgency]; ok {
		return rank
	}
	return len(urgencyRank)
}

// RequestStore manages help requests.
type RequestStore struct {
	s *Store
}

// RequestPatch carries a partial update; nil fields keep their prior
// values.
type RequestPatch struct {
	Need     *string `json:"need"`
	Urgency  *string `json:"urgency"`
	Location *string `json:"location"`
	Contact  *string `json:"contact"`
	Details  *string `json:"details"`
}

func validateRequest(r types.Request) error {
	return requireFields([]requiredField{
		{"need", r.Need},
		{"urgency", r.Urgency},
		{"location", r.Location},
		{"contact", r.Contact},
	})
}

func (rs *RequestStore) Create(ctx context.Context, actor types.Session, req types.Request) (types.Request, error) {
	if err := validateRequest(req); err != nil {
		return types.Request{}, err
	}
	req.ID = idx.New()
	req.Username = actor.Username
	req.DateRequested = today()

	err := mutateCollection(rs.s, requestsKey, func(items []types.Request) ([]types.Request, bool, error) {
		return append(items, req), true, nil
	})
	if err != nil {
		return types.Request{}, err
	}
	rs.s.events.RecordChanged(ctx, events.TypeRecordCreated, "requests", req)
	return req, nil
}

func (rs *RequestStore) Update(ctx context.Context, actor types.Session, id string, patch RequestPatch) (types.Request, error) {
	var updated types.Request
	err := mutateCollection(rs.s, requestsKey, func(items []types.Request) ([]types.Request, bool, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if !CanMutate(actor, items[i].Username) {
				return nil, false, ErrForbidden
			}
			applyString(&items[i].Need, patch.Need)
			applyString(&items[i].Urgency, patch.Urgency)
			applyString(&items[i].Location, patch.Location)
			applyString(&items[i].Contact, patch.Contact)
			applyString(&items[i].Details, patch.Details)
			if err := validateRequest(items[i]); err != nil {
				return nil, false, err
			}
			updated = items[i]
			return items, true, nil
		}
		return nil, false, ErrNotFound
	})
	if err != nil {
		return types.Request{}, err
	}
	rs.s.events.RecordChanged(ctx, events.TypeRecordUpdated, "requests", updated)
	return updated, nil
}

func (rs *RequestStore) Delete(ctx context.Context, actor types.Session, id string) (bool, error) {
	deleted := false
	err := mutateCollection(rs.s, requestsKey, func(items []types.Request) ([]types.Request, bool, error) {
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
		rs.s.events.RecordChanged(ctx, events.TypeRecordDeleted, "requests", map[string]string{"id": id})
	}
	return deleted, nil
}

// List returns requests ordered by urgency tier: critical, urgent,
// moderate, low, then anything unrecognized. Order within a tier is
// insertion order.
func (rs *RequestStore) List(ctx context.Context) []types.Request {
	items := loadCollection[types.Request](rs.s, requestsKey)
	sort.SliceStable(items, func(i, j int) bool {
		return rankUrgency(items[i].Urgency) < rankUrgency(items[j].Urgency)
	})
	return items
}

func (rs *RequestStore) MergeBulk(ctx context.Context, rows []tabular.Row) int {
	added := 0
	err := mutateCollection(rs.s, requestsKey, func(items []types.Request) ([]types.Request, bool, error) {
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			seen[item.ID] = true
		}
		for _, row := range rows {
			id := row["ID"]
			if id == "" || seen[id] {
				continue
			}
			items = append(items, types.Request{
				ID:            id,
				Need:          row["Need"],
				Urgency:       row["Urgency"],
				Location:      row["Location"],
				Contact:       row["Contact"],
				Details:       row["Details"],
				DateRequested: row["Date Requested"],
				Username:      row["Username"],
			})
			seen[id] = true
			added++
		}
		return items, added > 0, nil
	})
	if err != nil {
		rs.s.log.Error("merge bulk requests", "error", err)
		return 0
	}
	return added
}

func (rs *RequestStore) exportRows(ctx context.Context) []tabular.Row {
	items := rs.List(ctx)
	rows := make([]tabular.Row, len(items))
	for i, r := range items {
		rows[i] = tabular.Row{
			"ID":             r.ID,
			"Need":           r.Need,
			"Urgency":        r.Urgency,
			"Location":       r.Location,
			"Contact":        r.Contact,
			"Details":        r.Details,
			"Date Requested": r.DateRequested,
			"Username":       r.Username,
		}
	}
	return rows
}
