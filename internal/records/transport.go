package records

import (
	"context"
	"strconv"

	"github.com/resourceshare-ph/apiserver/internal/events"
	"github.com/resourceshare-ph/apiserver/internal/idx"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
	"github.com/resourceshare-ph/apiserver/types"
)

const transportKey = "transport"

// TransportStore manages transport offers.
type TransportStore struct {
	s *Store
}

// TransportPatch carries a partial update; nil fields keep their prior
// values.
type TransportPatch struct {
	Type    *string `json:"type"`
	From    *string `json:"from"`
	To      *string `json:"to"`
	When    *string `json:"when"`
	Seats   *int    `json:"seats"`
	Contact *string `json:"contact"`
}

func validateTransport(tr types.Transport) error {
	if err := requireFields([]requiredField{
		{"type", tr.Type},
		{"from", tr.From},
		{"to", tr.To},
		{"when", tr.When},
		{"contact", tr.Contact},
	}); err != nil {
		return err
	}
	if tr.Seats <= 0 {
		return &ValidationError{Field: "seats"}
	}
	return nil
}

func (ts *TransportStore) Create(ctx context.Context, actor types.Session, offer types.Transport) (types.Transport, error) {
	if err := validateTransport(offer); err != nil {
		return types.Transport{}, err
	}
	offer.ID = idx.New()
	offer.Username = actor.Username
	offer.DateOffered = today()

	err := mutateCollection(ts.s, transportKey, func(items []types.Transport) ([]types.Transport, bool, error) {
		return append(items, offer), true, nil
	})
	if err != nil {
		return types.Transport{}, err
	}
	ts.s.events.RecordChanged(ctx, events.TypeRecordCreated, "transport", offer)
	return offer, nil
}

func (ts *TransportStore) Update(ctx context.Context, actor types.Session, id string, patch TransportPatch) (types.Transport, error) {
	var updated types.Transport
	err := mutateCollection(ts.s, transportKey, func(items []types.Transport) ([]types.Transport, bool, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if !CanMutate(actor, items[i].Username) {
				return nil, false, ErrForbidden
			}
			applyString(&items[i].Type, patch.Type)
			applyString(&items[i].From, patch.From)
			applyString(&items[i].To, patch.To)
			applyString(&items[i].When, patch.When)
			applyString(&items[i].Contact, patch.Contact)
			if patch.Seats != nil {
				items[i].Seats = *patch.Seats
			}
			if err := validateTransport(items[i]); err != nil {
				return nil, false, err
			}
			updated = items[i]
			return items, true, nil
		}
		return nil, false, ErrNotFound
	})
	if err != nil {
		return types.Transport{}, err
	}
	ts.s.events.RecordChanged(ctx, events.TypeRecordUpdated, "transport", updated)
	return updated, nil
}

func (ts *TransportStore) Delete(ctx context.Context, actor types.Session, id string) (bool, error) {
	deleted := false
	err := mutateCollection(ts.s, transportKey, func(items []types.Transport) ([]types.Transport, bool, error) {
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
		ts.s.events.RecordChanged(ctx, events.TypeRecordDeleted, "transport", map[string]string{"id": id})
	}
	return deleted, nil
}

// List returns transport offers in insertion order.
func (ts *TransportStore) List(ctx context.Context) []types.Transport {
	return loadCollection[types.Transport](ts.s, transportKey)
}

func (ts *TransportStore) MergeBulk(ctx context.Context, rows []tabular.Row) int {
	added := 0
	err := mutateCollection(ts.s, transportKey, func(items []types.Transport) ([]types.Transport, bool, error) {
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			seen[item.ID] = true
		}
		for _, row := range rows {
			id := row["ID"]
			if id == "" || seen[id] {
				continue
			}
			seats, _ := strconv.Atoi(row["Seats"])
			items = append(items, types.Transport{
				ID:          id,
				Type:        row["Type"],
				From:        row["From"],
				To:          row["To"],
				When:        row["When"],
				Seats:       seats,
				Contact:     row["Contact"],
				DateOffered: row["Date Offered"],
				Username:    row["Username"],
			})
			seen[id] = true
			added++
		}
		return items, added > 0, nil
	})
	if err != nil {
		ts.s.log.Error("merge bulk transport", "error", err)
		return 0
	}
	return added
}

func (ts *TransportStore) exportRows(ctx context.Context) []tabular.Row {
	items := ts.List(ctx)
	rows := make([]tabular.Row, len(items))
	for i, tr := range items {
		rows[i] = tabular.Row{
			"ID":           tr.ID,
			"Type":         tr.Type,
			"From":         tr.From,
			"To":           tr.To,
			"When":         tr.When,
			"Seats":        strconv.Itoa(tr.Seats),
			"Contact":      tr.Contact,
			"Date Offered": tr.DateOffered,
			"Username":     tr.Username,
		}
	}
	return rows
}
