// Package directory maintains the merged user directory: bulk users from
// the seed Users.csv overlaid with users registered through the API.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/resourceshare-ph/apiserver/internal/kv"
	"github.com/resourceshare-ph/apiserver/internal/tabular"
	"github.com/resourceshare-ph/apiserver/types"
)

// RegisteredKey is the kv key holding the registered-user collection.
const RegisteredKey = "registeredUsers"

// ErrDuplicate is returned when a username already exists in the
// registered collection.
var ErrDuplicate = errors.New("username exists")

// Directory merges the two user sources. Registered users always win
// over bulk entries sharing the same username.
type Directory struct {
	loader *tabular.Loader
	kv     *kv.Store
	log    *slog.Logger
}

func New(loader *tabular.Loader, store *kv.Store, log *slog.Logger) *Directory {
	return &Directory{loader: loader, kv: store, log: log}
}

// Field spellings accepted from bulk tables, consulted once at parse
// time. First non-empty value wins.
var userFieldAliases = map[string][]string{
	"id":             {"ID", "Id", "id"},
	"username":       {"Username", "username"},
	"passwordHash":   {"PasswordHash", "passwordHash"},
	"role":           {"Role", "role"},
	"fullName":       {"FullName", "Full Name", "fullName"},
	"barangay":       {"Barangay", "barangay"},
	"phone":          {"Phone", "phone"},
	"phoneVerified":  {"PhoneVerified", "phoneVerified"},
	"dateRegistered": {"DateRegistered", "Date Registered", "dateRegistered"},
}

func userFromRow(row tabular.Row) types.User {
	field := func(name string) string {
		return row.First(userFieldAliases[name]...)
	}
	role := field("role")
	if role == "" {
		role = types.RoleUser
	}
	return types.User{
		ID:             field("id"),
		Username:       field("username"),
		PasswordHash:   field("passwordHash"),
		Role:           role,
		FullName:       field("fullName"),
		Barangay:       field("barangay"),
		Phone:          field("phone"),
		PhoneVerified:  field("phoneVerified") == "true",
		DateRegistered: field("dateRegistered"),
	}
}

// Load returns the merged directory: bulk entries first, registered
// entries overwriting any bulk entry with the same username. A failing
// bulk source degrades to registered-only; the caller never sees an
// error, only a smaller directory.
func (d *Directory) Load(ctx context.Context) []types.User {
	var order []string
	byUsername := make(map[string]types.User)

	for _, row := range d.loader.LoadTable(ctx, "users") {
		user := userFromRow(row)
		if user.Username == "" {
			continue
		}
		if _, seen := byUsername[user.Username]; !seen {
			order = append(order, user.Username)
		}
		byUsername[user.Username] = user
	}

	for _, user := range d.Registered() {
		if user.Username == "" {
			continue
		}
		if _, seen := byUsername[user.Username]; !seen {
			order = append(order, user.Username)
		}
		byUsername[user.Username] = user
	}

	users := make([]types.User, 0, len(order))
	for _, username := range order {
		users = append(users, byUsername[username])
	}
	return users
}

// ExportRows returns the merged directory in export-column form. The
// password digest is never exported.
func (d *Directory) ExportRows(ctx context.Context) []tabular.Row {
	users := d.Load(ctx)
	rows := make([]tabular.Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, tabular.Row{
			"ID":              u.ID,
			"Username":        u.Username,
			"Full Name":       u.FullName,
			"Role":            u.Role,
			"Barangay":        u.Barangay,
			"Phone":           u.Phone,
			"Date Registered": u.DateRegistered,
		})
	}
	return rows
}

// Registered returns the locally registered users. Absent or unreadable
// state yields an empty list.
func (d *Directory) Registered() []types.User {
	var users []registeredUser
	if err := d.kv.GetJSON(RegisteredKey, &users); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			d.log.Warn("registered users unreadable, treating as empty", "error", err)
		}
		return nil
	}
	out := make([]types.User, len(users))
	for i, u := range users {
		out[i] = types.User(u)
	}
	return out
}

// AddRegistered appends user to the registered collection. The duplicate
// check and the append run under one store lock, so two concurrent
// registrations for the same username cannot both succeed.
func (d *Directory) AddRegistered(ctx context.Context, user types.User) error {
	return d.kv.Update(RegisteredKey, func(current []byte) ([]byte, error) {
		users, err := decodeRegistered(current)
		if err != nil {
			return nil, err
		}
		for _, existing := range users {
			if existing.Username == user.Username {
				return nil, ErrDuplicate
			}
		}
		users = append(users, registeredUser(user))
		return encodeRegistered(users)
	})
}

// UpdateRegistered applies fn to the registered entry for username, if
// one exists, and reports whether an entry was found.
func (d *Directory) UpdateRegistered(ctx context.Context, username string, fn func(*types.User)) (bool, error) {
	found := false
	err := d.kv.Update(RegisteredKey, func(current []byte) ([]byte, error) {
		users, err := decodeRegistered(current)
		if err != nil {
			return nil, err
		}
		for i := range users {
			if users[i].Username == username {
				u := types.User(users[i])
				fn(&u)
				users[i] = registeredUser(u)
				found = true
				return encodeRegistered(users)
			}
		}
		return nil, nil
	})
	return found, err
}

// registeredUser persists the full user record including the password
// digest, which types.User deliberately refuses to marshal.
type registeredUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	PasswordHash   string `json:"passwordHash"`
	Role           string `json:"role"`
	FullName       string `json:"fullName"`
	Barangay       string `json:"barangay"`
	Phone          string `json:"phone"`
	PhoneVerified  bool   `json:"phoneVerified"`
	DateRegistered string `json:"dateRegistered"`
}

func decodeRegistered(data []byte) ([]registeredUser, error) {
	if data == nil {
		return nil, nil
	}
	var users []registeredUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode registered users: %w", err)
	}
	return users, nil
}

func encodeRegistered(users []registeredUser) ([]byte, error) {
	return json.MarshalIndent(users, "", "  ")
}
