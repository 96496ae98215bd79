// Package auth implements credential digesting, login, session
// persistence and account registration over the merged user directory.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/resourceshare-ph/apiserver/internal/directory"
	"github.com/resourceshare-ph/apiserver/internal/events"
	"github.com/resourceshare-ph/apiserver/internal/idx"
	"github.com/resourceshare-ph/apiserver/internal/kv"
	"github.com/resourceshare-ph/apiserver/types"
)

// SessionsKey is the kv key holding persisted session projections.
const SessionsKey = "sessions"

const dateLayout = "1/2/2006"

// defaultSessionTTL bounds how long a persisted session projection
// stays valid; it matches the lifetime of the tokens that carry the
// session ID.
const defaultSessionTTL = 24 * time.Hour

// ResultCode classifies a Result so callers can map outcomes to
// transport statuses without matching on display text.
type ResultCode int

const (
	CodeOK ResultCode = iota
	CodeDuplicate
	CodeWrongPassword
	CodeNotLoggedIn
	CodeFailed
)

// Result is the structured outcome of register and profile operations,
// suitable for direct display.
type Result struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Code    ResultCode `json:"-"`
}

// Manager owns the in-memory directory snapshot and the persisted
// sessions.
type Manager struct {
	dir    *directory.Directory
	kv     *kv.Store
	events *events.Publisher
	log    *slog.Logger
	ttl    time.Duration

	mu    sync.Mutex
	users []types.User
}

// NewManager constructs a Manager over the given collaborators. ttl
// bounds session lifetime; non-positive values fall back to the
// default.
func NewManager(dir *directory.Directory, store *kv.Store, pub *events.Publisher, log *slog.Logger, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Manager{dir: dir, kv: store, events: pub, log: log, ttl: ttl}
}

// sessionRecord wraps a persisted session with its expiry. Expired
// records are invisible to lookups and swept whenever the collection is
// rewritten.
type sessionRecord struct {
	Session   types.Session `json:"session"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

func (r sessionRecord) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// HashPassword returns the hex-encoded SHA-256 digest of password. The
// digest is deterministic so that hashes shipped in the bulk Users.csv
// compare equal to locally computed ones. Plaintext passwords are never
// stored or transmitted.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Refresh reloads the merged directory snapshot.
func (m *Manager) Refresh(ctx context.Context) {
	users := m.dir.Load(ctx)
	m.mu.Lock()
	m.users = users
	m.mu.Unlock()
}

// Users returns the directory snapshot as last loaded.
func (m *Manager) Users() []types.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.User, len(m.users))
	copy(out, m.users)
	return out
}

// Login reloads the merged directory and authenticates username against
// the supplied password. On success it persists and returns a new
// session projection. The boolean is the only failure signal: callers
// cannot distinguish an unknown username from a wrong password.
func (m *Manager) Login(ctx context.Context, username, password string) (types.Session, bool) {
	m.Refresh(ctx)
	digest := HashPassword(password)

	var match types.User
	found := false
	m.mu.Lock()
	for _, u := range m.users {
		if u.Username == username && u.PasswordHash == digest {
			match = u
			found = true
			break
		}
	}
	m.mu.Unlock()
	if !found {
		return types.Session{}, false
	}

	session := types.Session{
		ID:            idx.New(),
		UserID:        match.ID,
		Username:      match.Username,
		Role:          match.Role,
		FullName:      match.FullName,
		Barangay:      match.Barangay,
		Phone:         match.Phone,
		PhoneVerified: match.PhoneVerified || match.Role == types.RoleAdmin,
	}
	if err := m.putSession(session); err != nil {
		m.log.Error("persist session", "username", username, "error", err)
		return types.Session{}, false
	}
	return session, true
}

// SessionByID rehydrates a persisted session projection. Expired
// sessions report not found.
func (m *Manager) SessionByID(ctx context.Context, id string) (types.Session, bool) {
	sessions, err := m.sessions()
	if err != nil {
		m.log.Warn("sessions unreadable", "error", err)
		return types.Session{}, false
	}
	record, ok := sessions[id]
	if !ok || record.expired(time.Now()) {
		return types.Session{}, false
	}
	return record.Session, true
}

// Logout removes the persisted session. Logging out an unknown session
// is a no-op.
func (m *Manager) Logout(ctx context.Context, id string) {
	err := m.kv.Update(SessionsKey, func(current []byte) ([]byte, error) {
		sessions, err := decodeSessions(current)
		if err != nil {
			return nil, err
		}
		if _, ok := sessions[id]; !ok {
			return nil, nil
		}
		delete(sessions, id)
		return json.Marshal(sessions)
	})
	if err != nil {
		m.log.Error("remove session", "error", err)
	}
}

// Register creates a new account. The duplicate check runs against the
// in-memory directory as last loaded; the registered collection applies
// its own duplicate check under lock when appending, so a racing
// registration still cannot produce two entries.
func (m *Manager) Register(ctx context.Context, username, password, fullName, barangay, phone, role string) Result {
	m.mu.Lock()
	for _, u := range m.users {
		if u.Username == username {
			m.mu.Unlock()
			return Result{Success: false, Message: "Username already exists", Code: CodeDuplicate}
		}
	}
	m.mu.Unlock()

	if role == "" {
		role = types.RoleUser
	}

	user := types.User{
		ID:             idx.New(),
		Username:       username,
		PasswordHash:   HashPassword(password),
		Role:           role,
		FullName:       fullName,
		Barangay:       barangay,
		Phone:          phone,
		PhoneVerified:  true,
		DateRegistered: time.Now().Format(dateLayout),
	}

	if err := m.dir.AddRegistered(ctx, user); err != nil {
		if errors.Is(err, directory.ErrDuplicate) {
			return Result{Success: false, Message: "Username already exists", Code: CodeDuplicate}
		}
		m.log.Error("register user", "username", username, "error", err)
		return Result{Success: false, Message: "Registration failed", Code: CodeFailed}
	}

	m.mu.Lock()
	m.users = append(m.users, user)
	m.mu.Unlock()

	m.events.UserRegistered(ctx, user)

	return Result{Success: true, Message: "Registration successful", Code: CodeOK}
}

// UpdateProfile changes profile fields, and the password when
// newPassword is non-empty, after re-verifying the current password. On
// success the registered entry and the persisted session projection are
// both refreshed.
func (m *Manager) UpdateProfile(ctx context.Context, sessionID, fullName, barangay, phone, currentPassword, newPassword string) Result {
	session, ok := m.SessionByID(ctx, sessionID)
	if !ok {
		return Result{Success: false, Message: "Not logged in", Code: CodeNotLoggedIn}
	}

	m.Refresh(ctx)
	currentDigest := HashPassword(currentPassword)

	var account types.User
	verified := false
	m.mu.Lock()
	for _, u := range m.users {
		if u.Username == session.Username && u.PasswordHash == currentDigest {
			account = u
			verified = true
			break
		}
	}
	m.mu.Unlock()
	if !verified {
		return Result{Success: false, Message: "Current password is incorrect", Code: CodeWrongPassword}
	}

	apply := func(u *types.User) {
		u.FullName = fullName
		u.Barangay = barangay
		u.Phone = phone
		if newPassword != "" {
			u.PasswordHash = HashPassword(newPassword)
		}
	}

	updated := account
	apply(&updated)

	found, err := m.dir.UpdateRegistered(ctx, session.Username, apply)
	if err != nil {
		m.log.Error("update profile", "username", session.Username, "error", err)
		return Result{Success: false, Message: "Update failed", Code: CodeFailed}
	}
	if !found {
		// The account only exists in the bulk source. Persist the edited
		// copy as a registered entry; the merge keeps it authoritative.
		if err := m.dir.AddRegistered(ctx, updated); err != nil {
			m.log.Error("update profile", "username", session.Username, "error", err)
			return Result{Success: false, Message: "Update failed", Code: CodeFailed}
		}
	}

	m.mu.Lock()
	for i := range m.users {
		if m.users[i].Username == session.Username {
			m.users[i] = updated
			break
		}
	}
	m.mu.Unlock()

	session.FullName = fullName
	session.Barangay = barangay
	session.Phone = phone
	if err := m.putSession(session); err != nil {
		m.log.Error("refresh session", "username", session.Username, "error", err)
	}

	return Result{Success: true, Message: "Profile updated successfully", Code: CodeOK}
}

// putSession stores the session and sweeps records that have already
// expired, so the collection cannot grow without bound.
func (m *Manager) putSession(session types.Session) error {
	return m.kv.Update(SessionsKey, func(current []byte) ([]byte, error) {
		sessions, err := decodeSessions(current)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		for id, record := range sessions {
			if record.expired(now) {
				delete(sessions, id)
			}
		}
		sessions[session.ID] = sessionRecord{Session: session, ExpiresAt: now.Add(m.ttl)}
		return json.Marshal(sessions)
	})
}

func (m *Manager) sessions() (map[string]sessionRecord, error) {
	data, err := m.kv.Get(SessionsKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return map[string]sessionRecord{}, nil
		}
		return nil, err
	}
	return decodeSessions(data)
}

func decodeSessions(data []byte) (map[string]sessionRecord, error) {
	if data == nil {
		return map[string]sessionRecord{}, nil
	}
	sessions := map[string]sessionRecord{}
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}
