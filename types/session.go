package types

// Session is the persisted projection of an authenticated user. It is
// created on login, removed on logout, and rehydrated from the session
// store by ID so it survives server restarts without reloading the
// directory.
type Session struct {
	// ID identifies this session. Bearer tokens carry it as their subject.
	ID string `json:"sessionId"`

	UserID        string `json:"userId"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	FullName      string `json:"fullName"`
	Barangay      string `json:"barangay"`
	Phone         string `json:"phone"`
	PhoneVerified bool   `json:"phoneVerified"`
}

// IsAdmin reports whether the session belongs to an admin account.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
