package types

// User represents an account in the system.
// Accounts come from two sources: the bulk Users.csv seed shipped with a
// deployment, and self-registration through the API. The merged directory
// holds at most one User per Username; the registered copy wins.
type User struct {
	// ID is the unique identifier of the user, a time-ordered token
	// assigned at registration.
	ID string `json:"id"`

	// Username is the unique login name chosen by the user. It is the
	// merge key of the directory.
	Username string `json:"username"`

	// PasswordHash stores the hex-encoded SHA-256 digest of the user's
	// password. This field is never exposed in API responses.
	PasswordHash string `json:"-"`

	// Role indicates the user's authorization level within the system:
	// "user", "volunteer" or "admin".
	Role string `json:"role"`

	// FullName is the user's display name.
	FullName string `json:"fullName"`

	// Barangay is the user's home barangay.
	Barangay string `json:"barangay"`

	// Phone is the user's mobile number.
	Phone string `json:"phone"`

	// PhoneVerified reports whether the phone number has been verified.
	// Self-registered accounts are marked verified on creation.
	PhoneVerified bool `json:"phoneVerified"`

	// DateRegistered is the date the account was created.
	DateRegistered string `json:"dateRegistered"`
}

// Roles understood by the system.
const (
	RoleUser      = "user"
	RoleVolunteer = "volunteer"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one the system understands.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleVolunteer, RoleAdmin:
		return true
	}
	return false
}
