package records

import "github.com/resourceshare-ph/apiserver/types"

// CanMutate is the single authorization rule for record mutation: the
// owner of a record or an admin may change it, nobody else. Update and
// Delete consult it before touching the collection.
func CanMutate(session types.Session, owner string) bool {
	return owner == session.Username || session.IsAdmin()
}
