// Package identity defines whose dismissal and seen state is being read or written.
package identity

// Identity is the (role, user id) pair of the logged-in user. Username is
// carried for display only and never takes part in keying.
type Identity struct {
	Role     string `json:"role"`
	UserID   string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Complete reports whether both keying fields are present
func (i Identity) Complete() bool {
	return i.Role != "" && i.UserID != ""
}

// Same reports whether two identities address the same dismissal record
func (i Identity) Same(other Identity) bool {
	return i.Role == other.Role && i.UserID == other.UserID
}

func (i Identity) String() string {
	if !i.Complete() {
		return "anonymous"
	}
	return i.Role + "/" + i.UserID
}
