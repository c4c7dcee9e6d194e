package dismissal

import "github.com/giygas/pharmacy-notifier/identity"

// Kind selects one of the two per-identity sets
type Kind string

const (
	// KindSeen holds ids acknowledged for badge counting
	KindSeen Kind = "seen"
	// KindDeleted holds ids dismissed from every notification view
	KindDeleted Kind = "deleted"
)

var keyPrefixes = map[Kind]string{
	KindSeen:    "seenNotificationIds",
	KindDeleted: "deletedNotificationIds",
}

// Key builds the storage key for kind and id. Every read and write goes
// through here so the <prefix>_<role>_<id> format cannot drift.
func Key(kind Kind, id identity.Identity) string {
	return keyPrefixes[kind] + "_" + id.Role + "_" + id.UserID
}

// Owns reports whether key is one of id's two keys
func Owns(key string, id identity.Identity) bool {
	if !id.Complete() {
		return false
	}
	return key == Key(KindSeen, id) || key == Key(KindDeleted, id)
}
