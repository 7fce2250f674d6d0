package store

const (
	EntriesKey = "museum_entries"
	VocabKey   = "museum_vocab"
	ProfileKey = "museum_profile"
	SessionKey = "museum_session"
)

// Namespaced returns the local key of a per-user (or per-client) snapshot: "<key>_<id>".
func Namespaced(key, id string) string {
	return key + "_" + id
}
