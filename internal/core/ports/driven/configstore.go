package driven

// ConfigStore is a flat key/value view of the settings file, keyed by
// dotted paths such as "embedding.provider".
//
// Typed getters return the zero value when the key is missing or holds a
// different type; GetFloat also accepts integers.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set writes through to storage before the value becomes visible.
	Set(key string, value any) error

	Save() error
	// Load replaces the in-memory view with what storage holds.
	Load() error
	Path() string
}
