// Package utils provides safe accessors for the loosely typed maps decoded
// from hook payloads (tool_input, tool_response).
package utils

// Lookup returns m[key] as a T. ok is false when the key is missing or holds
// another type. A nil map is fine.
func Lookup[T any](m map[string]interface{}, key string) (v T, ok bool) {
	v, ok = m[key].(T)
	return v, ok
}

// GetString returns the string under key, or def.
func GetString(m map[string]interface{}, key, def string) string {
	if v, ok := Lookup[string](m, key); ok {
		return v
	}
	return def
}

// GetBool returns the bool under key, or def.
func GetBool(m map[string]interface{}, key string, def bool) bool {
	if v, ok := Lookup[bool](m, key); ok {
		return v
	}
	return def
}

// FirstString returns the first non-empty string stored under any of keys.
// Hook payloads spell the same field differently across tools
// (file_path, notebook_path, path).
func FirstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v := GetString(m, k, ""); v != "" {
			return v
		}
	}
	return ""
}

// GetIntPtr returns the integer under key, or nil when it is absent or not
// a number. JSON numbers arrive as float64 and are truncated.
func GetIntPtr(m map[string]interface{}, key string) *int {
	switch v := m[key].(type) {
	case int:
		return &v
	case float64:
		n := int(v)
		return &n
	}
	return nil
}
