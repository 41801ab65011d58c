package plugin

import (
	"fmt"
	"strconv"
	"strings"
)

// Params holds a module's arguments as the host passes them: all strings.
type Params map[string]string

// ParseParam splits a "key=value" pair
func ParseParam(kv string) (string, string, error) {
	key, value, ok := strings.Cut(kv, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", kv)
	}
	return key, value, nil
}

// WithDefaults returns a copy of p where missing keys take the metadata
// default arguments.
func (p Params) WithDefaults(defaults map[string]any) Params {
	out := make(Params, len(defaults)+len(p))
	for k, v := range defaults {
		out[k] = fmt.Sprint(v)
	}
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the raw value, or "" when absent
func (p Params) String(key string) string {
	return p[key]
}

// Int parses key as a base 10 integer
func (p Params) Int(key string) (int, error) {
	raw := strings.TrimSpace(p[key])
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("argument %s: %q is not an integer", key, raw)
	}
	return n, nil
}

// Bool reads the usual spellings of a checkbox value. Anything unrecognised,
// including an empty value, is false.
func (p Params) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(p[key])) {
	case "true", "1", "yes", "on", "checked":
		return true
	default:
		return false
	}
}
