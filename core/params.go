package core

import "fmt"

// Params holds per-run configuration. Defaults are attached to a node or flow
// at construction; runtime params are merged over them for every Run.
type Params map[string]any

// Merge returns a new map holding p overlaid by over. Keys in over win.
// Neither input is modified.
func (p Params) Merge(over Params) Params {
	merged := make(Params, len(p)+len(over))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	return Params(nil).Merge(p)
}

// Get returns the raw value stored under key.
func (p Params) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// String returns the value under key as a string. Non-string values are
// formatted with %v; a missing key yields "".
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Int returns the value under key as an int, or def when missing or not numeric.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return def
}

// Float returns the value under key as a float64, or def when missing or not numeric.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Bool returns the value under key as a bool, or def when missing.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}
