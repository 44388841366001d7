package event

import "strconv"

// raw wraps a decoded JSON object for safe nested lookup.
// Missing or mistyped values yield zero values, never a panic
type raw map[string]any

func (r raw) sub(keys ...string) raw {
	cur := r
	for _, k := range keys {
		v, ok := cur[k]
		if !ok {
			return nil
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		cur = m
	}
	return cur
}

func (r raw) val(keys ...string) (any, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	m := r.sub(keys[:len(keys)-1]...)
	if m == nil {
		return nil, false
	}
	v, ok := m[keys[len(keys)-1]]
	return v, ok
}

func (r raw) str(keys ...string) string {
	v, ok := r.val(keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func (r raw) i64(keys ...string) int64 {
	v, ok := r.val(keys...)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}

func (r raw) intv(keys ...string) int {
	return int(r.i64(keys...))
}

// boolv accepts JSON booleans and the "true"/"false" strings some
// server versions send
func (r raw) boolv(keys ...string) bool {
	v, ok := r.val(keys...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

func (r raw) mapv(keys ...string) map[string]any {
	m := r.sub(keys...)
	if m == nil {
		return nil
	}
	return map[string]any(m)
}
