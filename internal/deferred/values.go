package deferred

// Values are resolved properties handed to a Factory.
type Values map[string]any

func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

// List returns a list value. A single non-list value is returned as a
// one-element list; a missing key yields nil.
func (v Values) List(key string) []any {
	switch l := v[key].(type) {
	case nil:
		return nil
	case []any:
		return l
	default:
		if IsOmitted(l) {
			return nil
		}
		return []any{l}
	}
}
