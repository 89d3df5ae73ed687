package querycache

import (
	"encoding/json"
	"fmt"
)

// Key identifies one cache entry: the query name followed by its parameters.
// Two keys with equal elements resolve to the same entry.
type Key []any

func NewKey(name string, params ...any) Key {
	return append(Key{name}, params...)
}

// Name returns the query name (first element).
func (k Key) Name() string {
	if len(k) == 0 {
		return ""
	}
	name, _ := k[0].(string)
	return name
}

// String encodes the key as a JSON array, e.g. ["coins",1,"usd"].
func (k Key) String() string {
	b, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprintf("%v", []any(k))
	}
	return string(b)
}
