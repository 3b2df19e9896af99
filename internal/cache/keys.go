package cache

import (
	"encoding/json"
	"fmt"
)

// Key builds a deterministic cache key from an operation name and its
// parameters. Identical queries produce identical keys; distinct parameter
// sets never collide because the full serialized form is part of the key.
// Map parameters serialize with sorted keys under encoding/json, so ordering
// is stable there too.
func Key(op string, params any) string {
	if params == nil {
		return op
	}
	b, err := json.Marshal(params)
	if err != nil {
		// Parameters that cannot marshal still need a usable key; fall back
		// to the fmt representation rather than failing the lookup path.
		return fmt.Sprintf("%s?%+v", op, params)
	}
	return op + "?" + string(b)
}
