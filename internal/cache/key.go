package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// Key derives the deterministic cache key for a tool invocation.
//
// Only the allow-listed fields participate: identical invocations differing
// in fields outside the list (a free-text title used for display, say) hit
// the same entry. Fields are processed in sorted order so declaration order
// never changes the key, and a missing field is encoded as JSON null so
// present-vs-absent is distinguishable from an empty value.
func Key(tool string, params map[string]any, fields []string) string {
	sorted := slices.Clone(fields)
	slices.Sort(sorted)

	h := sha256.New()
	h.Write([]byte(tool))
	for _, f := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(f))
		h.Write([]byte{'='})

		v, ok := params[f]
		if !ok {
			h.Write([]byte("null"))
			continue
		}
		// json.Marshal sorts map keys, so nested values encode canonically.
		// Unmarshalable values cannot appear here: params passed schema
		// validation, which only admits JSON types.
		data, err := json.Marshal(v)
		if err != nil {
			h.Write([]byte("null"))
			continue
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
