// Package attrs works with the key-value attribute slices that flow through
// audit emission and structured logging: [key1, value1, key2, value2, ...].
package attrs

import (
	"fmt"
	"strings"
)

// ExtractString returns the string value for key, or "" when the key is
// absent or its value is not a string.
func ExtractString(kv []any, key string) string {
	for i := 0; i < len(kv)-1; i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := kv[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

// Format renders an attribute slice as "key=value" pairs for audit detail
// fields. A trailing key without a value is rendered as key=?.
func Format(kv []any) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=", kv[i])
		if i+1 < len(kv) {
			fmt.Fprintf(&b, "%v", kv[i+1])
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
