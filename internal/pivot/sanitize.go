// Package pivot exposes the read-only query API the pivot frontend talks
// to: collection listing, field sampling, peeks and filtered queries over
// the campaign collections.
package pivot

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SafeValue converts a decoded BSON value into a JSON-safe one. NaN and
// infinities become null because JSON has no encoding for them and one
// bad cell must not break the whole response.
func SafeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, int, int32, int64:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return SafeValue(float64(x))
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format("2006-01-02 15:04:05")
	default:
		return v
	}
}

// FlattenValue collapses containers into display strings: lists become a
// comma-joined string, nested documents a JSON string. Scalars pass
// through SafeValue.
func FlattenValue(v any) any {
	switch x := v.(type) {
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, fmt.Sprint(SafeValue(item)))
		}
		return strings.Join(parts, ", ")
	case primitive.A:
		return FlattenValue([]any(x))
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	case primitive.M:
		return FlattenValue(map[string]any(x))
	default:
		return SafeValue(v)
	}
}

// FlattenDoc applies FlattenValue to every cell of a document.
func FlattenDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = FlattenValue(v)
	}
	return out
}

// FieldTypes samples documents and reports the first-seen type name per
// field, the hint the frontend uses to pick pivot aggregations.
func FieldTypes(docs []map[string]any) map[string]string {
	fields := make(map[string]string)
	for _, doc := range docs {
		for k, v := range doc {
			if _, seen := fields[k]; seen {
				continue
			}
			fields[k] = typeName(v)
		}
	}
	return fields
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "str"
	case bool:
		return "bool"
	case int, int32, int64:
		return "int"
	case float32, float64:
		return "float"
	case []any, primitive.A:
		return "list"
	case map[string]any, primitive.M:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}
