package feishu

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ozon-reports/internal/parse"
)

// Row is one flattened record: field name to a typed scalar. Text and
// select fields flatten to string, number to float64, checkbox to bool,
// date to its millisecond epoch as int64.
type Row map[string]any

// FlattenRecord converts a raw record's fields into a Row following the
// declared schema types. Raw cell values arrive in several shapes (scalar,
// rich-text fragment list, selector object); the schema type decides how
// each is flattened, and unknown types become JSON strings so nothing is
// silently lost.
func FlattenRecord(fields map[string]any, schema Schema) Row {
	row := make(Row, len(fields))
	for name, val := range fields {
		if val == nil {
			continue
		}
		switch schema.TypeOf(name) {
		case TypeNumber:
			row[name] = flattenNumber(val)
		case TypeCheckbox:
			row[name] = flattenBool(val)
		case TypeDate:
			row[name] = flattenMillis(val)
		default: // text, selects, unknown
			row[name] = flattenText(val)
		}
	}
	return row
}

// RequireFields verifies the presence of the named fields across all rows,
// reporting every missing name at once.
func RequireFields(rows []Row, names ...string) error {
	present := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			present[k] = true
		}
	}
	var missing []string
	for _, n := range names {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table rows are missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// String returns the field as a string, "" when absent.
func (r Row) String(name string) string {
	return parse.Stringify(r[name])
}

// Float returns the field as a float64, parsing strings leniently.
func (r Row) Float(name string) float64 {
	switch v := r[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return parse.Float(r.String(name))
	}
}

// Day returns a date field as a canonical day key in loc. Millisecond
// timestamps and date strings are both accepted.
func (r Row) Day(name string, loc *time.Location) string {
	switch v := r[name].(type) {
	case int64:
		return parse.DayFromMillis(v, loc)
	case float64:
		return parse.DayFromMillis(int64(v), loc)
	default:
		return parse.Day(r.String(name))
	}
}

// RowsToRecords converts flattened rows back into the field maps the
// record-creation API accepts. Values must already be primitives or
// millisecond timestamps; day-key strings in date fields convert to
// millisecond epochs in loc.
func RowsToRecords(rows []Row, schema Schema, loc *time.Location) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]any, len(row))
		for name, val := range row {
			if schema.TypeOf(name) == TypeDate {
				if s, ok := val.(string); ok {
					fields[name] = parse.DayToMillis(s, loc)
					continue
				}
			}
			fields[name] = val
		}
		out = append(out, fields)
	}
	return out
}

func flattenNumber(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return parse.Float(flattenText(val))
	}
}

func flattenBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	default:
		s := strings.ToLower(strings.TrimSpace(flattenText(val)))
		return s == "1" || s == "true" || s == "yes"
	}
}

func flattenMillis(val any) int64 {
	switch v := val.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		i, _ := v.Int64()
		return i
	default:
		return parse.DayToMillis(parse.Day(flattenText(val)), time.UTC)
	}
}

// flattenText extracts the display text from the cell shapes the platform
// returns: scalars, rich-text fragment lists and selector objects.
func flattenText(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case float64, int64, bool, json.Number:
		return parse.Stringify(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := flattenText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		if t, ok := v["text"]; ok && t != nil {
			return parse.Stringify(t)
		}
		if inner, ok := v["value"]; ok {
			return flattenText(inner)
		}
		for _, k := range []string{"name", "title", "label"} {
			if t, ok := v[k]; ok && t != nil {
				return parse.Stringify(t)
			}
		}
		b, _ := json.Marshal(v)
		return string(b)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
