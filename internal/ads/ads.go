// Package ads aggregates the two campaign collections, search ("op") and
// template ("mb"), into per-(day, sku) rows and merges them for the
// financial roll-up. Documents arrive as raw maps because the collections
// mix field casings and value types across importer generations.
package ads

import (
	"sort"
	"strings"

	"ozon-reports/internal/parse"
)

// OpAggregate is the per-(day, sku) search campaign roll-up.
type OpAggregate struct {
	Day                string
	SKU                string
	Orders             float64
	OrdersFromCPC      float64
	OrdersMoney        float64
	OrdersMoneyFromCPC float64
	MoneySpent         float64
	MoneySpentFromCPC  float64
}

// MbAggregate is the per-(day, sku) template campaign roll-up.
type MbAggregate struct {
	Day         string
	SKU         string
	Orders      float64
	Models      float64
	OrdersMoney float64
	ModelsMoney float64
	MoneySpent  float64
}

// Merged is the outer join of both campaign sides for one (day, sku).
// Missing sides stay at zero.
type Merged struct {
	Day string
	SKU string

	OpOrders             float64
	OpOrdersFromCPC      float64
	OpOrdersMoney        float64
	OpOrdersMoneyFromCPC float64
	OpMoneySpent         float64
	OpMoneySpentFromCPC  float64

	MbOrders      float64
	MbModels      float64
	MbOrdersMoney float64
	MbModelsMoney float64
	MbMoneySpent  float64
}

// ExcludeFilter drops template campaign documents whose field value is in
// the exclusion list (e.g. specific campaign IDs).
type ExcludeFilter struct {
	Field           string
	Aliases         []string
	Values          []string
	CaseInsensitive bool
}

func (f ExcludeFilter) matches(doc map[string]any) bool {
	if f.Field == "" || len(f.Values) == 0 {
		return false
	}
	val := getAny(doc, append([]string{f.Field}, f.Aliases...)...)
	if val == nil {
		return false
	}
	s := stringify(val)
	for _, v := range f.Values {
		if f.CaseInsensitive {
			if strings.EqualFold(s, v) {
				return true
			}
		} else if s == v {
			return true
		}
	}
	return false
}

// AggregateOp rolls the search campaign documents up by (day, sku).
// Documents without a parseable date or a sku are skipped.
func AggregateOp(docs []map[string]any) []OpAggregate {
	type key struct{ day, sku string }
	agg := make(map[key]*OpAggregate)

	for _, doc := range docs {
		day, sku, ok := dayAndSKU(doc)
		if !ok {
			continue
		}
		k := key{day, sku}
		a, exists := agg[k]
		if !exists {
			a = &OpAggregate{Day: day, SKU: sku}
			agg[k] = a
		}
		a.Orders += numField(doc, "orders", "Orders")
		a.OrdersFromCPC += numField(doc, "ordersFromCPC", "OrdersFromCPC")
		a.OrdersMoney += numField(doc, "ordersMoney", "OrdersMoney")
		a.OrdersMoneyFromCPC += numField(doc, "ordersMoneyFromCPC", "OrdersMoneyFromCPC")
		a.MoneySpent += numField(doc, "moneySpent", "MoneySpent")
		a.MoneySpentFromCPC += numField(doc, "moneySpentFromCPC", "MoneySpentFromCPC")
	}

	out := make([]OpAggregate, 0, len(agg))
	for _, a := range agg {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

// AggregateMb rolls the template campaign documents up by (day, sku),
// dropping documents the exclusion filter matches.
func AggregateMb(docs []map[string]any, filter ExcludeFilter) []MbAggregate {
	type key struct{ day, sku string }
	agg := make(map[key]*MbAggregate)

	for _, doc := range docs {
		if filter.matches(doc) {
			continue
		}
		day, sku, ok := dayAndSKU(doc)
		if !ok {
			continue
		}
		k := key{day, sku}
		a, exists := agg[k]
		if !exists {
			a = &MbAggregate{Day: day, SKU: sku}
			agg[k] = a
		}
		a.Orders += numField(doc, "orders", "Orders")
		a.Models += numField(doc, "models", "Models")
		a.OrdersMoney += numField(doc, "ordersMoney", "OrdersMoney")
		a.ModelsMoney += numField(doc, "modelsMoney", "ModelsMoney")
		a.MoneySpent += numField(doc, "moneySpent", "MoneySpent")
	}

	out := make([]MbAggregate, 0, len(agg))
	for _, a := range agg {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

// Merge outer-joins both campaign sides on (day, sku).
func Merge(op []OpAggregate, mb []MbAggregate) []Merged {
	type key struct{ day, sku string }
	rows := make(map[key]*Merged)

	get := func(day, sku string) *Merged {
		k := key{day, sku}
		m, ok := rows[k]
		if !ok {
			m = &Merged{Day: day, SKU: sku}
			rows[k] = m
		}
		return m
	}

	for _, a := range op {
		m := get(a.Day, a.SKU)
		m.OpOrders = a.Orders
		m.OpOrdersFromCPC = a.OrdersFromCPC
		m.OpOrdersMoney = a.OrdersMoney
		m.OpOrdersMoneyFromCPC = a.OrdersMoneyFromCPC
		m.OpMoneySpent = a.MoneySpent
		m.OpMoneySpentFromCPC = a.MoneySpentFromCPC
	}
	for _, a := range mb {
		m := get(a.Day, a.SKU)
		m.MbOrders = a.Orders
		m.MbModels = a.Models
		m.MbOrdersMoney = a.OrdersMoney
		m.MbModelsMoney = a.ModelsMoney
		m.MbMoneySpent = a.MoneySpent
	}

	out := make([]Merged, 0, len(rows))
	for _, m := range rows {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

func dayAndSKU(doc map[string]any) (string, string, bool) {
	rawDate := getAny(doc, "date", "Date")
	if rawDate == nil {
		return "", "", false
	}
	day := parse.Day(stringify(rawDate))
	if day == "" {
		return "", "", false
	}
	rawSKU := getAny(doc, "sku", "SKU")
	if rawSKU == nil {
		return "", "", false
	}
	return day, stringify(rawSKU), true
}

func getAny(doc map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := doc[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return strings.TrimSpace(parse.Stringify(v))
	}
}

func numField(doc map[string]any, keys ...string) float64 {
	v := getAny(doc, keys...)
	if v == nil {
		return 0
	}
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return parse.Float(stringify(v))
	}
}
