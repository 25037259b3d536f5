package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ozon-reports/internal/orders"
	"ozon-reports/internal/parse"
	"ozon-reports/pkg/logger"
)

// Order collection field names. The upstream importer stores the report
// columns verbatim, so the keys are the report's own headings.
const (
	FieldOrderNo       = "订单号"
	FieldShipmentNo    = "发货号码"
	FieldProcessing    = "正在处理中"
	FieldStatus        = "状态"
	FieldShippedAmount = "发货的金额"
	FieldProductName   = "商品名称"
	FieldProductCode   = "货号"
	FieldOzonID        = "Ozon ID"
	FieldQuantity      = "数量"
	FieldCluster       = "配送集群"

	// StatusCancelled marks order lines that never shipped.
	StatusCancelled = "已取消"
)

// OrderReader reads the order collection.
type OrderReader struct {
	coll *mongo.Collection
}

// NewOrderReader wraps the order collection.
func NewOrderReader(coll *mongo.Collection) *OrderReader {
	return &OrderReader{coll: coll}
}

// Lines fetches the order lines whose processing day falls in days,
// excluding cancelled lines. The date lives in a free-form string column,
// so the day filter runs client-side after normalization rather than in a
// query predicate.
func (r *OrderReader) Lines(ctx context.Context, days []string) ([]orders.Line, error) {
	proj := bson.D{}
	for _, f := range []string{
		FieldOrderNo, FieldShipmentNo, FieldProcessing, FieldStatus,
		FieldShippedAmount, FieldProductName, FieldProductCode,
		FieldOzonID, FieldQuantity, FieldCluster,
	} {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}

	docs, err := FetchAll(ctx, r.coll, proj)
	if err != nil {
		return nil, err
	}
	lines := LinesFromDocs(docs, days)
	logger.Log.Info().
		Int("documents", len(docs)).
		Int("lines", len(lines)).
		Msg("order lines loaded")
	return lines, nil
}

// LinesFromDocs filters raw order documents down to the requested days and
// maps them onto lines. Cancelled lines and lines whose processing date
// does not normalize are dropped.
func LinesFromDocs(docs []map[string]any, days []string) []orders.Line {
	wanted := make(map[string]bool, len(days))
	for _, d := range days {
		wanted[d] = true
	}

	var out []orders.Line
	for _, doc := range docs {
		if parse.Stringify(doc[FieldStatus]) == StatusCancelled {
			continue
		}
		day := parse.Day(parse.Stringify(doc[FieldProcessing]))
		if day == "" || !wanted[day] {
			continue
		}
		out = append(out, orders.Line{
			Day:           day,
			ShipmentID:    parse.Stringify(doc[FieldShipmentNo]),
			OzonID:        parse.Stringify(doc[FieldOzonID]),
			ProductCode:   parse.Stringify(doc[FieldProductCode]),
			Cluster:       parse.Stringify(doc[FieldCluster]),
			Quantity:      float64(parse.Int(parse.Stringify(doc[FieldQuantity]))),
			ShippedAmount: parse.Float(parse.Stringify(doc[FieldShippedAmount])),
		})
	}
	return out
}
