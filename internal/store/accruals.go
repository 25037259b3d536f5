package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ozon-reports/internal/parse"
	"ozon-reports/internal/shipping"
	"ozon-reports/pkg/logger"
)

// Accrual collection field names, again the marketplace report headings.
const (
	FieldChargeType      = "Тип начисления"
	FieldAcceptanceDate  = "Дата принятия заказа в обработку или оказания услуги"
	FieldAccrualShipment = "Номер отправления или идентификатор услуги"
	FieldLogistics       = "Логистика"
	FieldAvgHours        = "Среднее время доставки, часы"

	// ChargeTypeDelivery selects customer delivery accruals, the only
	// charge type the logistics stage consumes.
	ChargeTypeDelivery = "Доставка покупателю"
)

// AccrualReader reads the accrual ledger.
type AccrualReader struct {
	coll *mongo.Collection
}

// NewAccrualReader wraps the accrual collection.
func NewAccrualReader(coll *mongo.Collection) *AccrualReader {
	return &AccrualReader{coll: coll}
}

func (r *AccrualReader) fetch(ctx context.Context, days []string) ([]map[string]any, error) {
	proj := bson.D{}
	for _, f := range []string{
		FieldChargeType, FieldAcceptanceDate, FieldAccrualShipment,
		FieldLogistics, FieldAvgHours,
	} {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	docs, err := FetchAll(ctx, r.coll, proj)
	if err != nil {
		return nil, err
	}
	return FilterDeliveryAccruals(docs, days), nil
}

// LogisticsByShipment sums the recorded logistics charge per shipment for
// delivery accruals accepted on one of the given days.
func (r *AccrualReader) LogisticsByShipment(ctx context.Context, days []string) (map[string]float64, error) {
	docs, err := r.fetch(ctx, days)
	if err != nil {
		return nil, err
	}
	sums := SumLogistics(docs)
	logger.Log.Info().Int("shipments", len(sums)).Msg("accrued logistics loaded")
	return sums, nil
}

// HoursSamples extracts the delivery-time observations for the given days,
// one sample per delivery accrual carrying an hour value.
func (r *AccrualReader) HoursSamples(ctx context.Context, days []string) ([]shipping.HoursSample, error) {
	docs, err := r.fetch(ctx, days)
	if err != nil {
		return nil, err
	}
	return HoursSamplesFromDocs(docs), nil
}

// FilterDeliveryAccruals keeps delivery accruals whose acceptance date
// normalizes to one of the given days.
func FilterDeliveryAccruals(docs []map[string]any, days []string) []map[string]any {
	wanted := make(map[string]bool, len(days))
	for _, d := range days {
		wanted[d] = true
	}
	var out []map[string]any
	for _, doc := range docs {
		if parse.Stringify(doc[FieldChargeType]) != ChargeTypeDelivery {
			continue
		}
		day := parse.Day(parse.Stringify(doc[FieldAcceptanceDate]))
		if day == "" || !wanted[day] {
			continue
		}
		out = append(out, doc)
	}
	return out
}

// SumLogistics folds filtered accruals into per-shipment logistics totals.
func SumLogistics(docs []map[string]any) map[string]float64 {
	sums := make(map[string]float64)
	for _, doc := range docs {
		shipment := parse.Stringify(doc[FieldAccrualShipment])
		if shipment == "" {
			continue
		}
		sums[shipment] += parse.Float(parse.Stringify(doc[FieldLogistics]))
	}
	return sums
}

// HoursSamplesFromDocs maps filtered accruals onto day-keyed hour samples.
// Zero and negative hours still pass through; the averaging stage decides
// what counts as a valid observation.
func HoursSamplesFromDocs(docs []map[string]any) []shipping.HoursSample {
	var out []shipping.HoursSample
	for _, doc := range docs {
		day := parse.Day(parse.Stringify(doc[FieldAcceptanceDate]))
		if day == "" {
			continue
		}
		out = append(out, shipping.HoursSample{
			Day:   day,
			Hours: parse.Float(parse.Stringify(doc[FieldAvgHours])),
		})
	}
	return out
}
