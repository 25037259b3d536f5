// Package finance computes the per-(day, Ozon ID) financial roll-up: unit
// economics, channel ad spend, totals and channel share percentages.
package finance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RequiredColumns are the joined-table columns the roll-up cannot run
// without. Their absence points at a broken upstream join, not dirty data,
// so it is a fatal error.
var RequiredColumns = []string{"quantity", "mb_orders", "mb_models", "op_orders"}

// RequireColumns verifies that every required column survived the joins,
// reporting all missing names at once.
func RequireColumns(columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Input is one joined (day, Ozon ID) row entering the roll-up: the shipping
// group, the cost table and both ad campaign aggregates.
type Input struct {
	Day    string
	OzonID string

	Quantity      int
	ShippedAmount float64
	AvgPrice      float64
	AvgLogistics  float64

	// Deduction is the combined marketplace commission as a fraction of
	// the price; FixedFee the flat platform fee per unit; UnitCost the
	// purchase cost in rubles.
	Deduction float64
	FixedFee  float64
	UnitCost  float64

	// Template ("mb") and search ("op") campaign aggregates for the day.
	MbMoneySpent        float64
	OpMoneySpent        float64
	OpMoneySpentFromCPC float64
	MbOrders            int
	MbModels            int
	OpOrders            int

	// Safety-stock inputs joined from the inventory table.
	Arrival7Days float64
	DailySales   float64
}

// Result is the computed roll-up for one row. Money values are rounded to
// 2 decimals, rates to 4.
type Result struct {
	Day    string
	OzonID string

	SalesCost     float64 // price*deduction + fixed fee + avg logistics
	GrossMargin   float64 // price - unit cost - sales cost
	TemplateSpend float64 // mb spend per unit
	SearchSpend   float64 // op spend per unit
	NetProfit     float64 // margin - template - search

	TotalUnits    int
	TemplateUnits int
	SearchUnits   int
	NaturalUnits  int

	TotalSales         float64
	TotalGoodsCost     float64
	TotalSalesCost     float64
	TotalTemplateSpend float64
	TotalSearchSpend   float64
	TotalNetProfit     float64
	TotalPayback       float64

	NaturalShare  float64 // percent of units, 2 decimals
	TemplateShare float64
	SearchShare   float64
	MarginRate    float64 // gross margin / price, 4 decimals
	DailyNetRate  float64 // total net / total sales, 4 decimals

	SafetyStockQty int // 7-day-arrival cover times daily sales
}

func round2(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}

func round4(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(4).Float64()
	return f
}

// Rollup computes the full financial result for one row.
func Rollup(in Input) Result {
	r := Result{Day: in.Day, OzonID: in.OzonID}

	// 1. Unit economics.
	r.SalesCost = round2(in.AvgPrice*in.Deduction + in.FixedFee + in.AvgLogistics)
	r.GrossMargin = round2(in.AvgPrice - in.UnitCost - r.SalesCost)
	if in.Quantity > 0 {
		qty := float64(in.Quantity)
		r.TemplateSpend = round2(in.MbMoneySpent / qty)
		r.SearchSpend = round2((in.OpMoneySpent + in.OpMoneySpentFromCPC) / qty)
	}
	r.NetProfit = round2(r.GrossMargin - r.TemplateSpend - r.SearchSpend)

	// 2. Channel unit counts. Natural units are the residual after the
	// attributed channels.
	r.TotalUnits = in.Quantity
	r.TemplateUnits = in.MbOrders + in.MbModels
	r.SearchUnits = in.OpOrders
	r.NaturalUnits = r.TotalUnits - r.TemplateUnits - r.SearchUnits

	// 3. Totals.
	qty := float64(in.Quantity)
	r.TotalSales = in.ShippedAmount
	r.TotalGoodsCost = round2(in.UnitCost * qty)
	r.TotalSalesCost = round2(r.SalesCost * qty)
	r.TotalTemplateSpend = round2(r.TemplateSpend * qty)
	r.TotalSearchSpend = round2(r.SearchSpend * qty)
	r.TotalNetProfit = round2(r.NetProfit * qty)
	r.TotalPayback = round2(r.TotalSales - r.TotalSalesCost - r.TotalTemplateSpend - r.TotalSearchSpend)

	// 4. Channel shares and rates.
	if r.TotalUnits > 0 {
		total := float64(r.TotalUnits)
		r.NaturalShare = round2(float64(r.NaturalUnits) / total * 100)
		r.TemplateShare = round2(float64(r.TemplateUnits) / total * 100)
		r.SearchShare = round2(float64(r.SearchUnits) / total * 100)
	}
	if in.AvgPrice > 0 {
		r.MarginRate = round4(r.GrossMargin / in.AvgPrice)
	}
	if r.TotalSales > 0 {
		r.DailyNetRate = round4(r.TotalNetProfit / r.TotalSales)
	}

	// 5. Safety stock quantity from the inventory table join.
	r.SafetyStockQty = int(in.Arrival7Days * in.DailySales)

	return r
}

// RollupAll runs Rollup over a joined table.
func RollupAll(rows []Input) []Result {
	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, Rollup(row))
	}
	return out
}
