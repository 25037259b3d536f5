package main

import (
	"context"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"ozon-reports/internal/ads"
	"ozon-reports/internal/config"
	"ozon-reports/internal/feishu"
	"ozon-reports/internal/finance"
	"ozon-reports/internal/orders"
	"ozon-reports/internal/ozon"
	"ozon-reports/internal/shipping"
	"ozon-reports/internal/store"
	"ozon-reports/pkg/logger"
)

func financeCommand() *cli.Command {
	flags := append([]cli.Flag{newConfigFlag()}, newDateFlags()...)
	flags = append(flags, &cli.StringFlag{
		Name:  "dest-table",
		Usage: "Destination table link, overrides the configured operations table",
	})
	return &cli.Command{
		Name:  "finance",
		Usage: "Roll costs, logistics fees and ad spend up into the daily operations report",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			days, err := resolveDays(c)
			if err != nil {
				return err
			}
			destTable := c.String("dest-table")
			if destTable == "" {
				destTable = cfg.Feishu.OperationTableURL
			}
			return runFinance(c.Context, cfg, days, destTable)
		},
	}
}

// costRow is the per-SKU pricing data joined from the cost detail table.
type costRow struct {
	deduction float64
	fixedFee  float64
	unitCost  float64
}

// safetyRow is the per-(day, SKU) slice of the stock-purchase table the
// safety-stock columns come from.
type safetyRow struct {
	arrival7Days float64
	dailySales   float64
}

type dayID struct {
	day string
	id  string
}

func runFinance(ctx context.Context, cfg *config.Config, days []string, destTable string) error {
	fe := newFeishuClient(cfg)
	oz := ozon.NewClient(cfg.Ozon.BaseURL, cfg.Ozon.ClientID, cfg.Ozon.APIKey)

	client, err := store.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	defer disconnect(client)
	db := client.Database(cfg.Mongo.Database)

	orderReader := store.NewOrderReader(db.Collection(cfg.Mongo.OrderColl))
	accrualReader := store.NewAccrualReader(db.Collection(cfg.Mongo.AccrualColl))

	// 1) order lines and the accrued logistics per shipment
	lines, err := orderReader.Lines(ctx, days)
	if err != nil {
		return err
	}
	actuals, err := accrualReader.LogisticsByShipment(ctx, days)
	if err != nil {
		return err
	}

	// 2) per-day average delivery hours, from the hour table when one is
	// configured, otherwise derived from the accrual ledger
	hoursByDay, err := resolveHours(ctx, cfg, fe, accrualReader, days)
	if err != nil {
		return err
	}

	// 3) packed volumes for the fallback fee schedule
	volumes, err := oz.ProductVolumes(ctx)
	if err != nil {
		return err
	}
	volumeByID := make(map[string]float64, len(volumes))
	for _, v := range volumes {
		volumeByID[strconv.FormatInt(v.SKU, 10)] = v.VolumeLiters
	}

	// 4) logistics fees per (day, Ozon ID)
	calc := shipping.NewCalculator(shippingRules(cfg))
	fees, err := calc.GroupFees(shipLines(lines, volumeByID, actuals), hoursByDay)
	if err != nil {
		return err
	}

	// 5) pricing data
	costs, err := loadCosts(ctx, cfg, fe)
	if err != nil {
		return err
	}

	// 6) campaign aggregates
	merged, mbSeen, opSeen, err := loadAds(ctx, cfg, db, days)
	if err != nil {
		return err
	}
	columns := []string{"quantity"}
	if mbSeen {
		columns = append(columns, "mb_orders", "mb_models")
	}
	if opSeen {
		columns = append(columns, "op_orders")
	}
	if err := finance.RequireColumns(columns); err != nil {
		return err
	}

	// 7) safety-stock inputs from the stock-purchase table
	safety, err := loadSafety(ctx, cfg, fe, days)
	if err != nil {
		return err
	}

	inputs := make([]finance.Input, 0, len(fees))
	for _, g := range fees {
		cost := costs[g.OzonID]
		ad := merged[dayID{g.Day, g.OzonID}]
		sf := safety[dayID{g.Day, g.OzonID}]
		inputs = append(inputs, finance.Input{
			Day:           g.Day,
			OzonID:        g.OzonID,
			Quantity:      g.Quantity,
			ShippedAmount: g.ShippedAmount,
			AvgPrice:      g.AvgPrice,
			AvgLogistics:  g.AvgFee,

			Deduction: cost.deduction,
			FixedFee:  cost.fixedFee,
			UnitCost:  cost.unitCost,

			MbMoneySpent:        ad.MbMoneySpent,
			OpMoneySpent:        ad.OpMoneySpent,
			OpMoneySpentFromCPC: ad.OpMoneySpentFromCPC,
			MbOrders:            int(ad.MbOrders),
			MbModels:            int(ad.MbModels),
			OpOrders:            int(ad.OpOrders),

			Arrival7Days: sf.arrival7Days,
			DailySales:   sf.dailySales,
		})
	}

	results := finance.RollupAll(inputs)
	records := make([]map[string]any, 0, len(results))
	for _, r := range results {
		records = append(records, operationRecord(r))
	}

	inserted, dups, err := store.InsertDedup(ctx, db.Collection(cfg.Mongo.OperationColl),
		records, []string{"日期", "Ozon ID"})
	if err != nil {
		return err
	}
	logger.Log.Info().Int("inserted", inserted).Int("duplicates", dups).
		Msg("operations report stored")

	if err := fe.BatchCreateByURL(ctx, destTable, records); err != nil {
		return err
	}
	logger.Log.Info().Int("records", len(records)).Msg("operations table written")
	return nil
}

func shipLines(lines []orders.Line, volumeByID map[string]float64, actuals map[string]float64) []shipping.ShipLine {
	out := make([]shipping.ShipLine, 0, len(lines))
	for _, l := range lines {
		vol, known := volumeByID[l.OzonID]
		out = append(out, shipping.ShipLine{
			Day:             l.Day,
			ShipmentID:      l.ShipmentID,
			OzonID:          l.OzonID,
			Quantity:        int(l.Quantity),
			ShippedAmount:   l.ShippedAmount,
			Volume:          vol,
			VolumeKnown:     known,
			ActualLogistics: actuals[l.ShipmentID],
		})
	}
	return out
}

func resolveHours(ctx context.Context, cfg *config.Config, fe *feishu.Client, accruals *store.AccrualReader, days []string) (map[string]int, error) {
	if cfg.Feishu.ShippingHourTableURL != "" {
		rows, _, err := fe.SearchRowsByURL(ctx, cfg.Feishu.ShippingHourTableURL, feishu.SearchFilter{})
		if err != nil {
			return nil, err
		}
		loc, err := time.LoadLocation(cfg.Orders.Timezone)
		if err != nil {
			return nil, err
		}
		table := make(map[string]int, len(rows))
		for _, row := range rows {
			day := row.Day("日期", loc)
			if day == "" {
				continue
			}
			table[day] = int(row.Float("平均配送时效"))
		}
		return shipping.HoursForDates(table, days)
	}

	samples, err := accruals.HoursSamples(ctx, days)
	if err != nil {
		return nil, err
	}
	return shipping.DailyAvgHours(samples, days)
}

func loadCosts(ctx context.Context, cfg *config.Config, fe *feishu.Client) (map[string]costRow, error) {
	rows, _, err := fe.SearchRowsByURL(ctx, cfg.Feishu.CostDetailTableURL, feishu.SearchFilter{})
	if err != nil {
		return nil, err
	}
	if err := feishu.RequireFields(rows, "Ozon ID", "总扣点", "平台总固定费", "成本|卢布"); err != nil {
		return nil, err
	}
	out := make(map[string]costRow, len(rows))
	for _, row := range rows {
		id := row.String("Ozon ID")
		if id == "" {
			continue
		}
		out[id] = costRow{
			deduction: row.Float("总扣点"),
			fixedFee:  row.Float("平台总固定费"),
			unitCost:  row.Float("成本|卢布"),
		}
	}
	return out, nil
}

func loadAds(ctx context.Context, cfg *config.Config, db *mongo.Database, days []string) (map[dayID]ads.Merged, bool, bool, error) {
	opDocs, err := store.FetchAll(ctx, db.Collection(cfg.Mongo.OpColl), nil)
	if err != nil {
		return nil, false, false, err
	}
	mbDocs, err := store.FetchAll(ctx, db.Collection(cfg.Mongo.MbColl), nil)
	if err != nil {
		return nil, false, false, err
	}

	op := ads.AggregateOp(opDocs)
	mb := ads.AggregateMb(mbDocs, ads.ExcludeFilter{
		Field:           cfg.Ads.MbExcludeField,
		Values:          cfg.Ads.MbExcludeValues,
		CaseInsensitive: cfg.Ads.MbExcludeCaseInsensitive,
	})

	wanted := make(map[string]bool, len(days))
	for _, d := range days {
		wanted[d] = true
	}
	out := make(map[dayID]ads.Merged)
	for _, m := range ads.Merge(op, mb) {
		if wanted[m.Day] {
			out[dayID{m.Day, m.SKU}] = m
		}
	}
	return out, len(mb) > 0, len(op) > 0, nil
}

func loadSafety(ctx context.Context, cfg *config.Config, fe *feishu.Client, days []string) (map[dayID]safetyRow, error) {
	if cfg.Feishu.StockPurchaseTableURL == "" {
		return map[dayID]safetyRow{}, nil
	}
	rows, _, err := fe.SearchRowsByURL(ctx, cfg.Feishu.StockPurchaseTableURL, feishu.SearchFilter{})
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Orders.Timezone)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(days))
	for _, d := range days {
		wanted[d] = true
	}
	out := make(map[dayID]safetyRow)
	for _, row := range rows {
		day := row.Day("日期", loc)
		if !wanted[day] {
			continue
		}
		out[dayID{day, row.String("Ozon ID")}] = safetyRow{
			arrival7Days: row.Float("7日到达可售天数"),
			dailySales:   row.Float("每日销量"),
		}
	}
	return out, nil
}

func operationRecord(r finance.Result) map[string]any {
	return map[string]any{
		"日期":      r.Day,
		"Ozon ID": r.OzonID,

		"销售成本": r.SalesCost,
		"毛利":   r.GrossMargin,
		"模板花费": r.TemplateSpend,
		"搜索花费": r.SearchSpend,
		"盈亏":   r.NetProfit,

		"总销量":  r.TotalUnits,
		"模板销量": r.TemplateUnits,
		"搜索销量": r.SearchUnits,
		"自然销量": r.NaturalUnits,

		"总销售额":  r.TotalSales,
		"总货物成本": r.TotalGoodsCost,
		"总销售成本": r.TotalSalesCost,
		"总模板花费": r.TotalTemplateSpend,
		"总搜索花费": r.TotalSearchSpend,
		"总盈亏":   r.TotalNetProfit,
		"总回款":   r.TotalPayback,

		"自然占比": r.NaturalShare,
		"模板占比": r.TemplateShare,
		"搜索占比": r.SearchShare,
		"毛利率":  r.MarginRate,
		"每日盈亏": r.DailyNetRate,

		"库存数量": r.SafetyStockQty,
	}
}
