package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"ozon-reports/internal/config"
	"ozon-reports/internal/orders"
	"ozon-reports/internal/parse"
	"ozon-reports/internal/store"
	"ozon-reports/pkg/logger"
)

func ordersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "Summarize order windows, daily sales and the 28-day peak per SKU",
		Flags: append([]cli.Flag{newConfigFlag()}, newDateFlags()...),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			days, err := resolveDays(c)
			if err != nil {
				return err
			}
			return runOrders(c.Context, cfg, days)
		},
	}
}

func runOrders(ctx context.Context, cfg *config.Config, refDays []string) error {
	client, err := store.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	defer disconnect(client)

	db := client.Database(cfg.Mongo.Database)
	reader := store.NewOrderReader(db.Collection(cfg.Mongo.OrderColl))
	gen := orders.NewSummaryGenerator(orders.SummaryConfig{
		Windows:      cfg.Orders.Windows,
		TopK:         cfg.Orders.TopK,
		PeakDaysBack: cfg.Orders.PeakDaysBack,
	})

	maxWindow := 0
	for _, w := range cfg.Orders.Windows {
		if w > maxWindow {
			maxWindow = w
		}
	}
	if cfg.Orders.PeakDaysBack > maxWindow {
		maxWindow = cfg.Orders.PeakDaysBack
	}

	for _, refDay := range refDays {
		logger.Log.Info().Str("day", refDay).Msg("building order summary")

		refTime, err := parse.DayTime(refDay)
		if err != nil {
			return err
		}
		fromDay := refTime.AddDate(0, 0, -(maxWindow - 1)).Format("2006-01-02")
		scanDays, err := parse.DayRange(fromDay, refDay)
		if err != nil {
			return err
		}
		lines, err := reader.Lines(ctx, scanDays)
		if err != nil {
			return err
		}

		summary, err := gen.BySKUAndOzonID(lines, refDay)
		if err != nil {
			return err
		}
		detail, err := gen.BySKUOzonIDAndCluster(lines, refDay)
		if err != nil {
			return err
		}

		summaryRecords := summaryToRecords(summary, refDay, cfg.Orders.Windows, true)
		inserted, dups, err := store.InsertDedup(ctx, db.Collection(cfg.Mongo.SummaryColl),
			summaryRecords, []string{"日期", "货号", "Ozon ID"})
		if err != nil {
			return err
		}
		logger.Log.Info().Str("day", refDay).Int("inserted", inserted).Int("duplicates", dups).
			Msg("per-SKU summary written")

		detailRecords := summaryToRecords(detail, refDay, cfg.Orders.Windows, false)
		inserted, dups, err = store.InsertDedup(ctx, db.Collection(cfg.Mongo.ClusterColl),
			detailRecords, []string{"日期", "货号", "Ozon ID", "配送集群"})
		if err != nil {
			return err
		}
		logger.Log.Info().Str("day", refDay).Int("inserted", inserted).Int("duplicates", dups).
			Msg("per-cluster detail written")
	}
	return nil
}

// summaryToRecords flattens summary rows into day-stamped documents. The
// cluster detail skips the peak column because the peak stage is not run
// for cluster groupings.
func summaryToRecords(rows []orders.SummaryRow, refDay string, windows []int, withPeak bool) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		rec := map[string]any{
			"日期":          refDay,
			"货号":          row.Key.ProductCode,
			"Ozon ID":     row.Key.OzonID,
			"daily_sales": row.DailySales,
		}
		if row.Key.Cluster != "" || !withPeak {
			rec["配送集群"] = row.Key.Cluster
		}
		if withPeak {
			rec["max_daily_sales"] = row.MaxDailySales
		}
		for _, w := range windows {
			rec[fmt.Sprintf("sum_%d", w)] = row.Sums[w]
		}
		out = append(out, rec)
	}
	return out
}
