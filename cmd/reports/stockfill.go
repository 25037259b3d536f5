package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"ozon-reports/internal/config"
	"ozon-reports/internal/feishu"
	"ozon-reports/internal/inventory"
	"ozon-reports/internal/ozon"
	"ozon-reports/internal/parse"
	"ozon-reports/internal/store"
	"ozon-reports/pkg/logger"
)

func stockFillCommand() *cli.Command {
	flags := append([]cli.Flag{newConfigFlag()}, newDateFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:  "dest-table",
			Usage: "Destination table link, overrides the configured stock-purchase table",
		},
		&cli.BoolFlag{
			Name:  "cluster",
			Usage: "Compute the per-delivery-cluster variant",
		},
	)
	return &cli.Command{
		Name:   "stockfill",
		Usage:  "Build the stock-purchase table from stock tiers and daily sales",
		Flags:  flags,
		Action: runStockFillAction,
	}
}

func runStockFillAction(c *cli.Context) error {
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
		destTable = cfg.Feishu.StockPurchaseTableURL
	}
	return runStockFill(c.Context, cfg, days, destTable, c.Bool("cluster"))
}

// stockTiers holds the per-SKU tier quantities assembled from the seller
// API and the collaboration tables.
type stockTiers struct {
	tiers      inventory.TierSet
	quantities map[string]map[inventory.Tier]float64 // Ozon ID -> tier -> qty
	// perCluster splits the FBO tiers by delivery cluster; filled only
	// for the cluster variant.
	perCluster map[string]map[string]map[inventory.Tier]float64 // cluster -> Ozon ID -> tier -> qty
}

func runStockFill(ctx context.Context, cfg *config.Config, days []string, destTable string, byCluster bool) error {
	fe := newFeishuClient(cfg)
	oz := ozon.NewClient(cfg.Ozon.BaseURL, cfg.Ozon.ClientID, cfg.Ozon.APIKey)

	client, err := store.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	defer disconnect(client)
	db := client.Database(cfg.Mongo.Database)

	baseRows, _, err := fe.SearchRowsByURL(ctx, cfg.Feishu.BaseInfoTableURL, feishu.SearchFilter{})
	if err != nil {
		return err
	}
	if err := feishu.RequireFields(baseRows, "Ozon ID"); err != nil {
		return err
	}

	stocks, err := collectStockTiers(ctx, cfg, fe, oz, byCluster)
	if err != nil {
		return err
	}

	var clusterNames []string
	var clusterSafety inventory.ClusterSafetyDays
	if byCluster {
		clusters, err := oz.ClusterList(ctx)
		if err != nil {
			return err
		}
		clusterNames = ozon.ClusterNames(clusters)
		clusterSafety, err = loadClusterSafety(ctx, cfg, fe)
		if err != nil {
			return err
		}
	}

	params := inventory.Params{
		SafetyStockDays:  cfg.Inventory.SafetyStockDays,
		OverseasSafeDays: cfg.Inventory.OverseasSafeDays,
		InboundSafeDays:  cfg.Inventory.InboundSafeDays,
	}

	var records []map[string]any
	for _, day := range days {
		if byCluster {
			recs, err := stockFillClusterDay(ctx, cfg, db, baseRows, stocks, clusterNames, clusterSafety, params, day)
			if err != nil {
				return err
			}
			records = append(records, recs...)
		} else {
			recs, err := stockFillDay(ctx, cfg, db, baseRows, stocks, params, day)
			if err != nil {
				return err
			}
			records = append(records, recs...)
		}
	}

	if err := fe.BatchCreateByURL(ctx, destTable, records); err != nil {
		return err
	}
	logger.Log.Info().Int("records", len(records)).Bool("cluster", byCluster).
		Msg("stock-purchase table written")
	return nil
}

// collectStockTiers assembles every configured stock tier. Tables that are
// not configured leave their tier absent rather than zero-filled.
func collectStockTiers(ctx context.Context, cfg *config.Config, fe *feishu.Client, oz *ozon.Client, byCluster bool) (*stockTiers, error) {
	st := &stockTiers{
		quantities: make(map[string]map[inventory.Tier]float64),
		perCluster: make(map[string]map[string]map[inventory.Tier]float64),
	}
	present := []inventory.Tier{inventory.TierFBOShelf, inventory.TierFBOCrossDock}

	stock, err := oz.StockOnWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	var warehouseCluster map[string]string
	if byCluster {
		clusters, err := oz.ClusterList(ctx)
		if err != nil {
			return nil, err
		}
		warehouseCluster = ozon.WarehouseClusterMap(clusters)
	}
	for _, row := range stock {
		sku := strconv.FormatInt(row.SKU, 10)
		st.add(sku, inventory.TierFBOShelf, row.FreeToSellAmount)
		st.add(sku, inventory.TierFBOCrossDock, row.PromisedAmount)
		if byCluster {
			cluster := warehouseCluster[row.WarehouseName]
			if cluster == "" {
				continue
			}
			st.addCluster(cluster, sku, inventory.TierFBOShelf, row.FreeToSellAmount)
			st.addCluster(cluster, sku, inventory.TierFBOCrossDock, row.PromisedAmount)
		}
	}

	if url := cfg.Feishu.OverseasTableURL; url != "" {
		if err := st.loadFnskuTable(ctx, fe, url, inventory.TierOverseas); err != nil {
			return nil, err
		}
		present = append(present, inventory.TierOverseas)
	}
	if url := cfg.Feishu.InboundTableURL; url != "" {
		if err := st.loadInboundTable(ctx, fe, url); err != nil {
			return nil, err
		}
		present = append(present, inventory.TierInboundFast, inventory.TierInboundSlow)
	}
	if url := cfg.Feishu.LocalTableURL; url != "" {
		if err := st.loadOzonIDTable(ctx, fe, url, inventory.TierLocal); err != nil {
			return nil, err
		}
		present = append(present, inventory.TierLocal)
	}
	if url := cfg.Feishu.PurchasedTableURL; url != "" {
		if err := st.loadOzonIDTable(ctx, fe, url, inventory.TierPurchased); err != nil {
			return nil, err
		}
		present = append(present, inventory.TierPurchased)
	}

	st.tiers = inventory.NewTierSet(present...)
	return st, nil
}

func (st *stockTiers) add(ozonID string, tier inventory.Tier, qty float64) {
	m := st.quantities[ozonID]
	if m == nil {
		m = make(map[inventory.Tier]float64)
		st.quantities[ozonID] = m
	}
	m[tier] += qty
}

func (st *stockTiers) addCluster(cluster, ozonID string, tier inventory.Tier, qty float64) {
	byID := st.perCluster[cluster]
	if byID == nil {
		byID = make(map[string]map[inventory.Tier]float64)
		st.perCluster[cluster] = byID
	}
	m := byID[ozonID]
	if m == nil {
		m = make(map[inventory.Tier]float64)
		byID[ozonID] = m
	}
	m[tier] += qty
}

// loadFnskuTable sums a table keyed by fnsku ("OZN"-prefixed Ozon ID) into
// one tier.
func (st *stockTiers) loadFnskuTable(ctx context.Context, fe *feishu.Client, url string, tier inventory.Tier) error {
	rows, _, err := fe.SearchRowsByURL(ctx, url, feishu.SearchFilter{})
	if err != nil {
		return err
	}
	for _, row := range rows {
		id := fnskuToOzonID(row.String("fnsku"))
		if id == "" {
			continue
		}
		st.add(id, tier, row.Float("数量"))
	}
	return nil
}

// loadInboundTable splits the inbound shipments by delivery channel: the
// 7-day channel is the fast tier, the regular channels the slow one.
func (st *stockTiers) loadInboundTable(ctx context.Context, fe *feishu.Client, url string) error {
	rows, _, err := fe.SearchRowsByURL(ctx, url, feishu.SearchFilter{})
	if err != nil {
		return err
	}
	for _, row := range rows {
		id := fnskuToOzonID(row.String("fnsku"))
		if id == "" {
			continue
		}
		tier := inventory.TierInboundSlow
		if row.String("渠道更新") == "7日达" {
			tier = inventory.TierInboundFast
		}
		st.add(id, tier, row.Float("数量"))
	}
	return nil
}

// loadOzonIDTable sums a table keyed directly by Ozon ID into one tier.
func (st *stockTiers) loadOzonIDTable(ctx context.Context, fe *feishu.Client, url string, tier inventory.Tier) error {
	rows, _, err := fe.SearchRowsByURL(ctx, url, feishu.SearchFilter{})
	if err != nil {
		return err
	}
	if err := feishu.RequireFields(rows, "Ozon ID"); err != nil {
		return err
	}
	for _, row := range rows {
		id := row.String("Ozon ID")
		if id == "" {
			continue
		}
		st.add(id, tier, row.Float("数量"))
	}
	return nil
}

func fnskuToOzonID(fnsku string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(fnsku), "OZN"))
}

// salesByID reads the per-SKU daily-sales estimates the orders pipeline
// published for one day.
func salesByID(ctx context.Context, cfg *config.Config, db *mongo.Database, day string) (map[string][2]float64, error) {
	docs, err := store.FetchAll(ctx, db.Collection(cfg.Mongo.SummaryColl), nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string][2]float64)
	for _, doc := range docs {
		if parse.Stringify(doc["日期"]) != day {
			continue
		}
		id := parse.Stringify(doc["Ozon ID"])
		daily := parse.Float(parse.Stringify(doc["daily_sales"]))
		peak := parse.Float(parse.Stringify(doc["max_daily_sales"]))
		out[id] = [2]float64{daily, peak}
	}
	return out, nil
}

// clusterSalesByID does the same against the per-cluster detail.
func clusterSalesByID(ctx context.Context, cfg *config.Config, db *mongo.Database, day string) (map[string]map[string]float64, error) {
	docs, err := store.FetchAll(ctx, db.Collection(cfg.Mongo.ClusterColl), nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]float64)
	for _, doc := range docs {
		if parse.Stringify(doc["日期"]) != day {
			continue
		}
		cluster := parse.Stringify(doc["配送集群"])
		id := parse.Stringify(doc["Ozon ID"])
		byID := out[cluster]
		if byID == nil {
			byID = make(map[string]float64)
			out[cluster] = byID
		}
		byID[id] += parse.Float(parse.Stringify(doc["daily_sales"]))
	}
	return out, nil
}

func stockFillDay(ctx context.Context, cfg *config.Config, db *mongo.Database, baseRows []feishu.Row, stocks *stockTiers, params inventory.Params, day string) ([]map[string]any, error) {
	sales, err := salesByID(ctx, cfg, db, day)
	if err != nil {
		return nil, err
	}

	rows := make([]inventory.SKURow, 0, len(baseRows))
	for _, base := range baseRows {
		id := base.String("Ozon ID")
		s := sales[id]
		rows = append(rows, inventory.SKURow{
			OzonID:      id,
			ProductCode: base.String("货号"),
			Quantities:  stocks.quantities[id],
			DailySales:  s[0],
			Peak28Sales: s[1],
		})
	}

	engine := inventory.NewEngine(stocks.tiers, params)
	metrics, err := engine.ComputeAll(rows)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(rows))
	for i, row := range rows {
		records = append(records, stockRecord(day, "", row, metrics[i], stocks.tiers))
	}
	return records, nil
}

func stockFillClusterDay(ctx context.Context, cfg *config.Config, db *mongo.Database, baseRows []feishu.Row, stocks *stockTiers, clusterNames []string, safety inventory.ClusterSafetyDays, params inventory.Params, day string) ([]map[string]any, error) {
	sales, err := clusterSalesByID(ctx, cfg, db, day)
	if err != nil {
		return nil, err
	}

	skuRows := make([]inventory.SKURow, 0, len(baseRows))
	for _, base := range baseRows {
		skuRows = append(skuRows, inventory.SKURow{
			OzonID:      base.String("Ozon ID"),
			ProductCode: base.String("货号"),
		})
	}
	crossed, err := inventory.CrossJoinClusters(skuRows, clusterNames)
	if err != nil {
		return nil, err
	}

	// The FBO tiers split per cluster; the downstream tiers are shared
	// stock and repeat on every cluster row.
	for i := range crossed {
		row := &crossed[i]
		for tier, qty := range stocks.quantities[row.OzonID] {
			if tier == inventory.TierFBOShelf || tier == inventory.TierFBOCrossDock {
				continue
			}
			row.Quantities[tier] = qty
		}
		if byID := stocks.perCluster[row.Cluster]; byID != nil {
			for tier, qty := range byID[row.OzonID] {
				row.Quantities[tier] = qty
			}
		}
		row.DailySales = sales[row.Cluster][row.OzonID]
	}

	engine := inventory.NewEngine(inventory.ClusterTiers(), params)
	metrics, err := engine.ComputeAllClusters(crossed, safety)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(crossed))
	for i, row := range crossed {
		rec := stockRecord(day, row.Cluster, inventory.CombineFBO(row.SKURow), metrics[i], inventory.ClusterTiers())
		records = append(records, rec)
	}
	return records, nil
}

// loadClusterSafety reads the per-cluster safety-day overrides.
func loadClusterSafety(ctx context.Context, cfg *config.Config, fe *feishu.Client) (inventory.ClusterSafetyDays, error) {
	if cfg.Feishu.ClusterSafetyTableURL == "" {
		return nil, nil
	}
	rows, _, err := fe.SearchRowsByURL(ctx, cfg.Feishu.ClusterSafetyTableURL, feishu.SearchFilter{})
	if err != nil {
		return nil, err
	}
	out := make(inventory.ClusterSafetyDays, len(rows))
	for _, row := range rows {
		cluster := row.String("配送集群")
		if cluster == "" {
			continue
		}
		out[cluster] = int(row.Float("安全库存天数"))
	}
	return out, nil
}

var tierColumns = map[inventory.Tier][2]string{
	inventory.TierFBOShelf:     {"FBO上架数量(万)", "FBO可售天数"},
	inventory.TierFBOCrossDock: {"FBO越库在途数量(万)", "越库可售天数"},
	inventory.TierOverseas:     {"海外仓在途数量(万)", "海外仓可售天数"},
	inventory.TierInboundFast:  {"7日达在途数量(万)", "7日到达可售天数"},
	inventory.TierInboundSlow:  {"普快在途数量(万)", "普快可售天数"},
	inventory.TierLocal:        {"本地仓数量(万)", "本地仓可售天数"},
	inventory.TierPurchased:    {"已采购数量(万)", "已采购可售天数"},
}

func stockRecord(day, cluster string, row inventory.SKURow, m inventory.Metrics, tiers inventory.TierSet) map[string]any {
	rec := map[string]any{
		"日期":      day,
		"Ozon ID": row.OzonID,
		"货号":      row.ProductCode,
		"每日销量":    row.DailySales,
		"总可售天数":   m.TotalCover,
		"需采购数量":   m.RequiredPurchase,
		"可推广数量":   m.Promotable,
	}
	if cluster != "" {
		rec["配送集群"] = cluster
	} else {
		rec["28天峰值销量"] = row.Peak28Sales
	}
	for _, tier := range tiers.Ordered() {
		cols := tierColumns[tier]
		rec[cols[0]] = row.Quantities[tier]
		rec[cols[1]] = m.Cover[tier]
	}
	return rec
}
