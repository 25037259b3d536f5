// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is built once at process entry and passed by parameter into every
// component. There is no package-level instance.
type Config struct {
	LogLevel  string
	Mongo     MongoConfig
	Feishu    FeishuConfig
	Ozon      OzonConfig
	Cache     CacheConfig
	Shipping  ShippingConfig
	Inventory InventoryConfig
	Orders    OrdersConfig
	Ads       AdsConfig
	Pivot     PivotConfig
}

type MongoConfig struct {
	URI           string
	Database      string
	OrderColl     string
	AccrualColl   string
	OpColl        string
	MbColl        string
	OperationColl string
	ClusterColl   string
	SummaryColl   string
}

type FeishuConfig struct {
	AppID     string
	AppSecret string
	Domain    string

	BaseInfoTableURL      string
	OverseasTableURL      string
	InboundTableURL       string
	LocalTableURL         string
	PurchasedTableURL     string
	CostDetailTableURL    string
	StockPurchaseTableURL string
	OperationTableURL     string
	ShippingHourTableURL  string
	ClusterSafetyTableURL string
}

type OzonConfig struct {
	ClientID string
	APIKey   string
	BaseURL  string
}

type CacheConfig struct {
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

// ShippingConfig carries the fee-rule literals. Zero-value tables mean
// "use the built-in defaults" (shipping.DefaultRules).
type ShippingConfig struct {
	HourRules            map[int][2]float64
	LightSmallIDs        []string
	LightSmallFeePerUnit float64
	VolumeBrackets       [][3]float64 // low, high, fee; high >= 1e290 means unbounded
	RuleMode             string       // "auto" | "old" | "new"
	RuleBoundaryDay      string
}

type InventoryConfig struct {
	SafetyStockDays  int
	OverseasSafeDays int
	InboundSafeDays  int
}

type OrdersConfig struct {
	Windows      []int
	TopK         int
	PeakDaysBack int
	Timezone     string
}

type AdsConfig struct {
	MbExcludeField           string
	MbExcludeValues          []string
	MbExcludeCaseInsensitive bool
}

type PivotConfig struct {
	Port           string
	AllowedOrigins []string
}

// Load reads config.ini (if present) plus environment variables and returns
// the fully validated configuration. Required keys that are absent are
// reported together, by name.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("ini")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("ozon.base_url", "https://api-seller.ozon.ru")
	v.SetDefault("feishu.domain", "https://open.feishu.cn")
	v.SetDefault("mongodb.db_name", "ozondatas")
	v.SetDefault("mongodb.coll_name", "order_info")
	v.SetDefault("mongodb.accrual_coll", "ozon_accruals")
	v.SetDefault("mongodb.op_coll", "opcampaign")
	v.SetDefault("mongodb.mb_coll", "mbcampaign")
	v.SetDefault("mongodb.operation_coll", "operation_daily")
	v.SetDefault("mongodb.cluster_coll", "cluster_daily")
	v.SetDefault("mongodb.summary_coll", "sku_summary")
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("shippingcost.rule_mode", "auto")
	v.SetDefault("shippingcost.rule_boundary_date", "2025-09-01")
	v.SetDefault("shippingcost.light_small_fee_per_unit", 11.0)
	v.SetDefault("inventorytable.safe_days", 45)
	v.SetDefault("inventorytable.overseas_safe_days", 30)
	v.SetDefault("inventorytable.inbound_safe_days", 7)
	v.SetDefault("orders.windows", "7,14,28,60,90")
	v.SetDefault("orders.top_k", 3)
	v.SetDefault("orders.peak_days_back", 28)
	v.SetDefault("orders.timezone", "Asia/Seoul")
	v.SetDefault("ads.mb_exclude_case_insensitive", true)
	v.SetDefault("pivot.port", "8090")
	v.SetDefault("pivot.allowed_origins", "*")

	var missing []string
	require := func(key string) string {
		s := v.GetString(key)
		if strings.TrimSpace(s) == "" {
			missing = append(missing, key)
		}
		return s
	}

	cfg := &Config{
		LogLevel: v.GetString("log_level"),
		Mongo: MongoConfig{
			URI:           require("mongodb.mongo_uri"),
			Database:      v.GetString("mongodb.db_name"),
			OrderColl:     v.GetString("mongodb.coll_name"),
			AccrualColl:   v.GetString("mongodb.accrual_coll"),
			OpColl:        v.GetString("mongodb.op_coll"),
			MbColl:        v.GetString("mongodb.mb_coll"),
			OperationColl: v.GetString("mongodb.operation_coll"),
			ClusterColl:   v.GetString("mongodb.cluster_coll"),
			SummaryColl:   v.GetString("mongodb.summary_coll"),
		},
		Feishu: FeishuConfig{
			AppID:     require("feishu.app_id"),
			AppSecret: require("feishu.app_secret"),
			Domain:    v.GetString("feishu.domain"),

			BaseInfoTableURL:      v.GetString("feishu.baseinfo_table_url"),
			OverseasTableURL:      v.GetString("feishu.overseas_table_url"),
			InboundTableURL:       v.GetString("feishu.toucheng_table_url"),
			LocalTableURL:         v.GetString("feishu.local_table_url"),
			PurchasedTableURL:     v.GetString("feishu.purchased_table_url"),
			CostDetailTableURL:    v.GetString("feishu.cost_detail_table_url"),
			StockPurchaseTableURL: v.GetString("feishu.ozon_stock_purchase_table_url"),
			OperationTableURL:     v.GetString("feishu.operation_table_url"),
			ShippingHourTableURL:  v.GetString("feishu.shipping_hour_table_url"),
			ClusterSafetyTableURL: v.GetString("feishu.cluster_safety_table_url"),
		},
		Ozon: OzonConfig{
			ClientID: require("ozon.client_id"),
			APIKey:   require("ozon.api_key"),
			BaseURL:  v.GetString("ozon.base_url"),
		},
		Cache: CacheConfig{
			RedisURL:      v.GetString("redis.url"),
			RedisHost:     v.GetString("redis.host"),
			RedisPort:     v.GetString("redis.port"),
			RedisPassword: v.GetString("redis.password"),
			RedisDB:       v.GetInt("redis.db"),
		},
		Shipping: ShippingConfig{
			LightSmallFeePerUnit: v.GetFloat64("shippingcost.light_small_fee_per_unit"),
			RuleMode:             v.GetString("shippingcost.rule_mode"),
			RuleBoundaryDay:      v.GetString("shippingcost.rule_boundary_date"),
		},
		Inventory: InventoryConfig{
			SafetyStockDays:  v.GetInt("inventorytable.safe_days"),
			OverseasSafeDays: v.GetInt("inventorytable.overseas_safe_days"),
			InboundSafeDays:  v.GetInt("inventorytable.inbound_safe_days"),
		},
		Orders: OrdersConfig{
			TopK:         v.GetInt("orders.top_k"),
			PeakDaysBack: v.GetInt("orders.peak_days_back"),
			Timezone:     v.GetString("orders.timezone"),
		},
		Ads: AdsConfig{
			MbExcludeField:           v.GetString("ads.mb_exclude_field"),
			MbExcludeCaseInsensitive: v.GetBool("ads.mb_exclude_case_insensitive"),
		},
		Pivot: PivotConfig{
			Port:           v.GetString("pivot.port"),
			AllowedOrigins: splitList(v.GetString("pivot.allowed_origins")),
		},
	}

	windows, err := parseWindows(v.GetString("orders.windows"))
	if err != nil {
		return nil, err
	}
	cfg.Orders.Windows = windows
	cfg.Ads.MbExcludeValues = splitList(v.GetString("ads.mb_exclude_values"))

	if err := loadShippingTables(v, &cfg.Shipping); err != nil {
		return nil, err
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required config keys: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// loadShippingTables parses the optional JSON fee-table literals. Absent
// keys leave the zero value so the shipping package falls back to its
// built-in defaults.
func loadShippingTables(v *viper.Viper, sc *ShippingConfig) error {
	if raw := v.GetString("shippingcost.hour_rules"); raw != "" {
		var m map[string][2]float64
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return fmt.Errorf("invalid shippingcost.hour_rules: %w", err)
		}
		sc.HourRules = make(map[int][2]float64, len(m))
		for k, pair := range m {
			h, err := strconv.Atoi(k)
			if err != nil {
				return fmt.Errorf("invalid hour key %q in shippingcost.hour_rules", k)
			}
			sc.HourRules[h] = pair
		}
	}
	if raw := v.GetString("shippingcost.light_small_ozon_ids"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sc.LightSmallIDs); err != nil {
			return fmt.Errorf("invalid shippingcost.light_small_ozon_ids: %w", err)
		}
	}
	if raw := v.GetString("shippingcost.new_base_fee_brackets"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sc.VolumeBrackets); err != nil {
			return fmt.Errorf("invalid shippingcost.new_base_fee_brackets: %w", err)
		}
		for i := range sc.VolumeBrackets {
			if sc.VolumeBrackets[i][1] >= 1e290 {
				sc.VolumeBrackets[i][1] = math.Inf(1)
			}
		}
	}
	return nil
}

func parseWindows(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid window length %q in orders.windows", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("orders.windows must list at least one window length")
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
