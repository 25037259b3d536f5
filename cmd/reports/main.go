package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"ozon-reports/internal/config"
	"ozon-reports/internal/feishu"
	"ozon-reports/internal/parse"
	"ozon-reports/internal/shipping"
	"ozon-reports/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "reports",
		Usage: "Generate the marketplace business reports",
		Commands: []*cli.Command{
			ordersCommand(),
			stockFillCommand(),
			financeCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}

func newConfigFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the ini config file",
		Value:   "config.ini",
		EnvVars: []string{"REPORTS_CONFIG"},
	}
}

func newDateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "date",
			Usage: "Report day YYYY-MM-DD, repeatable",
		},
		&cli.StringFlag{
			Name:  "from",
			Usage: "First day of an inclusive day range",
		},
		&cli.StringFlag{
			Name:  "to",
			Usage: "Last day of an inclusive day range",
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// resolveDays turns the --date / --from / --to flags into a sorted list of
// canonical day keys.
func resolveDays(c *cli.Context) ([]string, error) {
	var days []string
	for _, raw := range c.StringSlice("date") {
		d := parse.Day(raw)
		if d == "" {
			return nil, fmt.Errorf("invalid date %q", raw)
		}
		days = append(days, d)
	}
	if from, to := c.String("from"), c.String("to"); from != "" || to != "" {
		if from == "" || to == "" {
			return nil, fmt.Errorf("--from and --to must be given together")
		}
		ranged, err := parse.DayRange(parse.Day(from), parse.Day(to))
		if err != nil {
			return nil, err
		}
		days = append(days, ranged...)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no report days given, use --date or --from/--to")
	}

	seen := make(map[string]bool, len(days))
	uniq := days[:0]
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			uniq = append(uniq, d)
		}
	}
	sort.Strings(uniq)
	return uniq, nil
}

func newFeishuClient(cfg *config.Config) *feishu.Client {
	return feishu.NewClient(cfg.Feishu.Domain, cfg.Feishu.AppID, cfg.Feishu.AppSecret, newTokenCache(cfg))
}

// newTokenCache prefers redis so parallel report runs share one tenant
// token. A cache read failure degrades to a fresh token fetch.
func newTokenCache(cfg *config.Config) feishu.TokenCache {
	if cfg.Cache.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("invalid redis url, using in-process token cache")
			return nil
		}
		return feishu.NewRedisTokenCache(redis.NewClient(opts))
	}
	if cfg.Cache.RedisHost == "" {
		return nil
	}
	return feishu.NewRedisTokenCache(redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisHost + ":" + cfg.Cache.RedisPort,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	}))
}

func shippingRules(cfg *config.Config) shipping.Rules {
	ids := make(map[string]bool, len(cfg.Shipping.LightSmallIDs))
	for _, id := range cfg.Shipping.LightSmallIDs {
		ids[id] = true
	}
	if len(ids) == 0 {
		ids = nil
	}
	return shipping.Rules{
		HourRules:            cfg.Shipping.HourRules,
		LightSmallIDs:        ids,
		LightSmallFeePerUnit: cfg.Shipping.LightSmallFeePerUnit,
		VolumeBrackets:       cfg.Shipping.VolumeBrackets,
		RuleMode:             cfg.Shipping.RuleMode,
		BoundaryDay:          cfg.Shipping.RuleBoundaryDay,
	}
}

func disconnect(client *mongo.Client) {
	if err := client.Disconnect(context.Background()); err != nil {
		logger.Log.Warn().Err(err).Msg("mongo disconnect failed")
	}
}
