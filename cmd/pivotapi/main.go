package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"ozon-reports/internal/config"
	"ozon-reports/internal/pivot"
	"ozon-reports/internal/store"
	"ozon-reports/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "pivotapi",
		Usage: "Serve the read-only pivot query API over the campaign collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the ini config file",
				Value:   "config.ini",
				EnvVars: []string{"REPORTS_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:    "collection",
				Usage:   "Collection to expose, repeatable",
				EnvVars: []string{"PIVOT_COLLECTIONS"},
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("server failed")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := store.Connect(c.Context, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	allowed := c.StringSlice("collection")
	if len(allowed) == 0 {
		allowed = []string{cfg.Mongo.MbColl, cfg.Mongo.OpColl}
	}
	service := pivot.NewService(client.Database(cfg.Mongo.Database), allowed)

	srv := &http.Server{
		Addr:         ":" + cfg.Pivot.Port,
		Handler:      pivot.NewRouter(service, cfg.Pivot.AllowedOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Pivot.Port).Strs("collections", allowed).
			Msg("starting pivot api")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
