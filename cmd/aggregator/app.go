package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feed_aggregator/internal/aggregator"
	"feed_aggregator/internal/config"
	"feed_aggregator/internal/db"
	"feed_aggregator/internal/fetcher"
	"feed_aggregator/internal/insight"
	"feed_aggregator/internal/logger"
	"feed_aggregator/internal/models"
	"feed_aggregator/internal/registry"
	"feed_aggregator/internal/server"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// App описывает CLI. Флаги можно задать через переменные окружения, например
// --config => AGGREGATOR_CONFIG=config.yaml.
func App() *cli.App {
	return &cli.App{
		Name:  "aggregator",
		Usage: "Merge several RSS/Atom feeds into one time-ordered timeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (.json, .yaml or .toml)",
				Value:   "config.json",
				EnvVars: []string{"AGGREGATOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level, overrides log_level from config",
				EnvVars: []string{"AGGREGATOR_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// .env необязателен
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			watchCmd(),
		},
	}
}

// services — всё, что нужно командам после загрузки конфигурации.
type services struct {
	cfg       *config.Config
	builder   *aggregator.Aggregator
	annotator *insight.KeywordAnnotator
	database  *db.Database
}

func (rt *services) Close() {
	if rt.database != nil {
		rt.database.Close()
	}
}

// setup загружает конфигурацию и собирает зависимости. Если logOut не nil,
// логи пишутся туда, а не в stdout.
func setup(c *cli.Context, logOut io.Writer) (*services, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger.Init(level)
	if logOut != nil {
		logger.Log.SetOutput(logOut)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rt := &services{cfg: cfg}

	sources := registry.ConfigSources(cfg)

	if cfg.DatabaseURL != "" {
		rt.database, err = db.NewDB(c.Context, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		fromDB, err := rt.database.ListSources(c.Context)
		if err != nil {
			rt.Close()
			return nil, err
		}
		logger.Log.WithField("sources", len(fromDB)).Info("Loaded sources from database")
		sources = append(sources, fromDB...)
	}

	reg, err := registry.New(sources...)
	if err != nil {
		rt.Close()
		return nil, err
	}

	f := fetcher.New(fetcher.Options{
		Timeout:    cfg.FetchTimeoutDuration(),
		MaxRetries: cfg.Retries(),
	})
	rt.builder = aggregator.New(reg, f, aggregator.WithDedupe(cfg.Dedupe))
	rt.annotator = insight.NewKeywordAnnotator(cfg.Insights)

	logger.Log.WithFields(logger.Fields{
		"sources":       reg.Len(),
		"fetch_timeout": cfg.FetchTimeoutDuration().String(),
		"max_retries":   cfg.Retries(),
	}).Info("Aggregator configured")

	return rt, nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the timeline over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "Listen address, overrides listen_addr from config",
				EnvVars: []string{"AGGREGATOR_LISTEN"},
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup(c, nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			defer logger.Log.Info("Application stopped")

			addr := rt.cfg.ListenAddr
			if c.IsSet("listen") {
				addr = c.String("listen")
			}

			var pinger server.Pinger
			if rt.database != nil {
				pinger = rt.database
			}
			srv := server.NewServer(rt.builder, rt.annotator, pinger)

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Log.Infof("Starting HTTP server on %s", addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			}

			logger.Log.Info("Shutting down...")
			ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()

			if err := httpServer.Shutdown(ctxShutdown); err != nil {
				return fmt.Errorf("forced shutdown: %w", err)
			}
			return nil
		},
	}
}

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Run one aggregation and print the timeline as JSON",
		Action: func(c *cli.Context) error {
			// stdout занят JSON-лентой
			rt, err := setup(c, c.App.ErrWriter)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			timeline := rt.builder.Build(ctx)

			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(server.TimelineResponse{
				GeneratedAt: timeline.GeneratedAt,
				Items:       insight.Attach(timeline, rt.annotator),
				Sources:     timeline.Sources,
			})
		},
	}
}

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Rebuild the timeline every poll_interval seconds and log a summary",
		Action: func(c *cli.Context) error {
			rt, err := setup(c, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			aggregator.StartPolling(ctx, rt.builder, rt.cfg.PollIntervalDuration(), func(tl models.Timeline) {
				entry := logger.Log.WithFields(logger.Fields{
					"items_count":    tl.Len(),
					"failed_sources": tl.FailedSources(),
				})
				if tl.Len() > 0 {
					entry = entry.WithField("latest", tl.Items[0].Title)
				}
				entry.Info("Timeline refreshed")
			})
			return nil
		},
	}
}
