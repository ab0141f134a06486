package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"github.com/xaenox/filter-bot/internal/bot"
	"github.com/xaenox/filter-bot/internal/enforcement"
	"github.com/xaenox/filter-bot/internal/metrics"
	"github.com/xaenox/filter-bot/internal/moderation"
	"github.com/xaenox/filter-bot/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args); err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("Exiting", zap.Error(err))
	}
}

func run(args []string) error {
	app := cli.App{
		Name:  "filter-bot",
		Usage: "Telegram moderation bot backed by an LLM classifier",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to an optional YAML config file",
				EnvVars: []string{"MODBOT_CONFIG"},
			},
		},
		Action: runBot,
		Commands: []*cli.Command{
			classifyCmd,
		},
	}
	return app.Run(args)
}

func runBot(cctx *cli.Context) error {
	cfg, err := config.LoadConfig(cctx.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(bot.Config{
		Token:       cfg.Telegram.Token,
		Timeout:     cfg.Telegram.Timeout,
		PollTimeout: cfg.Telegram.PollTimeout,
	}, logger.Named("bot"))
	if err != nil {
		return err
	}

	taxonomy, err := newTaxonomy(cfg)
	if err != nil {
		return err
	}

	sink, closeStore, err := newAuditSink(ctx, cfg, b, logger.Named("audit"))
	if err != nil {
		return err
	}
	defer closeStore()

	verdictCache, closeCache := newVerdictCache(ctx, cfg, logger)
	defer closeCache()

	pipeline := moderation.NewPipeline(moderation.Config{
		Oracle:          newOracle(cfg, taxonomy, logger.Named("oracle")),
		Taxonomy:        taxonomy,
		Enforcer:        enforcement.NewExecutor(b, cfg.Moderation.DeleteMessage, cfg.Moderation.BanMember, logger.Named("enforcement")),
		Audit:           sink,
		Cache:           verdictCache,
		AnalyzeCaptions: cfg.Moderation.AnalyzeCaptions,
		OracleTimeout:   cfg.Oracle.Timeout,
	}, logger.Named("pipeline"))

	logger.Info("Bot is running",
		zap.String("environment", cfg.Environment),
		zap.String("audit_mode", string(sink.Mode())),
		zap.String("oracle", cfg.Oracle.Provider),
		zap.Strings("labels", taxonomy.Labels()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Start(ctx, pipeline)
	})

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("Serving metrics", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("Bot stopped")
	return err
}

var classifyCmd = &cli.Command{
	Name:      "classify",
	Usage:     "classify text with the configured oracle and print the verdict",
	ArgsUsage: "<text>",
	Action: func(cctx *cli.Context) error {
		text := cctx.Args().First()
		if text == "" {
			return cli.Exit("text argument is required", 2)
		}

		cfg, err := config.LoadConfig(cctx.String("config"))
		if err != nil {
			return err
		}
		if err := cfg.ValidateClassifier(); err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()

		taxonomy, err := newTaxonomy(cfg)
		if err != nil {
			return err
		}
		oracle := newOracle(cfg, taxonomy, logger)
		if !oracle.Available() {
			return cli.Exit("oracle is not configured (set ORACLE_API_KEY)", 1)
		}

		ctx, cancel := context.WithTimeout(cctx.Context, cfg.Oracle.Timeout)
		defer cancel()
		raw, err := oracle.Classify(ctx, text)
		if err != nil {
			return err
		}
		verdict, err := taxonomy.Parse(raw)
		if err != nil {
			return err
		}

		fmt.Fprintf(cctx.App.Writer, "verdict: %s\nabusive: %t\nraw: %s\n", verdict.Label, verdict.Abusive, raw)
		return nil
	},
}
