package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xaenox/filter-bot/internal/audit"
	"github.com/xaenox/filter-bot/internal/cache"
	"github.com/xaenox/filter-bot/internal/classifier"
	"github.com/xaenox/filter-bot/internal/storage"
	"github.com/xaenox/filter-bot/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func newTaxonomy(cfg *config.Config) (*classifier.Taxonomy, error) {
	safe := classifier.Category{
		Label:       cfg.Classifier.Safe.Label,
		Description: cfg.Classifier.Safe.Description,
	}
	abusive := make([]classifier.Category, 0, len(cfg.Classifier.Categories))
	for _, c := range cfg.Classifier.Categories {
		abusive = append(abusive, classifier.Category{
			Label:       c.Label,
			Description: c.Description,
			Keywords:    c.Keywords,
		})
	}
	return classifier.NewTaxonomy(safe, abusive, cfg.Oracle.StrictLabels)
}

func newOracle(cfg *config.Config, taxonomy *classifier.Taxonomy, logger *zap.Logger) classifier.Classifier {
	if cfg.Oracle.Provider == "keywords" {
		logger.Info("Using keyword classifier")
		return classifier.NewKeywordClassifier(taxonomy)
	}
	return classifier.NewGPTClassifier(classifier.GPTConfig{
		APIKey:      cfg.Oracle.APIKey,
		BaseURL:     cfg.Oracle.BaseURL,
		Model:       cfg.Oracle.Model,
		MaxTokens:   cfg.Oracle.MaxTokens,
		Temperature: cfg.Oracle.Temperature,
		Timeout:     cfg.Oracle.Timeout,
	}, taxonomy, logger)
}

// newAuditSink opens the store for the selected mode. The returned func
// closes it.
func newAuditSink(ctx context.Context, cfg *config.Config, notifier audit.Notifier, logger *zap.Logger) (*audit.Sink, func(), error) {
	mode, err := audit.ParseMode(cfg.AuditMode())
	if err != nil {
		return nil, nil, err
	}

	var store storage.AuditStorage
	switch mode {
	case audit.ModeFile:
		var csvStore *storage.CSVStorage
		if csvStore, err = storage.NewCSVStorage(cfg.Audit.File); err == nil {
			logger.Info("Using CSV audit log", zap.String("path", csvStore.Path()))
			store = csvStore
		}
	case audit.ModePostgres:
		logger.Info("Using PostgreSQL audit log", zap.String("host", cfg.Database.Host))
		store, err = storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize audit storage: %w", err)
	}

	sink, err := audit.NewSink(audit.Config{
		Mode:     mode,
		Store:    store,
		Notifier: notifier,
		Channel:  cfg.Audit.Channel,
		Timeout:  cfg.Audit.Timeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	closeStore := func() {
		if store == nil {
			return
		}
		if err := store.Close(); err != nil {
			logger.Error("Failed to close audit storage", zap.Error(err))
		}
	}
	return sink, closeStore, nil
}

// newVerdictCache falls back to the in-memory cache when Redis is unreachable.
func newVerdictCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.VerdictCache, func()) {
	noop := func() {}

	switch cfg.Cache.Backend {
	case "none":
		return nil, noop
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis not available, using in-memory verdict cache",
				zap.Error(err),
				zap.String("addr", cfg.Cache.RedisAddr))
			client.Close()
			break
		}
		logger.Info("Using Redis verdict cache", zap.String("addr", cfg.Cache.RedisAddr))
		return cache.NewRedisCache(client, cfg.Cache.TTL), func() { client.Close() }
	}
	return cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL), noop
}
