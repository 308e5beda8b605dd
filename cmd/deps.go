package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/resource-recommender/internal/ai/gemini"
	"github.com/spigell/resource-recommender/internal/airtable"
	"github.com/spigell/resource-recommender/internal/logger"
	"github.com/spigell/resource-recommender/internal/resources"
	"github.com/spigell/resource-recommender/internal/secrets"
	"go.uber.org/zap"
)

// newService builds the store client and the model client once and wires
// them into the recommendation service.
func newService(ctx context.Context, config *Config, log *zap.Logger) (*resources.Service, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	store, err := newStore(config.Store, log)
	if err != nil {
		return nil, fmt.Errorf("building airtable client: %w", err)
	}

	recommender, err := newRecommender(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building ai recommender: %w", err)
	}

	return resources.New(store, recommender, resources.Config{
		Table:         config.Store.Table,
		EscapeFormula: config.Store.EscapeFormula,
	}, log), nil
}

func newStore(cfg *StoreConfig, log *zap.Logger) (*airtable.Client, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "airtable api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set AIRTABLE_API_KEY or store.api-key-file)", err)
	}

	baseID := strings.TrimSpace(cfg.BaseID)
	if baseID == "" {
		return nil, errors.New("airtable base id is not configured (set BASE_ID or store.base-id)")
	}

	if cfg.EscapeFormula {
		log.Info("sector values are escaped before building the store formula")
	} else {
		log.Warn("sector values are interpolated into the store formula verbatim",
			zap.String("hint", "enable store.escape-formula or --escape-formula to escape quotes"),
		)
	}

	client := airtable.New(logger.WithStoreFields(log, baseID, cfg.Table), apiKey, baseID, cfg.Timeout)
	if apiURL := strings.TrimSpace(cfg.APIURL); apiURL != "" {
		client.APIURL = apiURL
	}

	return client, nil
}

func newRecommender(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Recommender, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY or ai.gemini.api-key-file)", err)
	}

	aiLogger := logger.WithCommonFields(log, "gemini", cfg.Gemini.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.Timeout, aiLogger)
	if err != nil {
		return nil, err
	}

	aiLogger.Info("gemini recommender ready", zap.String("resolved_model", generator.Model()))

	return gemini.NewRecommender(generator, aiLogger, cfg.Gemini.MaxLogLength), nil
}
