package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/resource-recommender/internal/logger"
	"github.com/spigell/resource-recommender/internal/resources"
	"github.com/spigell/resource-recommender/internal/server"
	"go.uber.org/zap"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Run a single recommendation from the terminal and print the response envelope",
	Run: func(cmd *cobra.Command, _ []string) {
		recommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringSliceP("sector", "s", nil, "sector to recommend resources for (repeatable). Asked interactively when unset.")
}

func recommend(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	sectors, err := cmd.Flags().GetStringSlice("sector")
	if err != nil {
		logger.Fatal("reading sector flags", zap.Error(err))
	}

	if len(sectors) == 0 {
		sectors, err = askSectors()
		if err != nil {
			logger.Fatal("reading sectors", zap.Error(err))
		}
	}

	svc, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the recommendation service", zap.Error(err))
	}

	result, err := svc.Find(ctx, sectors)

	var envelope any
	switch {
	case err == nil:
		envelope = server.SuccessResponse{
			Success:              true,
			Resources:            result.Resources.List(),
			AIGeneratedResources: result.Recommendation.Value,
		}
		reportRanked(logger, result)
	case errors.Is(err, resources.ErrGeneration):
		logger.Error("AI response generating error", zap.Error(err))
		envelope = server.ErrorResponse{Error: server.MessageGenerationFailed}
	default:
		logger.Error("error fetching resources", zap.Error(err))
		envelope = server.ErrorResponse{Error: server.MessageRetrievalFailed}
	}

	pretty, _ := json.MarshalIndent(envelope, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))

	if err != nil {
		os.Exit(1)
	}
}

// askSectors prompts for a comma separated list. An empty answer selects
// every resource.
func askSectors() ([]string, error) {
	prompt := promptui.Prompt{
		Label: "Sectors (comma separated, empty for all)",
	}

	answer, err := prompt.Run()
	if err != nil {
		return nil, err
	}

	return splitSectors(answer), nil
}

func splitSectors(answer string) []string {
	var sectors []string
	for _, part := range strings.Split(answer, ",") {
		if sector := strings.TrimSpace(part); sector != "" {
			sectors = append(sectors, sector)
		}
	}
	return sectors
}

func reportRanked(logger *zap.Logger, result *resources.Result) {
	logger.Info("records fetched", zap.Int("count", result.Resources.Len()))

	for _, record := range result.Resources.List() {
		fields, err := record.Resource()
		if err != nil {
			logger.Warn("record does not follow the resources table shape", zap.String("id", record.ID), zap.Error(err))
			continue
		}
		logger.Info("fetched resource",
			zap.String("id", record.ID),
			zap.String("resource", fields.Resource),
			zap.Strings("sectors", fields.Sector),
		)
	}

	ranked, err := result.Recommendation.Ranked()
	if err != nil {
		logger.Warn("recommendation does not follow the requested shape", zap.Error(err))
		return
	}

	for _, r := range ranked {
		logger.Info("ranked resource",
			zap.String("id", r.ID),
			zap.String("resource", r.Fields.Resource),
			zap.Float64("score", r.Fields.Score),
		)
	}
}
