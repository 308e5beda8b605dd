package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/resource-recommender/internal/logger"
	"github.com/spigell/resource-recommender/internal/server"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the POST /get-resources endpoint",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 5000, "port to listen on")
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resource-recommender", zap.String("version", version))

	svc, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the recommendation service", zap.Error(err))
	}

	server.SetGinMode(viper.GetBool("debug"))

	router := server.BuildRouter(server.RouterDeps{
		ServiceName: app,
		Version:     version,
		Finder:      svc,
		Logger:      logger,
	})

	if err := server.Run(ctx, fmt.Sprintf(":%d", config.Port), router, logger); err != nil {
		logger.Fatal("serving http", zap.Error(err))
	}
}
