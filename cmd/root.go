package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resource-recommender"
)

type Config struct {
	Port  int          `mapstructure:"port"`
	Store *StoreConfig `mapstructure:"store"`
	AI    *AIConfig    `mapstructure:"ai"`
}

type StoreConfig struct {
	APIKey        string        `mapstructure:"api-key" json:"-"`
	APIKeyFile    string        `mapstructure:"api-key-file"`
	BaseID        string        `mapstructure:"base-id"`
	Table         string        `mapstructure:"table"`
	APIURL        string        `mapstructure:"api-url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	EscapeFormula bool          `mapstructure:"escape-formula"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key" json:"-"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resource-recommender serves sector based resource recommendations from Airtable ranked by Gemini",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"port":                   "PORT",
		"store.api-key":          "AIRTABLE_API_KEY",
		"store.api-key-file":     "AIRTABLE_API_KEY_FILE",
		"store.base-id":          "BASE_ID",
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.gemini.model":        "GEMINI_MODEL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("port", 5000)
	viper.SetDefault("store.table", "Technical tools")
	viper.SetDefault("store.api-url", "https://api.airtable.com")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-1.5-flash")
	viper.SetDefault("ai.gemini.max-log-length", 200)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resource-recommender.yaml in current directory, optional)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().Bool("escape-formula", false, "escape quotes in sector values before building the store formula")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("store.escape-formula", rootCmd.PersistentFlags().Lookup("escape-formula"))
}

func initConfig() {
	// .env is a convenience for local runs; real deployments pass the environment.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		// An explicitly requested config must be readable.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Store == nil {
		config.Store = &StoreConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}
