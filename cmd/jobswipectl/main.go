package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ivankudzin/jobswipe/internal/client"
	"github.com/ivankudzin/jobswipe/internal/config"
	"github.com/ivankudzin/jobswipe/internal/infra/httpclient"
)

var (
	configPath string
	apiURL     string
	apiToken   string
)

var rootCmd = &cobra.Command{
	Use:   "jobswipectl",
	Short: "Operate and try out a JobSwipe deployment",
	Long: `jobswipectl manages a JobSwipe deployment and drives the API from a terminal.

Examples:
  jobswipectl migrate up                 # Apply pending schema migrations
  jobswipectl plan set 42 premium        # Move user 42 to the premium plan
  jobswipectl login --email a@b.c        # Print an access token
  jobswipectl deck                       # Swipe through the job feed`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", envOr("APP_CONFIG", "configs/config.yaml"), "Path to the YAML config")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("JOBSWIPE_API", "http://localhost:8080"), "Base URL of the API")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("JOBSWIPE_TOKEN"), "Access token for API calls")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(deckCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return cfg, nil
}

func apiClient() *client.Client {
	return client.New(apiURL, apiToken, httpclient.New(15*time.Second))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
