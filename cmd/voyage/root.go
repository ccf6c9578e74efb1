package main

import (
	"fmt"
	"os"

	"github.com/aretw0/voyage/internal/cli"
	"github.com/aretw0/voyage/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voyage",
	Short: "Voyage is a travel agent that plans with tools and asks before it emails",
	Long: `Voyage answers travel queries with a tool-calling model loop (flights_finder,
hotels_finder) and drafts an email to the user once the draft is approved.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "voyage.yaml", "Configuration file (skipped when missing)")
	rootCmd.PersistentFlags().String("env", ".env", "Dotenv file read before the environment (skipped when missing)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("offline", false, "Use the scripted model instead of Anthropic")
}

// loadApp reads the configuration and builds the agent for a command.
func loadApp(cmd *cobra.Command) (*cli.App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	envPath, _ := cmd.Flags().GetString("env")

	cfg, err := config.Load(config.Source{File: configPath, EnvFile: envPath})
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.Offline = true
	}

	return cli.NewApp(cfg, cli.NewLogger(cfg.LogLevel))
}
