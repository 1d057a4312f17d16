package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hupe1980/agentloop"
	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/logging"
	"github.com/spf13/cobra"
)

var (
	configPath    string
	maxIterations int
	streamFlag    bool
	logLevel      string
	logFormat     string
)

var rootCmd = &cobra.Command{
	Use:           "agentloop",
	Short:         "Tool calling agent with weather, books, jokes, dogs and trivia",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig assembles the configuration from file, environment and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.FromEnv(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("max-iterations") {
		cfg.MaxIterations = maxIterations
	}
	if flags.Changed("stream") {
		cfg.Stream = streamFlag
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLoop builds the façade for commands that talk to a model.
func openLoop(cmd *cobra.Command) (*agentloop.AgentLoop, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.LoggerConfig()).WithComponent("cli")

	return agentloop.New(cmd.Context(), func(o *agentloop.Options) {
		o.Config = cfg
		o.Logger = logger
	})
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	pf.IntVar(&maxIterations, "max-iterations", config.DefaultMaxIterations, "Maximum model round-trips per question")
	pf.BoolVar(&streamFlag, "stream", false, "Stream model output as it is generated")
	pf.StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	pf.StringVar(&logFormat, "log-format", logging.FormatPretty, "Log format (json|text|pretty)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(authCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
