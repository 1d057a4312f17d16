package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/tool"
	"github.com/hupe1980/agentloop/tool/funtools"
	"github.com/hupe1980/agentloop/transcript"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the agent",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := tool.NewCatalog(funtools.All())
		if err != nil {
			return err
		}
		printTools(cmd.OutOrStdout(), catalog.Schemas())
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			cfg.TranscriptDB = db
		}
		if cfg.TranscriptDB == "" {
			return errors.New("no transcript database configured (set transcript_db or pass --db)")
		}

		store, err := transcript.OpenSQLite(cmd.Context(), cfg.TranscriptDB)
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), recs)
		return nil
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the provider API key stored in the OS keyring",
}

var authSetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the API key (reads stdin when no key is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		key := ""
		if len(args) == 1 {
			key = args[0]
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Enter %s: ", cfg.KeyName())
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key: %w", err)
			}
			key = strings.TrimSpace(line)
		}

		if err := config.StoreAPIKey(cfg.KeyName(), key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s in the keyring.\n", cfg.KeyName())
		return nil
	},
}

var authDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.DeleteAPIKey(cfg.KeyName()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from the keyring.\n", cfg.KeyName())
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether an API key can be resolved",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if _, err := config.ResolveAPIKey(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is configured for provider %s.\n", cfg.KeyName(), cfg.Provider)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("db", "", "SQLite transcript database (overrides transcript_db)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of conversations to show (0 for all)")

	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authDeleteCmd)
	authCmd.AddCommand(authStatusCmd)
}
