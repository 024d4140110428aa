package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"school_fees_echo/internal/config"
	"school_fees_echo/internal/logger"
	"school_fees_echo/internal/services"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "paymentctl",
		Short:         "Operator tools for the school fee payment service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(config.Load().Env)
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(pendingCmd())
	rootCmd.AddCommand(sendSMSCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := services.InitDB(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(config.Load())
			if err != nil {
				return err
			}
			if err := services.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
			return nil
		},
	}
}
