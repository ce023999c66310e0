package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/code-payments/collateral-server/pkg/app"
	"github.com/code-payments/collateral-server/pkg/collateral/withdrawal"
)

var (
	flagConfigPath string
	flagEnvFile    string
)

var rootCmd = &cobra.Command{
	Use:           "collateral-server",
	Short:         "Executes withdrawals from Solana collateral pools",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(flagEnvFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "config.yaml", "configuration file path")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "dotenv file loaded before reading configuration (default .env when present)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the withdrawal HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := app.LoadConfig(flagConfigPath)
			if err != nil {
				return errors.Wrap(err, "failed to load config")
			}
			return app.Run(
				newCollateralApp(WithEnvConfigs()),
				config,
				app.WithHTTPMiddleware(middleware.RequestID),
				app.WithHTTPMiddleware(middleware.RealIP),
			)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the account schema of the configured collateral program",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := newSolanaClient(ctx, WithEnvConfigs()())
			if err != nil {
				return err
			}

			executor, err := withdrawal.NewExecutor(ctx, client, withdrawal.WithEnvConfigs())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "program: %s\nschema: %s\n", base58.Encode(executor.Program()), executor.Schema())
			return nil
		},
	})
}

// loadEnvFile loads path when given, and an optional .env otherwise. Values
// already present in the environment take precedence.
func loadEnvFile(path string) error {
	if len(path) > 0 {
		return errors.Wrapf(godotenv.Load(path), "failed to load %s", path)
	}

	if _, err := os.Stat(".env"); err == nil {
		return errors.Wrap(godotenv.Load(), "failed to load .env")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.StandardLogger().WithError(err).Error("collateral-server failed")
		os.Exit(1)
	}
}
