package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/autotraderhub/autotrader/internal/interfaces/cli/migrate"
	"github.com/autotraderhub/autotrader/internal/interfaces/cli/server"
	"github.com/autotraderhub/autotrader/internal/interfaces/cli/token"
	"github.com/autotraderhub/autotrader/internal/interfaces/cli/vault"
	"github.com/autotraderhub/autotrader/internal/shared/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "autotrader",
		Short:   "AutoTrader - broker connections and portfolio API",
		Long:    `AutoTrader links user brokerage accounts, keeps their credentials encrypted, and serves positions and holdings across brokers.`,
		Version: version.Get().Version,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		vault.NewCommand(),
		token.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
