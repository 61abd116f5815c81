package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cueledger",
	Short: "cueledger runs billiard-table billing with a cashback loyalty ledger.",
	Long: `cueledger meters table sessions, settles them by cash, card or debt,
and keeps a per-customer cashback ledger with earn, spend and expiry.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(expireCashbackCmd)
	rootCmd.AddCommand(relayOutboxCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
