// buybio screens a watchlist of KRX stocks with weighted technical indicators.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rootCmd := &cobra.Command{
		Use:   "buybio",
		Short: "Technical-indicator stock screener",
		Long: `buybio fetches daily bars for a watchlist, scores each stock with
weighted technical indicators and recommends the best BUY candidates.`,
		SilenceUsage: true,
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultCfg, "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(screenCmd())
	rootCmd.AddCommand(analyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
