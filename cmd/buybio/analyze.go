package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BuyBio/BuyBio/internal/model"
)

func analyzeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze CODE...",
		Short: "Score one or more stocks and print the factor breakdown",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var failed []error
			for _, code := range args {
				inst := model.Instrument{Code: code}
				for _, w := range a.cfg.Watchlist {
					if w.Code == code {
						inst = w
						break
					}
				}
				cand, err := a.collector.Collect(ctx, inst)
				if err != nil {
					failed = append(failed, err)
					continue
				}
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(cand); err != nil {
						return err
					}
					continue
				}
				printBreakdown(out, cand)
			}
			return errors.Join(failed...)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printBreakdown(out io.Writer, c *model.Candidate) {
	fmt.Fprintf(out, "%s  %.0f (%+.2f%%)  %d bars to %s\n",
		c.Label(), c.Price, c.ChangeRate, c.Bars, c.LastDate.Format("2006-01-02"))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tINDICATOR\tLEVEL\tWEIGHT\tSHORT\tMID/LONG\tNOTE")
	for _, f := range c.Result.Factors {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%+.2f\t%+.2f\t%s\n",
			f.Rule, f.Indicator, f.Level, f.Weight, f.Short, f.MidLong, f.Commentary)
	}
	w.Flush()
	r := c.Result
	fmt.Fprintf(out, "short %+.2f  mid/long %+.2f  total %+.2f  => %s\n\n",
		r.ShortScore, r.MidLongScore, r.TotalScore, r.Recommendation)
}
