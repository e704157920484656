package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/BuyBio/BuyBio/internal/model"
	"github.com/BuyBio/BuyBio/internal/notifier"
)

func screenCmd() *cobra.Command {
	var (
		top      int
		asJSON   bool
		notify   bool
		keywords []string
	)
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen the watchlist once and print the top candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := a.screener.Run(ctx, a.cfg.Watchlist)
			if err != nil {
				return err
			}
			if err := a.recorder.RecordRun(report); err != nil {
				fmt.Fprintf(os.Stderr, "record run: %v\n", err)
			}

			picks := a.options.Top(report, top)
			sections := a.options.Sections(report, keywords)
			if notify {
				if a.telegram == nil {
					return fmt.Errorf("--notify needs telegram.bot_token and telegram.chat_id")
				}
				if err := a.telegram.SendWithRetry(ctx, notifier.FormatScreenReport(report, picks, sections), 3); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"run_id":   report.ID,
					"top":      picks,
					"sections": sections,
					"skipped":  report.Skipped,
					"failed":   report.Failed,
				})
			}

			fmt.Fprintf(out, "run %s: %d scored, %d skipped, %d failed in %s\n\n",
				report.ID, len(report.Candidates), len(report.Skipped), len(report.Failed), report.Duration().Round(time.Millisecond))
			printCandidates(out, picks)
			for _, s := range sections {
				fmt.Fprintf(out, "\n#%s\n", s.Keyword)
				printCandidates(out, s.Candidates)
			}
			for _, f := range report.Failed {
				fmt.Fprintf(out, "\nfailed %s: %s", f.Instrument.Label(), f.Reason)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "k", 0, "Number of candidates to print (default screen.top_k)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&notify, "notify", false, "Also send the report to Telegram")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "Keyword sections (default screen.keywords)")
	return cmd
}

func printCandidates(out io.Writer, cands []model.Candidate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCODE\tNAME\tPRICE\tCHG%\tSHORT\tMID/LONG\tTOTAL\tREC")
	for i, c := range cands {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.0f\t%+.2f\t%+.2f\t%+.2f\t%+.2f\t%s\n",
			i+1, c.Code, c.Name, c.Price, c.ChangeRate,
			c.Result.ShortScore, c.Result.MidLongScore, c.Result.TotalScore, c.Result.Recommendation)
	}
	w.Flush()
}
