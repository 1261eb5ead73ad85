package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/holdings-cli/internal/export"
	"github.com/sells-group/holdings-cli/internal/model"
	"github.com/sells-group/holdings-cli/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read-only queries over stored holdings history",
}

var queryLatestCmd = &cobra.Command{
	Use:   "latest <etf-code>",
	Short: "Holdings of the most recent stored date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueryService(cmd, func(svc *query.Service) error {
			rows, err := svc.Latest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emitHoldings(cmd, rows)
		})
	},
}

var queryTopCmd = &cobra.Command{
	Use:   "top <etf-code>",
	Short: "Top N holdings by weight",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("n")
		date, _ := cmd.Flags().GetString("date")
		return withQueryService(cmd, func(svc *query.Service) error {
			rows, err := svc.Top(cmd.Context(), args[0], n, date)
			if err != nil {
				return err
			}
			return emitHoldings(cmd, rows)
		})
	},
}

var queryHistoryCmd = &cobra.Command{
	Use:   "history <etf-code> <name>",
	Short: "One issuer's records across all captured dates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueryService(cmd, func(svc *query.Service) error {
			rows, err := svc.BondHistory(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Printf("no holdings matching %q in %s\n", args[1], args[0])
				return nil
			}
			return emitHoldings(cmd, rows)
		})
	},
}

var queryExposureCmd = &cobra.Command{
	Use:   "exposure <etf-code> <country>",
	Short: "A country's aggregate weight over time",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueryService(cmd, func(svc *query.Service) error {
			points, err := svc.CountryExposure(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if len(points) == 0 {
				fmt.Printf("no %s holdings in %s\n", args[1], args[0])
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tWEIGHT%\tHOLDINGS\tAVG YTM%")
			for _, p := range points {
				fmt.Fprintf(w, "%s\t%.3f\t%d\t%s\n", p.Date, p.TotalWeight, p.Holdings, fmtFloat(p.AvgYTM))
			}
			return w.Flush()
		})
	},
}

var queryCompareCmd = &cobra.Command{
	Use:   "compare <etf-code> <date-a> <date-b>",
	Short: "Diff two stored snapshots",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withQueryService(cmd, func(svc *query.Service) error {
			diff, err := svc.CompareDates(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if limit > 0 && len(diff) > limit {
				diff = diff[:limit]
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPRESENCE\tWEIGHT A\tWEIGHT B\tDELTA")
			for _, d := range diff {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%+.3f\n",
					d.Name, d.Presence, fmtFloat(d.WeightA), fmtFloat(d.WeightB), d.WeightDelta)
			}
			return w.Flush()
		})
	},
}

var queryDatesCmd = &cobra.Command{
	Use:   "dates [etf-code]",
	Short: "Stored capture dates with row counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := ""
		if len(args) == 1 {
			code = args[0]
		}
		return withQueryService(cmd, func(svc *query.Service) error {
			dates, err := svc.AvailableDates(cmd.Context(), code)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tROWS")
			for _, d := range dates {
				fmt.Fprintf(w, "%s\t%d\n", d.Date, d.Rows)
			}
			return w.Flush()
		})
	},
}

var queryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Database statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueryService(cmd, func(svc *query.Service) error {
			st, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("rows=%d dates=%d etfs=%d range=%s..%s\n",
				st.TotalRows, st.DistinctDates, st.DistinctCodes, st.FirstDate, st.LastDate)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ETF\tROWS\tDATES\tFIRST\tLAST")
			for _, c := range st.ByCode {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", c.ETFCode, c.Rows, c.Dates, c.FirstDate, c.LastDate)
			}
			return w.Flush()
		})
	},
}

func init() {
	queryTopCmd.Flags().Int("n", 10, "number of holdings")
	queryTopCmd.Flags().String("date", "", "capture date YYYY-MM-DD (default: latest)")
	queryCompareCmd.Flags().Int("limit", 0, "show only the N largest changes")

	for _, c := range []*cobra.Command{queryLatestCmd, queryTopCmd, queryHistoryCmd} {
		c.Flags().String("out", "", "write result as CSV to this path")
	}

	queryCmd.AddCommand(queryLatestCmd, queryTopCmd, queryHistoryCmd,
		queryExposureCmd, queryCompareCmd, queryDatesCmd, queryStatsCmd)
	rootCmd.AddCommand(queryCmd)
}

// withQueryService opens the store for the duration of one query.
func withQueryService(cmd *cobra.Command, fn func(*query.Service) error) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(query.NewService(st))
}

// emitHoldings prints holdings as a table, or writes CSV when --out is
// set.
func emitHoldings(cmd *cobra.Command, rows []model.Holding) error {
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := export.WriteHoldingsFile(out, rows); err != nil {
			return err
		}
		fmt.Printf("wrote %d rows to %s\n", len(rows), out)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tNAME\tCOUNTRY\tWEIGHT%\tYTM%\tMKT VALUE")
	for _, h := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			h.CaptureDate, h.Name, h.Location,
			fmtFloat(h.WeightPct), fmtFloat(h.YTMPct), fmtFloat(h.MarketValue))
	}
	return w.Flush()
}

func fmtFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *f)
}
