package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/holdings-cli/internal/ingest"
	"github.com/sells-group/holdings-cli/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch and store today's holdings for every configured ETF",
	Long: `Fetch and store one day's holdings snapshot for every configured ETF.

Each source is processed independently: a failure or an already-stored
day for one ETF never blocks the others. Re-running on the same date is
a no-op (reported as skipped). Use --replace to re-ingest a day that is
already stored; stored days are otherwise final.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reg, err := buildRegistry()
		if err != nil {
			return err
		}

		if etfs, _ := cmd.Flags().GetString("etfs"); etfs != "" {
			codes := strings.Split(etfs, ",")
			for i := range codes {
				codes[i] = strings.TrimSpace(codes[i])
			}
			reg, err = reg.Subset(codes)
			if err != nil {
				return err
			}
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		date, _ := cmd.Flags().GetString("date")
		replace, _ := cmd.Flags().GetBool("replace")

		zap.L().Info("starting ingestion",
			zap.Int("sources", reg.Len()),
			zap.String("date", date),
			zap.Bool("replace", replace),
		)

		engine := ingest.NewEngine(reg, buildFetcher(), st)
		report, err := engine.Run(ctx, ingest.Opts{Date: date, Replace: replace})
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		fmt.Println(report.Summary())

		if len(report.ByStatus(model.StatusInserted)) == 0 &&
			len(report.ByStatus(model.StatusFailed)) == len(report.Outcomes) {
			return eris.New("ingest: all sources failed")
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("date", "", "capture date YYYY-MM-DD (default: today, UTC)")
	ingestCmd.Flags().String("etfs", "", "comma-separated ETF codes (default: all configured)")
	ingestCmd.Flags().Bool("replace", false, "replace an already-stored day instead of skipping it")
	rootCmd.AddCommand(ingestCmd)
}
