package main

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/towerstats/analyzer-cli/internal/analysis"
	"github.com/towerstats/analyzer-cli/internal/calc"
	"github.com/towerstats/analyzer-cli/internal/metric"
	"github.com/towerstats/analyzer-cli/internal/report"
)

var (
	analyzeMetric string
	analyzeTier   string
	analyzeWindow int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize imported reports and trend a metric over runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !metric.Default().Has(analyzeMetric) {
			return eris.Errorf("unknown metric %q (known: %v)", analyzeMetric, metric.Default().Keys())
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "analyze: open store")
		}
		defer st.Close()

		records, err := st.ListReports(ctx)
		if err != nil {
			return eris.Wrap(err, "analyze: list reports")
		}
		if len(records) == 0 {
			return eris.New("no reports imported")
		}

		schema, err := loadSchema()
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		// Stored source text is byte-identical to what was imported, so
		// extraction here cannot drift from the stored content hash.
		reports := make([]*report.Report, 0, len(records))
		for _, rec := range records {
			reports = append(reports, report.Extract(rec.Source, schema))
		}

		latest := reports[len(reports)-1]
		printSummary(cmd, records[len(records)-1].Path, latest)

		if len(reports) >= 2 {
			printDelta(cmd, reports[len(reports)-2], latest)
		}

		series := analysis.BuildSeries(reports, analyzeMetric, metric.SeriesContext{Tier: analyzeTier})
		if len(series.Points) >= analyzeWindow {
			rolled, err := calc.CollectRolling(series.Points, analyzeWindow)
			if err != nil {
				return eris.Wrap(err, "analyze: rolling average")
			}
			cmd.Printf("\n%s rolling average (window %d):\n", analyzeMetric, analyzeWindow)
			for _, p := range rolled {
				cmd.Printf("  %.0f\t%.4g\n", p.X, p.Value)
			}
		}

		return nil
	},
}

func printSummary(cmd *cobra.Command, path string, rep *report.Report) {
	summary := analysis.Summary(rep)
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cmd.Printf("latest report (%s):\n", path)
	for _, k := range keys {
		cmd.Printf("  %-28s %.6g\n", k, summary[k])
	}
}

func printDelta(cmd *cobra.Command, prev, cur *report.Report) {
	prevSummary := analysis.Summary(prev)
	curSummary := analysis.Summary(cur)

	cmd.Println("\ndelta vs previous run:")
	keys := make([]string, 0, len(curSummary))
	for k := range curSummary {
		if _, ok := prevSummary[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		d := calc.Diff(prevSummary[k], curSummary[k])
		pct := "n/a"
		if d.Percent != nil {
			pct = fmt.Sprintf("%+.2f%%", *d.Percent)
		}
		cmd.Printf("  %-28s %+.6g (%s)\n", k, d.Absolute, pct)
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMetric, "metric", "coins_earned", "metric key to trend")
	analyzeCmd.Flags().StringVar(&analyzeTier, "tier", "", "restrict trend to one tier")
	analyzeCmd.Flags().IntVar(&analyzeWindow, "window", 3, "rolling average window")
	rootCmd.AddCommand(analyzeCmd)
}
