package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/towerstats/analyzer-cli/internal/analysis"
	"github.com/towerstats/analyzer-cli/internal/export"
	"github.com/towerstats/analyzer-cli/internal/metric"
	"github.com/towerstats/analyzer-cli/internal/report"
)

var (
	exportOut     string
	exportMetrics []string
	exportTier    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export metric series from imported reports to an xlsx workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		for _, key := range exportMetrics {
			if !metric.Default().Has(key) {
				return eris.Errorf("unknown metric %q", key)
			}
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "export: open store")
		}
		defer st.Close()

		records, err := st.ListReports(ctx)
		if err != nil {
			return eris.Wrap(err, "export: list reports")
		}

		schema, err := loadSchema()
		if err != nil {
			return eris.Wrap(err, "export")
		}

		reports := make([]*report.Report, 0, len(records))
		for _, rec := range records {
			reports = append(reports, report.Extract(rec.Source, schema))
		}

		series := make([]metric.Series, 0, len(exportMetrics))
		for _, key := range exportMetrics {
			series = append(series, analysis.BuildSeries(reports, key, metric.SeriesContext{Tier: exportTier}))
		}

		if err := export.WriteXLSX(exportOut, series); err != nil {
			return eris.Wrap(err, "export: write workbook")
		}

		zap.L().Info("export complete",
			zap.String("out", exportOut),
			zap.String("metrics", strings.Join(exportMetrics, ",")),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "metrics.xlsx", "output workbook path")
	exportCmd.Flags().StringSliceVar(&exportMetrics, "metrics", []string{"coins_earned"}, "metric keys to export")
	exportCmd.Flags().StringVar(&exportTier, "tier", "", "restrict series to one tier")
	rootCmd.AddCommand(exportCmd)
}
