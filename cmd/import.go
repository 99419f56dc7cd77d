package main

import (
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/towerstats/analyzer-cli/internal/report"
)

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import battle report text dumps",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		schema, err := loadSchema()
		if err != nil {
			return eris.Wrap(err, "import")
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "import: open store")
		}
		defer st.Close()

		var imported, duplicates atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Import.MaxConcurrentFiles)

		for _, path := range args {
			g.Go(func() error {
				raw, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "read %s", path)
				}

				rep := report.Extract(string(raw), schema)
				for _, label := range rep.UnknownLabels {
					zap.L().Warn("unknown label",
						zap.String("file", path),
						zap.String("label", label),
					)
				}

				_, created, err := st.SaveReport(gctx, rep.Source, path, rep.ContentHash)
				if err != nil {
					return eris.Wrapf(err, "save %s", path)
				}
				if created {
					imported.Add(1)
				} else {
					duplicates.Add(1)
					zap.L().Info("duplicate report skipped",
						zap.String("file", path),
						zap.String("content_hash", rep.ContentHash),
					)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int64("imported", imported.Load()),
			zap.Int64("duplicates", duplicates.Load()),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
