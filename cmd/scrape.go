package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/towerstats/analyzer-cli/internal/refdump"
	"github.com/towerstats/analyzer-cli/internal/store"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [dump files...]",
	Short: "Append entity stat revisions from reference-table dumps",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "scrape: open store")
		}
		defer st.Close()

		now := time.Now().UTC()
		var appended, refreshed int

		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read %s", path)
			}

			blocks, skipped := refdump.Parse(string(raw))
			for _, idx := range skipped {
				zap.L().Warn("malformed block skipped",
					zap.String("file", path),
					zap.Int("block", idx),
				)
			}

			for _, b := range blocks {
				seq, created, err := st.AppendRevision(ctx, store.RevisionInput{
					EntityID:    b.EntityID,
					Level:       b.Level,
					ContentHash: b.ContentHash,
					RawFields:   b.RawFields,
					SeenAt:      now,
				})
				if err != nil {
					return eris.Wrapf(err, "append revision %s/%d", b.EntityID, b.Level)
				}
				if created {
					appended++
					zap.L().Info("revision appended",
						zap.String("entity", b.EntityID),
						zap.Int("level", b.Level),
						zap.Int64("seq", seq),
					)
				} else {
					refreshed++
				}
			}
		}

		zap.L().Info("scrape complete",
			zap.Int("appended", appended),
			zap.Int("refreshed", refreshed),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
