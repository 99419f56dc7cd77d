package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/towerstats/analyzer-cli/internal/effects"
)

var (
	effectsEntity string
	effectsLevel  int
	effectsMetric string
	effectsAsOf   string
)

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "Resolve derived effect metrics from the revision store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var asOf *time.Time
		if effectsAsOf != "" {
			t, err := time.Parse(time.RFC3339, effectsAsOf)
			if err != nil {
				return eris.Wrapf(err, "parse --as-of %q", effectsAsOf)
			}
			asOf = &t
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "effects: open store")
		}
		defer st.Close()

		set, err := st.LoadRevisionSet(ctx)
		if err != nil {
			return eris.Wrap(err, "effects: load revisions")
		}

		keys := []string{effectsMetric}
		if effectsMetric == "" {
			keys = effects.FormulaKeys()
		}

		for _, key := range keys {
			derived, err := effects.Resolve(set, effectsEntity, effectsLevel, key, asOf)
			if err != nil {
				return eris.Wrapf(err, "resolve %s", key)
			}

			if derived.Value == nil {
				cmd.Printf("%-28s undefined (missing: %v)\n", key, derived.MissingParams)
				continue
			}
			cmd.Printf("%-28s %.4f  (revision %d, seen %s)\n",
				key, *derived.Value, derived.RevisionSeq, derived.LastSeen.Format(time.RFC3339))
		}

		return nil
	},
}

func init() {
	effectsCmd.Flags().StringVar(&effectsEntity, "entity", "", "entity identifier (required)")
	effectsCmd.Flags().IntVar(&effectsLevel, "level", 0, "entity level (required)")
	effectsCmd.Flags().StringVar(&effectsMetric, "metric", "", "derived metric key (default: all)")
	effectsCmd.Flags().StringVar(&effectsAsOf, "as-of", "", "resolve against revisions seen at or before this RFC 3339 time")
	_ = effectsCmd.MarkFlagRequired("entity")
	_ = effectsCmd.MarkFlagRequired("level")
	rootCmd.AddCommand(effectsCmd)
}
