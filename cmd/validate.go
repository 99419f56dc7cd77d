package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/towerstats/analyzer-cli/internal/chartcfg"
	"github.com/towerstats/analyzer-cli/internal/metric"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config.json]",
	Short: "Validate a chart configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		var chartCfg chartcfg.Config
		if err := json.Unmarshal(raw, &chartCfg); err != nil {
			return eris.Wrap(err, "decode chart config")
		}

		vc, err := chartcfg.Validate(chartCfg, metric.Default())
		if err != nil {
			var verr *chartcfg.ValidationError
			if errors.As(err, &verr) {
				cmd.Printf("invalid: %s\n", verr.Error())
				return eris.New("chart config rejected")
			}
			return err
		}

		cmd.Printf("valid: %d metric(s), chart type %s\n", len(vc.Definitions), vc.Config.ChartType)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
