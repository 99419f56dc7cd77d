// Package export writes computed metric series to spreadsheet files for
// sharing outside the CLI. It consumes plain series values; nothing here
// feeds back into the analysis core.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/towerstats/analyzer-cli/internal/metric"
)

// WriteXLSX writes each series to its own sheet named after the metric key.
// An empty series produces a sheet with the header row only.
func WriteXLSX(path string, series []metric.Series) error {
	if len(series) == 0 {
		return eris.New("xlsx: nothing to export")
	}

	f := xlsx.NewFile()
	for _, s := range series {
		sheet, err := f.AddSheet(sheetName(s))
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet for %s", s.Key)
		}

		header := sheet.AddRow()
		header.AddCell().SetString("x")
		header.AddCell().SetString(s.Key)

		for _, p := range s.Points {
			row := sheet.AddRow()
			row.AddCell().SetFloat(p.X)
			row.AddCell().SetFloat(p.Value)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save file")
	}
	return nil
}

// sheetName derives a sheet name from the series key and context. Sheet
// names are capped at 31 characters by the format.
func sheetName(s metric.Series) string {
	name := s.Key
	if s.Context.Tier != "" {
		name += " tier " + s.Context.Tier
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
