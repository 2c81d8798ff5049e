package naukri

import (
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/clean"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// RunClean reads the scraped listings CSV at in and writes it to out with
// the company and location cells cleaned. Every other column is copied
// through and the input column order is kept. A nil cleaner uses the
// built-in rules.
func RunClean(in, out string, cleaner *clean.Cleaner) (model.RunStats, error) {
	var stats model.RunStats
	if cleaner == nil {
		cleaner = clean.Default()
	}

	sheet, err := artifact.ReadSheet(in)
	if err != nil {
		return stats, err
	}
	if err := artifact.RequireColumns(sheet.Header, "title", "company", "location"); err != nil {
		return stats, err
	}
	titleCol, companyCol, locCol := sheet.Col("title"), sheet.Col("company"), sheet.Col("location")

	for i, row := range sheet.Rows {
		row[companyCol] = cleaner.ListingCompany(row[companyCol], sheet.Get(i, titleCol))
		row[locCol] = clean.Location(row[locCol])
		stats.Total++
		if row[companyCol] == model.Unknown {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
	}

	if err := artifact.WriteSheet(out, sheet); err != nil {
		return stats, err
	}
	zap.L().Info("naukri: cleaned listings", zap.Int("count", len(sheet.Rows)), zap.String("path", out))
	return stats, nil
}
