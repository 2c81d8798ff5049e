package artifact

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WriteXLSX writes rows to a single-sheet workbook with a header row.
func WriteXLSX[T any](path, sheetName string, rows []T) error {
	header, cells, err := Table(rows)
	if err != nil {
		return eris.Wrapf(err, "artifact: tabulate %s", path)
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "artifact: add sheet %s", sheetName)
	}

	for _, record := range append([][]string{header}, cells...) {
		row := sheet.AddRow()
		for _, v := range record {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "artifact: save %s", path)
	}
	return nil
}

// ReadXLSX returns every row of the first sheet, header included.
func ReadXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("artifact: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
