package drive

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// convertXLSXToCSV extracts the forecast sheet of an XLSX workbook into a
// CSV file. A sheet named "forecast" or "forecasts" is preferred; absent
// one, the first sheet is taken. Fully blank rows are dropped so trailing
// spreadsheet padding never reaches the forecast parser.
func convertXLSXToCSV(xlsxPath, csvPath string) error {
	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		return fmt.Errorf("failed to open xlsx file %s: %w", xlsxPath, err)
	}
	defer f.Close()

	sheet, err := pickForecastSheet(f.GetSheetList())
	if err != nil {
		return fmt.Errorf("xlsx file %s: %w", xlsxPath, err)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	out, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create csv file %s: %w", csvPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row from %s: %w", xlsxPath, err)
		}
		if blankRow(record) {
			continue
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row to %s: %w", csvPath, err)
		}
	}

	if err := rows.Error(); err != nil {
		return fmt.Errorf("error iterating rows in %s: %w", xlsxPath, err)
	}

	return nil
}

// pickForecastSheet returns the forecast-named sheet when one exists,
// otherwise the workbook's first sheet.
func pickForecastSheet(sheets []string) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	for _, s := range sheets {
		name := strings.ToLower(strings.TrimSpace(s))
		if name == "forecast" || name == "forecasts" {
			return s, nil
		}
	}
	return sheets[0], nil
}

func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
