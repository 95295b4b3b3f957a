package compare

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// WriteWorkbook exports every kind's sheet into one xlsx file at path.
func WriteWorkbook(rep *Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	kinds := rep.Kinds()
	for i, kind := range kinds {
		if _, err := f.NewSheet(kind); err != nil {
			return fmt.Errorf("workbook: new sheet %s: %w", kind, err)
		}
		for r, row := range rep.Sheet(kind) {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return fmt.Errorf("workbook: cell name: %w", err)
			}
			values := make([]any, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := f.SetSheetRow(kind, cell, &values); err != nil {
				return fmt.Errorf("workbook: %s row %d: %w", kind, r+1, err)
			}
		}
		if i == 0 {
			idx, err := f.GetSheetIndex(kind)
			if err == nil {
				f.SetActiveSheet(idx)
			}
		}
	}
	if len(kinds) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("workbook: drop default sheet: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("workbook: create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("workbook: save %s: %w", path, err)
	}
	return nil
}
