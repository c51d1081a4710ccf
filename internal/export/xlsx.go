package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// WorkbookName is the file name of the XLSX export.
const WorkbookName = "trialclean.xlsx"

// WriteXLSX writes one sheet per table to dir/trialclean.xlsx and returns the path.
func WriteXLSX(dir string, tables []Table) (string, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	dateStyle, err := wb.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return "", fmt.Errorf("xlsx style: %w", err)
	}
	first := wb.GetSheetName(0)
	for i, t := range tables {
		if i == 0 {
			if err := wb.SetSheetName(first, t.Name); err != nil {
				return "", fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := wb.NewSheet(t.Name); err != nil {
			return "", fmt.Errorf("new sheet %s: %w", t.Name, err)
		}
		header := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			header[j] = c.Name
		}
		if err := wb.SetSheetRow(t.Name, "A1", &header); err != nil {
			return "", fmt.Errorf("%s: header: %w", t.Name, err)
		}
		for r, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return "", err
			}
			vals := append([]any(nil), row...)
			if err := wb.SetSheetRow(t.Name, cell, &vals); err != nil {
				return "", fmt.Errorf("%s: row %d: %w", t.Name, r+1, err)
			}
			for c, v := range row {
				if _, ok := v.(time.Time); !ok {
					continue
				}
				ref, _ := excelize.CoordinatesToCellName(c+1, r+2)
				if err := wb.SetCellStyle(t.Name, ref, ref, dateStyle); err != nil {
					return "", fmt.Errorf("%s: date style: %w", t.Name, err)
				}
			}
		}
		if err := wb.SetPanes(t.Name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return "", fmt.Errorf("%s: freeze header: %w", t.Name, err)
		}
	}

	path := filepath.Join(dir, WorkbookName)
	if err := wb.SaveAs(path); err != nil {
		return "", fmt.Errorf("save xlsx: %w", err)
	}
	return path, nil
}
