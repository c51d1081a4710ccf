package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/trialclean-cli/internal/utils"
)

// WriteCSV writes t to dir/<name>.csv and returns the path.
func WriteCSV(dir string, t Table) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header()); err != nil {
		return "", fmt.Errorf("%s: write header: %w", t.Name, err)
	}
	rec := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j, v := range row {
			rec[j] = formatCell(v)
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("%s: write row %d: %w", t.Name, i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("%s: flush csv: %w", t.Name, err)
	}
	path := filepath.Join(dir, t.Name+".csv")
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}
