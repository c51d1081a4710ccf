package export

import (
	"fmt"
	"slices"
	"strings"

	"github.com/KaramelBytes/trialclean-cli/internal/utils"
)

// File formats accepted by Write.
const (
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatParquet = "parquet"
)

// Formats lists the supported file formats.
var Formats = []string{FormatCSV, FormatXLSX, FormatParquet}

// ParseFormats splits a comma list ("csv,parquet") and rejects unknown entries.
func ParseFormats(values []string) ([]string, error) {
	var out []string
	for _, v := range values {
		for _, f := range strings.Split(v, ",") {
			f = strings.ToLower(strings.TrimSpace(f))
			if f == "" || slices.Contains(out, f) {
				continue
			}
			if !slices.Contains(Formats, f) {
				return nil, fmt.Errorf("unknown output format %q (want %s)", f, strings.Join(Formats, ", "))
			}
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		out = []string{FormatCSV}
	}
	return out, nil
}

// Write emits the bundle into dir in every requested format and returns the
// written paths in order.
func Write(dir string, formats []string, b Bundle) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	tables := b.Tables()
	var paths []string
	for _, f := range formats {
		switch f {
		case FormatCSV:
			for _, t := range tables {
				p, err := WriteCSV(dir, t)
				if err != nil {
					return paths, err
				}
				paths = append(paths, p)
			}
		case FormatXLSX:
			p, err := WriteXLSX(dir, tables)
			if err != nil {
				return paths, err
			}
			paths = append(paths, p)
		case FormatParquet:
			ps, err := WriteParquet(dir, b)
			if err != nil {
				return paths, err
			}
			paths = append(paths, ps...)
		default:
			return paths, fmt.Errorf("unknown output format %q", f)
		}
	}
	return paths, nil
}
