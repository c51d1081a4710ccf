package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trialclean-cli/internal/analysis"
	"github.com/KaramelBytes/trialclean-cli/internal/table"
	"github.com/KaramelBytes/trialclean-cli/internal/utils"
)

var (
	asOutputPath   string
	asDelimiter    string
	asSheetName    string
	asSampleRows   int
	asMaxRows      int
	asOutliers     bool
	asOutlierThr   float64
	asColumns      []string
	asValueCounts  bool
	asNulls        bool
	asDuplicated   bool
	asShared       bool
	asBMICheck     bool
	asBMITolerance float64
)

var assessCmd = &cobra.Command{
	Use:   "assess <files...>",
	Short: "Profile CSV/TSV/XLSX tables and report quality issues as Markdown",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		lopt := table.Options{Sheet: asSheetName}
		switch asDelimiter {
		case "":
		case ",":
			lopt.Delimiter = ','
		case "\t", "tab":
			lopt.Delimiter = '\t'
		case ";":
			lopt.Delimiter = ';'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", asDelimiter)
		}
		opt := analysis.DefaultOptions()
		if asSampleRows > 0 {
			opt.SampleRows = asSampleRows
		}
		if asMaxRows > 0 {
			opt.MaxRows = asMaxRows
		}
		if cmd.Flags().Changed("outliers") {
			opt.Outliers = asOutliers
		}
		if asOutlierThr > 0 {
			opt.OutlierThreshold = asOutlierThr
		}

		var b strings.Builder
		var frames []*table.Frame
		for i, path := range files {
			f, err := table.Load(path, lopt)
			if err != nil {
				return err
			}
			frames = append(frames, f)
			log.Debug().Str("file", path).Int("rows", f.Len()).Msg("loaded table")
			if i > 0 {
				b.WriteString("\n---\n\n")
			}
			b.WriteString(analysis.Profile(f, opt).Markdown())
			if err := writeInspections(&b, f); err != nil {
				return err
			}
		}
		if asShared && len(frames) > 1 {
			writeShared(&b, frames)
		}

		md := b.String()
		if asOutputPath != "" {
			if err := utils.SafeWriteFile(asOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote assessment of %d table(s) to %s\n", len(frames), asOutputPath)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and drops duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// writeInspections appends the per-column checks requested by flags. Columns
// absent from f are skipped so one flag set can serve several tables.
func writeInspections(b *strings.Builder, f *table.Frame) error {
	for _, col := range asColumns {
		if _, ok := f.ColumnIndex(col); !ok {
			continue
		}
		if asValueCounts {
			counts, err := analysis.ValueCounts(f, col)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, "\n[VALUE COUNTS: %s]\n", col)
			for _, c := range counts {
				fmt.Fprintf(b, "- %s: %d\n", c.Value, c.Count)
			}
		}
		if asNulls {
			rows, err := analysis.NullRows(f, col)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, "\n[NULL ROWS: %s]\n", col)
			writeRows(b, f, rows)
		}
		if asDuplicated {
			rows, err := analysis.Duplicated(f, col)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, "\n[DUPLICATED: %s]\n", col)
			writeRows(b, f, rows)
		}
	}
	if asBMICheck && len(f.MissingColumns("weight", "height", "bmi")) == 0 {
		mismatches, err := analysis.BMICheck(f, asBMITolerance)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "\n[BMI CHECK]\n")
		if len(mismatches) == 0 {
			b.WriteString("- all rows within tolerance\n")
		}
		for _, m := range mismatches {
			fmt.Fprintf(b, "- row %d: recorded %.1f, computed %.1f\n", m.Row, m.Recorded, m.Computed)
		}
	}
	return nil
}

func writeRows(b *strings.Builder, f *table.Frame, rows []int) {
	if len(rows) == 0 {
		b.WriteString("- none\n")
		return
	}
	for _, i := range rows {
		fmt.Fprintf(b, "- row %d: %s\n", i+1, strings.Join(f.Rows[i], " | "))
	}
}

func writeShared(b *strings.Builder, frames []*table.Frame) {
	shared := analysis.SharedColumns(frames...)
	b.WriteString("\n[SHARED COLUMNS]\n")
	if len(shared) == 0 {
		b.WriteString("- none\n")
		return
	}
	for _, col := range analysis.SortedKeys(shared) {
		fmt.Fprintf(b, "- %s: %s\n", col, strings.Join(shared[col], ", "))
	}
}

func init() {
	rootCmd.AddCommand(assessCmd)
	assessCmd.Flags().StringVarP(&asOutputPath, "output", "o", "", "write the Markdown report to this file")
	assessCmd.Flags().StringVar(&asDelimiter, "delimiter", "", "CSV delimiter: ',' | 'tab' | ';' (default by extension)")
	assessCmd.Flags().StringVar(&asSheetName, "sheet", "", "XLSX sheet name (default: first sheet)")
	assessCmd.Flags().IntVar(&asSampleRows, "sample-rows", 0, "number of head rows to include")
	assessCmd.Flags().IntVar(&asMaxRows, "max-rows", 0, "maximum rows to profile (0 = default)")
	assessCmd.Flags().BoolVar(&asOutliers, "outliers", true, "count robust z-score outliers in numeric columns")
	assessCmd.Flags().Float64Var(&asOutlierThr, "outlier-threshold", 0, "robust z-score threshold (default 3.5)")
	assessCmd.Flags().StringSliceVar(&asColumns, "column", nil, "columns to inspect with --value-counts, --nulls, --duplicated")
	assessCmd.Flags().BoolVar(&asValueCounts, "value-counts", false, "list value counts for --column")
	assessCmd.Flags().BoolVar(&asNulls, "nulls", false, "list rows where --column is missing")
	assessCmd.Flags().BoolVar(&asDuplicated, "duplicated", false, "list rows repeating an earlier --column value")
	assessCmd.Flags().BoolVar(&asShared, "shared", false, "list column names shared across the input tables")
	assessCmd.Flags().BoolVar(&asBMICheck, "bmi-check", false, "recompute BMI from weight and height and list mismatches")
	assessCmd.Flags().Float64Var(&asBMITolerance, "bmi-tolerance", 0.2, "allowed BMI difference for --bmi-check")
}
