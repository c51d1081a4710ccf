package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/trialclean-cli/internal/table"
)

// NullRows returns the indices (0-based) of rows whose column is missing.
func NullRows(f *table.Frame, column string) ([]int, error) {
	col, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	var out []int
	for i, v := range col {
		if isNull(strings.TrimSpace(v)) {
			out = append(out, i)
		}
	}
	return out, nil
}

// ValueCounts tallies the non-missing values of a column, most frequent first.
func ValueCounts(f *table.Frame, column string) ([]CategoryCount, error) {
	col, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, v := range col {
		v = strings.TrimSpace(v)
		if isNull(v) {
			continue
		}
		counts[v]++
	}
	return topValues(counts, len(counts)), nil
}

// Duplicated returns the rows whose column value occurred on an earlier
// row, in the order they appear. Missing values never count as duplicates.
func Duplicated(f *table.Frame, column string) ([]int, error) {
	col, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []int
	for i, v := range col {
		v = strings.TrimSpace(v)
		if isNull(v) {
			continue
		}
		if seen[v] {
			out = append(out, i)
		}
		seen[v] = true
	}
	return out, nil
}

// SharedColumns lists column names (lower-cased) that appear in more than
// one frame, mapped to the frames that carry them.
func SharedColumns(frames ...*table.Frame) map[string][]string {
	owners := map[string][]string{}
	for _, f := range frames {
		for _, h := range f.Header {
			key := strings.ToLower(h)
			owners[key] = append(owners[key], f.Name)
		}
	}
	for k, v := range owners {
		if len(v) < 2 {
			delete(owners, k)
		}
	}
	return owners
}

// SortedKeys returns map keys in order, for stable output.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BMI computes body mass index from pounds and inches.
func BMI(weightLb, heightIn float64) float64 {
	if heightIn <= 0 {
		return math.NaN()
	}
	return 703 * weightLb / (heightIn * heightIn)
}

// BMIMismatch is a row whose recorded BMI disagrees with its weight and height.
type BMIMismatch struct {
	Row      int
	Recorded float64
	Computed float64
}

// BMICheck recomputes BMI for every row with numeric weight, height and bmi
// and reports rows off by more than tolerance.
func BMICheck(f *table.Frame, tolerance float64) ([]BMIMismatch, error) {
	if missing := f.MissingColumns("weight", "height", "bmi"); len(missing) > 0 {
		return nil, &table.MissingColumnsError{Table: f.Name, Columns: missing}
	}
	var out []BMIMismatch
	for i := range f.Rows {
		w, okW := parseNumeric(f.Value(i, "weight"))
		h, okH := parseNumeric(f.Value(i, "height"))
		bmi, okB := parseNumeric(f.Value(i, "bmi"))
		if !okW || !okH || !okB {
			continue
		}
		calc := BMI(w, h)
		if math.IsNaN(calc) || math.Abs(calc-bmi) > tolerance {
			out = append(out, BMIMismatch{Row: i + 1, Recorded: bmi, Computed: calc})
		}
	}
	return out, nil
}
