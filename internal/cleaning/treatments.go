package cleaning

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

// Rule names for the treatments and adverse reactions tables.
const (
	RuleRestoreMissingRows   = "treatments.restore-missing-rows"
	RuleParseTreatments      = "treatments.parse-types"
	RuleRecomputeHbA1c       = "treatments.recompute-hba1c-change"
	RuleReshapeDoses         = "treatments.reshape-doses"
	RuleCapitalizeTreatments = "treatments.capitalize-names"
	RuleParseReactions       = "adverse_reactions.parse-types"
	RuleCapitalizeReactions  = "adverse_reactions.capitalize-names"
)

// DefaultExpectedTreatments is the treatments row count once the cut rows are restored.
const DefaultExpectedTreatments = 350

var doseRe = regexp.MustCompile(`(?i)^(\d+)\s*u\s*-\s*(\d+)\s*u$`)

// RestoreMissingRows appends the supplementary rows to the treatments table.
// A name pair present in both sources is a structural error, and so is a
// union whose length differs from expected (when expected > 0).
func RestoreMissingRows(rows, missing []model.RawTreatment, expected int) ([]model.RawTreatment, error) {
	out := make([]model.RawTreatment, 0, len(rows)+len(missing))
	out = append(out, rows...)
	offset := len(rows)
	for _, r := range missing {
		r.Row += offset
		out = append(out, r)
	}

	seen := make(map[string]int, len(out))
	for _, r := range out {
		key := model.Identity{GivenName: r.GivenName, Surname: r.Surname}.Key()
		if prev, ok := seen[key]; ok {
			return nil, structural(RuleRestoreMissingRows, rowLabel(r.Row, r.GivenName, r.Surname),
				"duplicate identity, already present at row #%d", prev)
		}
		seen[key] = r.Row
	}
	if expected > 0 && len(out) != expected {
		return nil, structural(RuleRestoreMissingRows, "", "expected %d rows after restore, got %d", expected, len(out))
	}
	return out, nil
}

// ParseTreatments converts raw rows to typed rows. A missing hba1c_change
// becomes NaN so the recompute rule counts it.
func ParseTreatments(rows []model.RawTreatment) ([]model.Treatment, error) {
	out := make([]model.Treatment, 0, len(rows))
	for _, r := range rows {
		label := rowLabel(r.Row, r.GivenName, r.Surname)
		start, err := strconv.ParseFloat(r.HbA1cStart, 64)
		if err != nil {
			return nil, pattern(RuleParseTreatments, label, "hba1c_start %q is not a number", r.HbA1cStart)
		}
		end, err := strconv.ParseFloat(r.HbA1cEnd, 64)
		if err != nil {
			return nil, pattern(RuleParseTreatments, label, "hba1c_end %q is not a number", r.HbA1cEnd)
		}
		change := math.NaN()
		if r.HbA1cChange != "" && !strings.EqualFold(r.HbA1cChange, "nan") {
			change, err = strconv.ParseFloat(r.HbA1cChange, 64)
			if err != nil {
				return nil, pattern(RuleParseTreatments, label, "hba1c_change %q is not a number", r.HbA1cChange)
			}
		}
		out = append(out, model.Treatment{
			Row:         r.Row,
			GivenName:   r.GivenName,
			Surname:     r.Surname,
			Auralin:     r.Auralin,
			Novodra:     r.Novodra,
			HbA1cStart:  start,
			HbA1cEnd:    end,
			HbA1cChange: change,
		})
	}
	return out, nil
}

// RecomputeHbA1cChange sets hba1c_change = hba1c_start - hba1c_end on every
// row and returns how many rows were missing or inaccurate.
func RecomputeHbA1cChange(rows []model.Treatment) ([]model.Treatment, int) {
	out := slices.Clone(rows)
	changed := 0
	for i := range out {
		want := out[i].HbA1cStart - out[i].HbA1cEnd
		if math.IsNaN(out[i].HbA1cChange) || out[i].HbA1cChange != want {
			changed++
		}
		out[i].HbA1cChange = want
	}
	return out, changed
}

// IsDosePlaceholder reports whether a dose cell stands for "not this drug".
func IsDosePlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "-" || strings.EqualFold(s, "nan")
}

// ParseDose parses "<start>u - <end>u".
func ParseDose(s string) (start, end int, ok bool) {
	m := doseRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(m[1])
	end, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return start, end, true
}

// ReshapeDoses melts the auralin/novodra columns into Drug, StartDose and
// EndDose. Exactly one of the two columns must hold a dose string. Rows that
// were already reshaped are left alone.
func ReshapeDoses(rows []model.Treatment) ([]model.Treatment, int, error) {
	out := slices.Clone(rows)
	changed := 0
	for i := range out {
		r := &out[i]
		label := rowLabel(r.Row, r.GivenName, r.Surname)
		aPlace, nPlace := IsDosePlaceholder(r.Auralin), IsDosePlaceholder(r.Novodra)
		var drug, raw string
		switch {
		case aPlace && nPlace:
			if r.Drug != "" {
				r.Auralin, r.Novodra = "", ""
				continue
			}
			return nil, 0, pattern(RuleReshapeDoses, label, "neither auralin nor novodra holds a dose")
		case !aPlace && !nPlace:
			return nil, 0, pattern(RuleReshapeDoses, label, "both auralin (%q) and novodra (%q) hold a dose", r.Auralin, r.Novodra)
		case !aPlace:
			drug, raw = model.DrugAuralin, r.Auralin
		default:
			drug, raw = model.DrugNovodra, r.Novodra
		}
		start, end, ok := ParseDose(raw)
		if !ok {
			return nil, 0, pattern(RuleReshapeDoses, label, "%s dose %q does not match \"<start>u - <end>u\"", drug, raw)
		}
		r.Drug, r.StartDose, r.EndDose = drug, start, end
		r.Auralin, r.Novodra = "", ""
		changed++
	}
	return out, changed, nil
}

// CapitalizeTreatmentNames title-cases given name and surname.
func CapitalizeTreatmentNames(rows []model.Treatment) ([]model.Treatment, int) {
	out := slices.Clone(rows)
	changed := 0
	for i := range out {
		g, s := CapitalizeName(out[i].GivenName), CapitalizeName(out[i].Surname)
		if g != out[i].GivenName || s != out[i].Surname {
			changed++
		}
		out[i].GivenName, out[i].Surname = g, s
	}
	return out, changed
}

// ParseAdverseReactions converts raw rows; an empty reaction is a pattern error.
func ParseAdverseReactions(rows []model.RawAdverseReaction) ([]model.AdverseReaction, error) {
	out := make([]model.AdverseReaction, 0, len(rows))
	for _, r := range rows {
		if r.AdverseReaction == "" {
			return nil, pattern(RuleParseReactions, rowLabel(r.Row, r.GivenName, r.Surname), "adverse_reaction is empty")
		}
		out = append(out, model.AdverseReaction{GivenName: r.GivenName, Surname: r.Surname, Reaction: r.AdverseReaction})
	}
	return out, nil
}

// CapitalizeReactionNames title-cases given name and surname.
func CapitalizeReactionNames(rows []model.AdverseReaction) ([]model.AdverseReaction, int) {
	out := slices.Clone(rows)
	changed := 0
	for i := range out {
		g, s := CapitalizeName(out[i].GivenName), CapitalizeName(out[i].Surname)
		if g != out[i].GivenName || s != out[i].Surname {
			changed++
		}
		out[i].GivenName, out[i].Surname = g, s
	}
	return out, changed
}
