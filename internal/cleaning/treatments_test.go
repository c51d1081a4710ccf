package cleaning

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

func rawTreatments(n, offset int) []model.RawTreatment {
	out := make([]model.RawTreatment, n)
	for i := range out {
		out[i] = model.RawTreatment{
			Row:        i + 1,
			GivenName:  fmt.Sprintf("given%d", offset+i),
			Surname:    fmt.Sprintf("surname%d", offset+i),
			Auralin:    "41u - 48u",
			Novodra:    "-",
			HbA1cStart: "7.63",
			HbA1cEnd:   "7.20",
		}
	}
	return out
}

func TestRestoreMissingRows_ReachesExpectedCount(t *testing.T) {
	rows := rawTreatments(280, 0)
	cut := rawTreatments(70, 280)

	out, err := RestoreMissingRows(rows, cut, DefaultExpectedTreatments)
	require.NoError(t, err)
	assert.Len(t, out, 350)
	assert.Equal(t, 281, out[280].Row)
	assert.Len(t, rows, 280, "input must not grow")
}

func TestRestoreMissingRows_WrongCount(t *testing.T) {
	_, err := RestoreMissingRows(rawTreatments(280, 0), rawTreatments(60, 280), DefaultExpectedTreatments)
	require.Error(t, err)
	assert.True(t, IsStructural(err))
	assert.Contains(t, err.Error(), "expected 350 rows")
}

func TestRestoreMissingRows_DuplicateIdentity(t *testing.T) {
	rows := rawTreatments(3, 0)
	cut := []model.RawTreatment{{Row: 1, GivenName: "GIVEN1", Surname: "surname1"}}

	_, err := RestoreMissingRows(rows, cut, 0)
	require.Error(t, err)
	assert.True(t, IsStructural(err))
	var re *RuleError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, RuleRestoreMissingRows, re.Rule)
}

func TestRecomputeHbA1cChange(t *testing.T) {
	in := []model.Treatment{
		{HbA1cStart: 7.63, HbA1cEnd: 7.20, HbA1cChange: math.NaN()},
		{HbA1cStart: 7.97, HbA1cEnd: 7.62, HbA1cChange: 0.97},
		{HbA1cStart: 8.0, HbA1cEnd: 7.5, HbA1cChange: 0.5},
	}
	out, changed := RecomputeHbA1cChange(in)
	assert.Equal(t, 2, changed)
	for _, r := range out {
		assert.Equal(t, r.HbA1cStart-r.HbA1cEnd, r.HbA1cChange)
	}
	assert.True(t, math.IsNaN(in[0].HbA1cChange), "input must be untouched")
}

func TestParseTreatments_MissingChangeIsNaN(t *testing.T) {
	out, err := ParseTreatments([]model.RawTreatment{{Row: 1, HbA1cStart: "7.63", HbA1cEnd: "7.20"}})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out[0].HbA1cChange))

	_, err = ParseTreatments([]model.RawTreatment{{Row: 2, GivenName: "a", Surname: "b", HbA1cStart: "high", HbA1cEnd: "7"}})
	assert.True(t, IsPattern(err))
}

func TestParseDose(t *testing.T) {
	start, end, ok := ParseDose("41u - 48u")
	require.True(t, ok)
	assert.Equal(t, 41, start)
	assert.Equal(t, 48, end)

	_, _, ok = ParseDose("41 - 48")
	assert.False(t, ok)
}

func TestReshapeDoses(t *testing.T) {
	in := []model.Treatment{
		{Row: 1, GivenName: "veronika", Surname: "jindrová", Auralin: "41u - 48u", Novodra: "-"},
		{Row: 2, GivenName: "elliot", Surname: "richardson", Auralin: "-", Novodra: "35u - 35u"},
	}
	out, changed, err := ReshapeDoses(in)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	assert.Equal(t, model.DrugAuralin, out[0].Drug)
	assert.Equal(t, 41, out[0].StartDose)
	assert.Equal(t, 48, out[0].EndDose)
	assert.Empty(t, out[0].Auralin)
	assert.Empty(t, out[0].Novodra)
	assert.Equal(t, model.DrugNovodra, out[1].Drug)
	assert.Equal(t, "41u - 48u", in[0].Auralin, "input must be untouched")

	again, changed, err := ReshapeDoses(out)
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Equal(t, out, again)
}

func TestReshapeDoses_PatternErrors(t *testing.T) {
	cases := map[string]model.Treatment{
		"both":      {Row: 3, GivenName: "a", Surname: "b", Auralin: "1u - 2u", Novodra: "3u - 4u"},
		"neither":   {Row: 4, GivenName: "c", Surname: "d", Auralin: "-", Novodra: ""},
		"malformed": {Row: 5, GivenName: "e", Surname: "f", Auralin: "forty", Novodra: "-"},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ReshapeDoses([]model.Treatment{row})
			require.Error(t, err)
			assert.True(t, IsPattern(err))
			assert.Contains(t, err.Error(), RuleReshapeDoses)
			assert.Contains(t, err.Error(), fmt.Sprintf("#%d", row.Row))
		})
	}
}

func TestCapitalizeName(t *testing.T) {
	assert.Equal(t, "Veronika", CapitalizeName("veronika"))
	assert.Equal(t, "Jindrová", CapitalizeName("jindrová"))
	assert.Equal(t, "Jindrová", CapitalizeName("JINDROVÁ"))
	assert.Equal(t, "McDonald", CapitalizeName("McDonald"))
	assert.Equal(t, "", CapitalizeName("  "))
}

func TestCapitalizeTreatmentNames(t *testing.T) {
	out, changed := CapitalizeTreatmentNames([]model.Treatment{
		{GivenName: "joseph", Surname: "day"},
		{GivenName: "Lena", Surname: "Baer"},
	})
	assert.Equal(t, 1, changed)
	assert.Equal(t, "Joseph", out[0].GivenName)
	assert.Equal(t, "Day", out[0].Surname)
}

func TestParseAdverseReactions_EmptyReaction(t *testing.T) {
	_, err := ParseAdverseReactions([]model.RawAdverseReaction{{Row: 7, GivenName: "berta", Surname: "napolitani"}})
	require.Error(t, err)
	assert.True(t, IsPattern(err))
	assert.Contains(t, err.Error(), "#7 (berta napolitani)")
}
