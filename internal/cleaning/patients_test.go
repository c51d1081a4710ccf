package cleaning

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

func TestSplitContactValue(t *testing.T) {
	tests := []struct {
		contact string
		phone   string
		email   string
	}{
		{"951-719-9170ZoeWellish@superrito.com", "951-719-9170", "ZoeWellish@superrito.com"},
		{"PamelaSHill@cuvox.de+1 (217) 569-3204", "+1 (217) 569-3204", "PamelaSHill@cuvox.de"},
		{"402-363-6804JaeMDebord@gustr.com", "402-363-6804", "JaeMDebord@gustr.com"},
		{"+1 (845) 858-7707LeaBJuenger@einrot.com", "+1 (845) 858-7707", "LeaBJuenger@einrot.com"},
		{"RafaelCardonaCastro@jourrapide.com304-438-2648", "304-438-2648", "RafaelCardonaCastro@jourrapide.com"},
	}
	for _, tt := range tests {
		t.Run(tt.contact, func(t *testing.T) {
			phone, email, ok := SplitContactValue(tt.contact)
			require.True(t, ok)
			assert.Equal(t, tt.phone, phone)
			assert.Equal(t, tt.email, email)
		})
	}

	_, _, ok := SplitContactValue("no contact here")
	assert.False(t, ok)
}

func TestSplitContact_DropsEmptyAndRejectsPartial(t *testing.T) {
	rows := []model.PatientDraft{
		{Row: 1, GivenName: "Zoe", Surname: "Wellish", Contact: "951-719-9170ZoeWellish@superrito.com"},
		{Row: 2, GivenName: "Lee", Surname: "Park"},
	}
	out, dropped, err := SplitContact(rows)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, out, 1)
	assert.Equal(t, "ZoeWellish@superrito.com", out[0].Email)
	assert.Empty(t, out[0].Contact)
	assert.NotEmpty(t, rows[0].Contact, "input must be untouched")

	_, _, err = SplitContact([]model.PatientDraft{{Row: 3, GivenName: "A", Surname: "B", Contact: "A@b.com"}})
	require.Error(t, err)
	assert.True(t, IsPattern(err))
}

func TestNormalizePhone(t *testing.T) {
	for in, want := range map[string]string{
		"951-719-9170":      "19517199170",
		"+1 (217) 569-3204": "12175693204",
		"(732) 636-8246":    "17326368246",
		"19517199170":       "19517199170",
	} {
		got, ok := NormalizePhoneValue(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, _, err := NormalizePhone([]model.PatientDraft{{Row: 1, Phone: "555-1234"}})
	assert.True(t, IsPattern(err))
}

func TestNormalizeState(t *testing.T) {
	rows := []model.PatientDraft{{State: "California"}, {State: "CA"}, {State: "NY"}, {State: "new york"}, {State: "tx"}}
	out, changed, err := NormalizeState(rows)
	require.NoError(t, err)
	assert.Equal(t, 3, changed)
	got := make([]string, len(out))
	for i, r := range out {
		got[i] = r.State
	}
	assert.Equal(t, []string{"CA", "CA", "NY", "NY", "TX"}, got)

	again, changed, err := NormalizeState(out)
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Equal(t, out, again)

	_, _, err = NormalizeState([]model.PatientDraft{{Row: 9, State: "Atlantis"}})
	assert.True(t, IsPattern(err))
}

func TestNormalizeZip(t *testing.T) {
	for in, want := range map[string]string{
		"2138.0": "02138", "92390.0": "92390", "501": "00501", "02138": "02138",
		"2138.5": "02138", "92390.99": "92390", "501.": "00501",
	} {
		got, ok := NormalizeZipValue(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
		assert.Len(t, got, 5)
	}
	for _, bad := range []string{"", "ABCDE", "123456", ".5", "2138.5x", "123456.0"} {
		_, ok := NormalizeZipValue(bad)
		assert.False(t, ok, bad)
	}
}

func TestRemoveSentinels(t *testing.T) {
	rows := []model.PatientDraft{
		{GivenName: "John", Surname: "Doe"},
		{GivenName: "Zoe", Surname: "Wellish"},
		{GivenName: "john", Surname: "doe"},
	}
	out, removed := RemoveSentinels(rows, []model.Identity{{GivenName: "John", Surname: "Doe"}})
	assert.Equal(t, 2, removed)
	require.Len(t, out, 1)
	assert.Equal(t, "Wellish", out[0].Surname)
}

func TestRemoveDuplicates(t *testing.T) {
	rows := []model.PatientDraft{
		{Row: 1, GivenName: "Jakob", Surname: "Jakobsen"},
		{Row: 2, GivenName: "Jake", Surname: "Jakobsen"},
		{Row: 3, GivenName: "Patrick", Surname: "Gersten"},
		{Row: 4, GivenName: "Pat", Surname: "Gersten"},
		{Row: 5, GivenName: "Sandra", Surname: "Taylor"},
		{Row: 6, GivenName: "Sandy", Surname: "Taylor"},
	}
	cat, err := DefaultCatalogue()
	require.NoError(t, err)

	out, removed, err := RemoveDuplicates(rows, cat.Removals, cat.DedupSurnames)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	counts := map[string]int{}
	for _, r := range out {
		counts[r.Surname]++
	}
	assert.Equal(t, map[string]int{"Jakobsen": 1, "Gersten": 1, "Taylor": 1}, counts)

	_, _, err = RemoveDuplicates(rows, nil, cat.DedupSurnames)
	require.Error(t, err)
	assert.True(t, IsStructural(err))
}

func TestRemoveDuplicates_KeepsExactlyOne(t *testing.T) {
	rows := []model.PatientDraft{
		{Row: 4, GivenName: "Jakob", Surname: "Jakobsen"},
		{Row: 5, GivenName: "Jake", Surname: "Jakobsen"},
		{Row: 6, GivenName: "Tim", Surname: "Neudorf"},
	}

	_, _, err := RemoveDuplicates(rows, []model.Identity{{Surname: "Jakobsen"}}, []string{"Jakobsen"})
	require.Error(t, err, "a surname-only removal leaves no Jakobsen")
	assert.True(t, IsStructural(err))
	assert.Contains(t, err.Error(), "Jakobsen")
	assert.Contains(t, err.Error(), "found none")

	_, _, err = RemoveDuplicates(rows, nil, []string{"Gersten"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gersten")

	out, removed, err := RemoveDuplicates(rows, []model.Identity{{GivenName: "Jake", Surname: "Jakobsen"}}, []string{"jakobsen"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, out, 2)
}

func TestValidateDedupSurnames(t *testing.T) {
	patients := []model.Patient{
		{PatientID: 4, GivenName: "Jakob", Surname: "Jakobsen"},
		{PatientID: 6, GivenName: "Tim", Surname: "Neudorf"},
	}
	require.NoError(t, ValidateDedupSurnames(patients, []string{"Jakobsen"}))

	err := ValidateDedupSurnames(patients[1:], []string{"Jakobsen"})
	require.Error(t, err)
	assert.True(t, IsStructural(err))
	assert.Contains(t, err.Error(), RulePostconditions)

	twice := append(slices.Clone(patients), model.Patient{PatientID: 5, GivenName: "Jake", Surname: "Jakobsen"})
	err = ValidateDedupSurnames(twice, []string{"Jakobsen"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 2")
}

func TestParsePatients(t *testing.T) {
	rows := []model.PatientDraft{{
		Row: 1, PatientID: "1", AssignedSex: "Female", GivenName: "Zoe", Surname: "Wellish",
		Birthdate: "7/10/1976", Weight: "121.7", Height: "66.0", BMI: "19.6",
	}}
	out, err := ParsePatients(rows)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.SexFemale, out[0].AssignedSex)
	assert.Equal(t, time.Date(1976, 7, 10, 0, 0, 0, 0, time.UTC), out[0].Birthdate)
	assert.Equal(t, 66, out[0].Height)

	rows[0].Birthdate = "10th July"
	_, err = ParsePatients(rows)
	assert.True(t, IsPattern(err))

	rows[0].Birthdate = "1976-07-10"
	rows[0].AssignedSex = "unknown"
	_, err = ParsePatients(rows)
	assert.True(t, IsPattern(err))
}
