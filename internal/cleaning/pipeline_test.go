package cleaning

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

func patient(id int, given, surname, state, zip, contact string) model.RawPatient {
	return model.RawPatient{
		Row: id, PatientID: fmt.Sprint(id), AssignedSex: "female", GivenName: given, Surname: surname,
		Address: fmt.Sprintf("%d Main Street", id), City: "Springfield", State: state, ZipCode: zip,
		Country: "United States", Contact: contact, Birthdate: "7/10/1976", Weight: "150.2", Height: "66", BMI: "24.2",
	}
}

func sampleInput() Input {
	patients := []model.RawPatient{
		patient(1, "Zoe", "Wellish", "California", "92390.0", "951-719-9170ZoeWellish@superrito.com"),
		patient(2, "Pamela", "Hill", "NY", "2138.0", "PamelaSHill@cuvox.de+1 (217) 569-3204"),
		patient(3, "John", "Doe", "NY", "10001", "johndoe@email.com1234567890"),
		patient(4, "Jakob", "Jakobsen", "IL", "60601", "312-555-0101JakobJakobsen@dayrep.com"),
		patient(5, "Jake", "Jakobsen", "IL", "60601", "312-555-0101JakobJakobsen@dayrep.com"),
		patient(6, "Tim", "Neudorf", "Texas", "73301", "(512) 555-0110TimNeudorf@rhyta.com"),
		patient(7, "Dsvid", "Gustafsson", "WA", "98101", "206-555-0111DavidGustafsson@armyspy.com"),
		patient(8, "Camilla", "Zaitseva", "OR", "97201", "+1 (503) 555-0112CamillaZaitseva@superrito.com"),
		patient(9, "Lee", "Park", "", "", ""),
		patient(10, "Patrick", "Gersten", "MA", "1060", "413-555-0120PatrickGersten@rhyta.com"),
		patient(11, "Pat", "Gersten", "MA", "1060", "413-555-0120PatrickGersten@rhyta.com"),
		patient(12, "Sandra", "Taylor", "Florida", "33101", "305-555-0130SandraTaylor@jourrapide.com"),
		patient(13, "Sandy", "Taylor", "FL", "33101", "305-555-0130SandraTaylor@jourrapide.com"),
	}
	patients[5].Height = "27"
	patients[7].Weight = "48.8"

	treatments := []model.RawTreatment{
		{Row: 1, GivenName: "zoe", Surname: "wellish", Auralin: "41u - 48u", Novodra: "-", HbA1cStart: "7.63", HbA1cEnd: "7.20", HbA1cChange: ""},
		{Row: 2, GivenName: "pamela", Surname: "hill", Auralin: "-", Novodra: "33u - 33u", HbA1cStart: "7.97", HbA1cEnd: "7.62", HbA1cChange: "0.97"},
	}
	cut := []model.RawTreatment{
		{Row: 1, GivenName: "tim", Surname: "neudorf", Auralin: "-", Novodra: "29u - 28u", HbA1cStart: "7.71", HbA1cEnd: "7.36", HbA1cChange: "0.35"},
	}
	reactions := []model.RawAdverseReaction{{Row: 1, GivenName: "zoe", Surname: "wellish", AdverseReaction: "hypoglycemia"}}
	return Input{Patients: patients, Treatments: treatments, TreatmentsCut: cut, AdverseReactions: reactions}
}

func TestRun(t *testing.T) {
	in := sampleInput()
	var logs bytes.Buffer
	res, err := Run(in, Options{ExpectedTreatments: 3, Logger: zerolog.New(&logs)})
	require.NoError(t, err)

	require.Len(t, res.Treatments, 3)
	for _, tr := range res.Treatments {
		assert.Contains(t, []string{model.DrugAuralin, model.DrugNovodra}, tr.Drug)
		assert.Equal(t, tr.HbA1cStart-tr.HbA1cEnd, tr.HbA1cChange)
		assert.Empty(t, tr.Auralin)
		assert.Empty(t, tr.Novodra)
	}
	assert.Equal(t, "Zoe", res.Treatments[0].GivenName)
	assert.Equal(t, 41, res.Treatments[0].StartDose)
	assert.Equal(t, 48, res.Treatments[0].EndDose)
	assert.Equal(t, "Wellish", res.AdverseReactions[0].Surname)

	byName := map[string]model.Patient{}
	for _, p := range res.Patients {
		assert.Len(t, p.ZipCode, 5)
		assert.Len(t, p.State, 2)
		assert.NotEqual(t, "Doe", p.Surname)
		byName[p.Surname] = p
	}
	assert.Len(t, res.Patients, 8)
	assert.Equal(t, 1, res.DroppedContacts)
	assert.Equal(t, "CA", byName["Wellish"].State)
	assert.Equal(t, "NY", byName["Hill"].State)
	assert.Equal(t, "02138", byName["Hill"].ZipCode)
	assert.Equal(t, "19517199170", byName["Wellish"].Phone)
	assert.Equal(t, "ZoeWellish@superrito.com", byName["Wellish"].Email)
	assert.Equal(t, 72, byName["Neudorf"].Height)
	assert.Equal(t, "David", byName["Gustafsson"].GivenName)
	assert.InDelta(t, 107.59, byName["Zaitseva"].Weight, 1e-9)
	assert.Equal(t, "Jakob", byName["Jakobsen"].GivenName)
	assert.Equal(t, "Patrick", byName["Gersten"].GivenName)
	assert.Equal(t, "Sandra", byName["Taylor"].GivenName)
	assert.Equal(t, "01060", byName["Gersten"].ZipCode)

	assert.Len(t, res.Stats, 15)
	assert.Equal(t, RuleRestoreMissingRows, res.Stats[0].Rule)
	assert.Equal(t, RuleParsePatients, res.Stats[len(res.Stats)-1].Rule)
	assert.Contains(t, logs.String(), `"rule":"patients.normalize-state"`)

	assert.Equal(t, "Park", in.Patients[8].Surname, "raw input must survive")
	assert.Equal(t, "27", in.Patients[5].Height)
}

func TestRun_StructuralRowCount(t *testing.T) {
	_, err := Run(sampleInput(), Options{ExpectedTreatments: 350, Logger: zerolog.Nop()})
	require.Error(t, err)
	assert.True(t, IsStructural(err))
}

func TestRun_PatternErrorNamesRow(t *testing.T) {
	in := sampleInput()
	in.Patients[0].State = "Atlantis"
	_, err := Run(in, Options{Logger: zerolog.Nop()})
	require.Error(t, err)
	assert.True(t, IsPattern(err))
	assert.True(t, strings.Contains(err.Error(), "Zoe Wellish"), err.Error())
}

func TestRun_DedupSurvivorDroppedLater(t *testing.T) {
	in := sampleInput()
	in.Patients[9].Contact = ""
	_, err := Run(in, Options{Logger: zerolog.Nop()})
	require.Error(t, err)
	assert.True(t, IsStructural(err))
	assert.Contains(t, err.Error(), RulePostconditions)
	assert.Contains(t, err.Error(), "Gersten")
}
