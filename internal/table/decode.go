package table

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

// MissingColumnsError reports a file whose header lacks required columns.
type MissingColumnsError struct {
	Table   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Table, strings.Join(e.Columns, ", "))
}

// PatientColumns lists the header patients.csv must carry.
var PatientColumns = []string{
	model.ColPatientID, model.ColAssignedSex, model.ColGivenName, model.ColSurname,
	model.ColAddress, model.ColCity, model.ColState, model.ColZipCode, model.ColCountry,
	model.ColContact, model.ColBirthdate, model.ColWeight, model.ColHeight, model.ColBMI,
}

// TreatmentColumns lists the header treatments.csv and treatments_cut.csv must carry.
var TreatmentColumns = []string{
	model.ColGivenName, model.ColSurname, model.ColAuralin, model.ColNovodra,
	model.ColHbA1cStart, model.ColHbA1cEnd, model.ColHbA1cChange,
}

// AdverseReactionColumns lists the header adverse_reactions.csv must carry.
var AdverseReactionColumns = []string{model.ColGivenName, model.ColSurname, model.ColAdverseReaction}

func requireColumns(f *Frame, cols []string) error {
	if missing := f.MissingColumns(cols...); len(missing) > 0 {
		return &MissingColumnsError{Table: f.Name, Columns: missing}
	}
	return nil
}

// DecodePatients maps a patients frame onto raw rows.
func DecodePatients(f *Frame) ([]model.RawPatient, error) {
	if err := requireColumns(f, PatientColumns); err != nil {
		return nil, err
	}
	out := make([]model.RawPatient, f.Len())
	for i := range f.Rows {
		out[i] = model.RawPatient{
			Row:         i + 1,
			PatientID:   f.Value(i, model.ColPatientID),
			AssignedSex: f.Value(i, model.ColAssignedSex),
			GivenName:   f.Value(i, model.ColGivenName),
			Surname:     f.Value(i, model.ColSurname),
			Address:     f.Value(i, model.ColAddress),
			City:        f.Value(i, model.ColCity),
			State:       f.Value(i, model.ColState),
			ZipCode:     f.Value(i, model.ColZipCode),
			Country:     f.Value(i, model.ColCountry),
			Contact:     f.Value(i, model.ColContact),
			Birthdate:   f.Value(i, model.ColBirthdate),
			Weight:      f.Value(i, model.ColWeight),
			Height:      f.Value(i, model.ColHeight),
			BMI:         f.Value(i, model.ColBMI),
		}
	}
	return out, nil
}

// DecodeTreatments maps a treatments frame onto raw rows.
func DecodeTreatments(f *Frame) ([]model.RawTreatment, error) {
	if err := requireColumns(f, TreatmentColumns); err != nil {
		return nil, err
	}
	out := make([]model.RawTreatment, f.Len())
	for i := range f.Rows {
		out[i] = model.RawTreatment{
			Row:         i + 1,
			GivenName:   f.Value(i, model.ColGivenName),
			Surname:     f.Value(i, model.ColSurname),
			Auralin:     f.Value(i, model.ColAuralin),
			Novodra:     f.Value(i, model.ColNovodra),
			HbA1cStart:  f.Value(i, model.ColHbA1cStart),
			HbA1cEnd:    f.Value(i, model.ColHbA1cEnd),
			HbA1cChange: f.Value(i, model.ColHbA1cChange),
		}
	}
	return out, nil
}

// DecodeAdverseReactions maps an adverse reactions frame onto raw rows.
func DecodeAdverseReactions(f *Frame) ([]model.RawAdverseReaction, error) {
	if err := requireColumns(f, AdverseReactionColumns); err != nil {
		return nil, err
	}
	out := make([]model.RawAdverseReaction, f.Len())
	for i := range f.Rows {
		out[i] = model.RawAdverseReaction{
			Row:             i + 1,
			GivenName:       f.Value(i, model.ColGivenName),
			Surname:         f.Value(i, model.ColSurname),
			AdverseReaction: f.Value(i, model.ColAdverseReaction),
		}
	}
	return out, nil
}
