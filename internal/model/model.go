package model

import (
	"strings"
	"time"
)

// Column names shared by the raw CSV inputs.
const (
	ColPatientID   = "patient_id"
	ColAssignedSex = "assigned_sex"
	ColGivenName   = "given_name"
	ColSurname     = "surname"
	ColAddress     = "address"
	ColCity        = "city"
	ColState       = "state"
	ColZipCode     = "zip_code"
	ColCountry     = "country"
	ColContact     = "contact"
	ColBirthdate   = "birthdate"
	ColWeight      = "weight"
	ColHeight      = "height"
	ColBMI         = "bmi"

	ColAuralin     = "auralin"
	ColNovodra     = "novodra"
	ColHbA1cStart  = "hba1c_start"
	ColHbA1cEnd    = "hba1c_end"
	ColHbA1cChange = "hba1c_change"

	ColAdverseReaction = "adverse_reaction"
)

// Drug names a treatment row can carry after the dose reshape.
const (
	DrugAuralin = "auralin"
	DrugNovodra = "novodra"
)

// Sex is the assigned_sex categorical domain.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Identity is the (given name, surname) pair the tables use to refer to a person.
type Identity struct {
	GivenName string `yaml:"given_name,omitempty" json:"given_name,omitempty"`
	Surname   string `yaml:"surname" json:"surname"`
}

// Key returns the case-insensitive join key "given surname".
func (id Identity) Key() string {
	return NameKey(id.GivenName, id.Surname)
}

func (id Identity) String() string {
	return strings.TrimSpace(id.GivenName + " " + id.Surname)
}

// Matches reports whether the pair refers to id. An empty GivenName on id
// matches any given name with the same surname.
func (id Identity) Matches(given, surname string) bool {
	if !strings.EqualFold(strings.TrimSpace(id.Surname), strings.TrimSpace(surname)) {
		return false
	}
	if id.GivenName == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(id.GivenName), strings.TrimSpace(given))
}

// NameKey builds the join key used across all three tables.
func NameKey(given, surname string) string {
	return strings.ToLower(strings.TrimSpace(given)) + " " + strings.ToLower(strings.TrimSpace(surname))
}

// RawPatient is one patients.csv row exactly as read.
type RawPatient struct {
	Row         int
	PatientID   string
	AssignedSex string
	GivenName   string
	Surname     string
	Address     string
	City        string
	State       string
	ZipCode     string
	Country     string
	Contact     string
	Birthdate   string
	Weight      string
	Height      string
	BMI         string
}

// RawTreatment is one treatments.csv (or treatments_cut.csv) row exactly as read.
type RawTreatment struct {
	Row         int
	GivenName   string
	Surname     string
	Auralin     string
	Novodra     string
	HbA1cStart  string
	HbA1cEnd    string
	HbA1cChange string
}

// RawAdverseReaction is one adverse_reactions.csv row exactly as read.
type RawAdverseReaction struct {
	Row             int
	GivenName       string
	Surname         string
	AdverseReaction string
}

// PatientDraft is the working shape of a patient row while string-level
// rules run. Contact is split into Email/Phone and then discarded.
type PatientDraft struct {
	Row         int
	PatientID   string
	AssignedSex string
	GivenName   string
	Surname     string
	Address     string
	City        string
	State       string
	ZipCode     string
	Country     string
	Contact     string
	Email       string
	Phone       string
	Birthdate   string
	Weight      string
	Height      string
	BMI         string
}

// Identity returns the row's name pair.
func (p PatientDraft) Identity() Identity {
	return Identity{GivenName: p.GivenName, Surname: p.Surname}
}

// Patient is a fully cleaned patients row.
type Patient struct {
	PatientID   int       `json:"patient_id" validate:"gt=0"`
	AssignedSex Sex       `json:"assigned_sex" validate:"oneof=male female"`
	GivenName   string    `json:"given_name" validate:"required"`
	Surname     string    `json:"surname" validate:"required"`
	Address     string    `json:"address" validate:"required"`
	City        string    `json:"city" validate:"required"`
	State       string    `json:"state" validate:"len=2,uppercase"`
	ZipCode     string    `json:"zip_code" validate:"len=5,numeric"`
	Country     string    `json:"country"`
	Email       string    `json:"email" validate:"required,email"`
	Phone       string    `json:"phone" validate:"len=11,numeric,startswith=1"`
	Birthdate   time.Time `json:"birthdate" validate:"required"`
	Weight      float64   `json:"weight" validate:"gt=0"`
	Height      int       `json:"height" validate:"gt=0"`
	BMI         float64   `json:"bmi" validate:"gt=0"`
}

// Identity returns the row's name pair.
func (p Patient) Identity() Identity {
	return Identity{GivenName: p.GivenName, Surname: p.Surname}
}

// Treatment is a treatments row. Auralin/Novodra hold the raw dose
// encodings until the reshape rule replaces them with Drug/StartDose/EndDose.
type Treatment struct {
	Row         int     `json:"-"`
	GivenName   string  `json:"given_name" validate:"required"`
	Surname     string  `json:"surname" validate:"required"`
	Auralin     string  `json:"-" validate:"isdefault"`
	Novodra     string  `json:"-" validate:"isdefault"`
	Drug        string  `json:"treatment" validate:"oneof=auralin novodra"`
	StartDose   int     `json:"start_dose" validate:"gt=0"`
	EndDose     int     `json:"end_dose" validate:"gt=0"`
	HbA1cStart  float64 `json:"hba1c_start"`
	HbA1cEnd    float64 `json:"hba1c_end"`
	HbA1cChange float64 `json:"hba1c_change"`
}

// Identity returns the row's name pair.
func (t Treatment) Identity() Identity {
	return Identity{GivenName: t.GivenName, Surname: t.Surname}
}

// AdverseReaction is one cleaned adverse_reactions row.
type AdverseReaction struct {
	GivenName string `json:"given_name" validate:"required"`
	Surname   string `json:"surname" validate:"required"`
	Reaction  string `json:"adverse_reaction" validate:"required"`
}

// TreatmentHistory is one row of the merged output table.
type TreatmentHistory struct {
	PatientID       int     `json:"patient_id"`
	GivenName       string  `json:"given_name" validate:"required"`
	Surname         string  `json:"surname" validate:"required"`
	Treatment       string  `json:"treatment" validate:"oneof=auralin novodra"`
	StartDose       int     `json:"start_dose" validate:"gt=0"`
	EndDose         int     `json:"end_dose" validate:"gt=0"`
	HbA1cStart      float64 `json:"hba1c_start"`
	HbA1cEnd        float64 `json:"hba1c_end"`
	HbA1cChange     float64 `json:"hba1c_change"`
	AdverseReaction string  `json:"adverse_reaction,omitempty"`
}
