// Package export writes the cleaned tables as CSV, XLSX, Parquet, or into
// Postgres.
package export

import (
	"strconv"
	"time"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

// Table names used for files, sheets, and database tables.
const (
	PatientsTable = "patients_clean"
	HistoryTable  = "treatment_history"
)

// Bundle is the set of cleaned tables a run emits.
type Bundle struct {
	Patients []model.Patient
	History  []model.TreatmentHistory
}

// Column is one output column with its Postgres type.
type Column struct {
	Name   string
	PGType string
}

// Table is a typed, format-neutral view of one output table.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Header returns the column names.
func (t Table) Header() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

var patientColumns = []Column{
	{model.ColPatientID, "integer primary key"},
	{model.ColAssignedSex, "text not null"},
	{model.ColGivenName, "text not null"},
	{model.ColSurname, "text not null"},
	{model.ColAddress, "text"},
	{model.ColCity, "text"},
	{model.ColState, "char(2)"},
	{model.ColZipCode, "char(5)"},
	{model.ColCountry, "text"},
	{"email", "text"},
	{"phone", "char(11)"},
	{model.ColBirthdate, "date"},
	{model.ColWeight, "double precision"},
	{model.ColHeight, "integer"},
	{model.ColBMI, "double precision"},
}

var historyColumns = []Column{
	{model.ColPatientID, "integer"},
	{model.ColGivenName, "text not null"},
	{model.ColSurname, "text not null"},
	{"treatment", "text not null"},
	{"start_dose", "integer"},
	{"end_dose", "integer"},
	{model.ColHbA1cStart, "double precision"},
	{model.ColHbA1cEnd, "double precision"},
	{model.ColHbA1cChange, "double precision"},
	{model.ColAdverseReaction, "text"},
}

// Tables renders the bundle in output order.
func (b Bundle) Tables() []Table {
	patients := Table{Name: PatientsTable, Columns: patientColumns, Rows: make([][]any, len(b.Patients))}
	for i, p := range b.Patients {
		patients.Rows[i] = []any{
			p.PatientID, string(p.AssignedSex), p.GivenName, p.Surname, p.Address, p.City,
			p.State, p.ZipCode, p.Country, p.Email, p.Phone, p.Birthdate, p.Weight, p.Height, p.BMI,
		}
	}
	history := Table{Name: HistoryTable, Columns: historyColumns, Rows: make([][]any, len(b.History))}
	for i, h := range b.History {
		var reaction any
		if h.AdverseReaction != "" {
			reaction = h.AdverseReaction
		}
		var id any
		if h.PatientID != 0 {
			id = h.PatientID
		}
		history.Rows[i] = []any{
			id, h.GivenName, h.Surname, h.Treatment, h.StartDose, h.EndDose,
			h.HbA1cStart, h.HbA1cEnd, h.HbA1cChange, reaction,
		}
	}
	return []Table{patients, history}
}

// formatCell renders a cell for text formats; nil becomes "".
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format("2006-01-02")
	}
	return ""
}
