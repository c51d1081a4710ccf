package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

// PatientRow is the Parquet schema of patients_clean.
type PatientRow struct {
	PatientID   int64     `parquet:"patient_id"`
	AssignedSex string    `parquet:"assigned_sex,dict"`
	GivenName   string    `parquet:"given_name"`
	Surname     string    `parquet:"surname"`
	Address     string    `parquet:"address"`
	City        string    `parquet:"city"`
	State       string    `parquet:"state,dict"`
	ZipCode     string    `parquet:"zip_code"`
	Country     string    `parquet:"country,dict"`
	Email       string    `parquet:"email"`
	Phone       string    `parquet:"phone"`
	Birthdate   time.Time `parquet:"birthdate"`
	Weight      float64   `parquet:"weight"`
	Height      int32     `parquet:"height"`
	BMI         float64   `parquet:"bmi"`
}

// HistoryRow is the Parquet schema of treatment_history. Unmatched patients
// and missing reactions are null.
type HistoryRow struct {
	PatientID       *int64  `parquet:"patient_id,optional"`
	GivenName       string  `parquet:"given_name"`
	Surname         string  `parquet:"surname"`
	Treatment       string  `parquet:"treatment,dict"`
	StartDose       int32   `parquet:"start_dose"`
	EndDose         int32   `parquet:"end_dose"`
	HbA1cStart      float64 `parquet:"hba1c_start"`
	HbA1cEnd        float64 `parquet:"hba1c_end"`
	HbA1cChange     float64 `parquet:"hba1c_change"`
	AdverseReaction *string `parquet:"adverse_reaction,optional"`
}

func patientRows(ps []model.Patient) []PatientRow {
	out := make([]PatientRow, len(ps))
	for i, p := range ps {
		out[i] = PatientRow{
			PatientID:   int64(p.PatientID),
			AssignedSex: string(p.AssignedSex),
			GivenName:   p.GivenName,
			Surname:     p.Surname,
			Address:     p.Address,
			City:        p.City,
			State:       p.State,
			ZipCode:     p.ZipCode,
			Country:     p.Country,
			Email:       p.Email,
			Phone:       p.Phone,
			Birthdate:   p.Birthdate,
			Weight:      p.Weight,
			Height:      int32(p.Height),
			BMI:         p.BMI,
		}
	}
	return out
}

func historyRows(hs []model.TreatmentHistory) []HistoryRow {
	out := make([]HistoryRow, len(hs))
	for i, h := range hs {
		r := HistoryRow{
			GivenName:   h.GivenName,
			Surname:     h.Surname,
			Treatment:   h.Treatment,
			StartDose:   int32(h.StartDose),
			EndDose:     int32(h.EndDose),
			HbA1cStart:  h.HbA1cStart,
			HbA1cEnd:    h.HbA1cEnd,
			HbA1cChange: h.HbA1cChange,
		}
		if h.PatientID != 0 {
			id := int64(h.PatientID)
			r.PatientID = &id
		}
		if h.AdverseReaction != "" {
			reaction := h.AdverseReaction
			r.AdverseReaction = &reaction
		}
		out[i] = r
	}
	return out
}

func writeParquet[T any](path string, rows []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	writer := parquet.NewGenericWriter[T](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("trialclean", "1.0", ""),
	)
	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		file.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return file.Close()
}

// WriteParquet writes patients_clean.parquet and treatment_history.parquet
// into dir and returns their paths.
func WriteParquet(dir string, b Bundle) ([]string, error) {
	pPath := filepath.Join(dir, PatientsTable+".parquet")
	if err := writeParquet(pPath, patientRows(b.Patients)); err != nil {
		return nil, fmt.Errorf("%s: %w", PatientsTable, err)
	}
	hPath := filepath.Join(dir, HistoryTable+".parquet")
	if err := writeParquet(hPath, historyRows(b.History)); err != nil {
		return nil, fmt.Errorf("%s: %w", HistoryTable, err)
	}
	return []string{pPath, hPath}, nil
}
