package table

import (
	"fmt"
	"path/filepath"
)

// Dataset bundles the four inputs of a clean run.
type Dataset struct {
	Patients         *Frame
	Treatments       *Frame
	TreatmentsCut    *Frame
	AdverseReactions *Frame
}

// Standard file names inside a data directory.
const (
	PatientsFile         = "patients.csv"
	TreatmentsFile       = "treatments.csv"
	TreatmentsCutFile    = "treatments_cut.csv"
	AdverseReactionsFile = "adverse_reactions.csv"
)

// LoadDataset reads the four standard files from dir.
func LoadDataset(dir string) (*Dataset, error) {
	var ds Dataset
	for _, item := range []struct {
		file string
		dst  **Frame
	}{
		{PatientsFile, &ds.Patients},
		{TreatmentsFile, &ds.Treatments},
		{TreatmentsCutFile, &ds.TreatmentsCut},
		{AdverseReactionsFile, &ds.AdverseReactions},
	} {
		f, err := Load(filepath.Join(dir, item.file), Options{})
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", item.file, err)
		}
		*item.dst = f
	}
	return &ds, nil
}

// Frames returns the loaded tables in a stable order.
func (d *Dataset) Frames() []*Frame {
	return []*Frame{d.Patients, d.Treatments, d.TreatmentsCut, d.AdverseReactions}
}
