package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trialclean-cli/internal/cleaning"
	"github.com/KaramelBytes/trialclean-cli/internal/export"
	"github.com/KaramelBytes/trialclean-cli/internal/merge"
	"github.com/KaramelBytes/trialclean-cli/internal/run"
	"github.com/KaramelBytes/trialclean-cli/internal/table"
	"github.com/KaramelBytes/trialclean-cli/internal/utils"
)

var (
	cleanDataDir     string
	cleanOutDir      string
	cleanFormats     []string
	cleanPGDSN       string
	cleanPGSchema    string
	cleanExpected    int
	cleanCorrections string
	cleanNoManifest  bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the trial tables and write patients_clean and treatment_history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		dataDir, err := resolveDataDir(cleanDataDir, c.DataDir)
		if err != nil {
			return err
		}
		outDir := cleanOutDir
		if outDir == "" {
			outDir = c.OutDir
		}
		formats := cleanFormats
		if !cmd.Flags().Changed("format") {
			formats = c.OutputFormats
		}
		if formats, err = export.ParseFormats(formats); err != nil {
			return err
		}
		expected := c.ExpectedTreatments
		if cmd.Flags().Changed("expected-treatments") {
			expected = cleanExpected
		}
		corrections := cleanCorrections
		if corrections == "" {
			corrections = c.CorrectionsFile
		}
		dsn, schema := cleanPGDSN, cleanPGSchema
		if dsn == "" {
			dsn = c.PGDSN
		}
		if schema == "" {
			schema = c.PGSchema
		}

		m := run.New(c.RunsDir, dataDir)
		if !cleanNoManifest {
			defer func() {
				m.Finish(err)
				if saveErr := m.Save(); saveErr != nil {
					log.Warn().Err(saveErr).Msg("save run manifest")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "✓ Run %s recorded in %s\n", m.ID, m.Dir())
				}
			}()
		}
		rlog := log.With().Str("run", m.ID.String()).Logger()
		rlog.Info().Str("data_dir", dataDir).Msg("loading dataset")

		ds, err := table.LoadDataset(dataDir)
		if err != nil {
			return err
		}
		in, err := decodeDataset(ds)
		if err != nil {
			return err
		}
		for _, f := range ds.Frames() {
			m.Inputs[f.Name] = f.Len()
		}

		cat, err := cleaning.LoadCatalogue(corrections)
		if err != nil {
			return err
		}
		res, err := cleaning.Run(in, cleaning.Options{ExpectedTreatments: expected, Catalogue: cat, Logger: rlog})
		m.Rules = nil
		if res != nil {
			m.Rules = res.Stats
		}
		if err != nil {
			return err
		}
		for _, miss := range res.MissedCorrections {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: correction matched no row: %s\n", miss)
		}

		hist := merge.BuildHistory(res.Treatments, res.AdverseReactions, res.Patients, rlog)
		m.Counts = run.Counts{
			Patients:          len(res.Patients),
			Treatments:        len(res.Treatments),
			AdverseReactions:  len(res.AdverseReactions),
			History:           len(hist.History),
			WithReaction:      hist.WithReaction,
			Unmatched:         hist.Unmatched,
			DroppedContacts:   res.DroppedContacts,
			MissedCorrections: len(res.MissedCorrections),
		}

		bundle := export.Bundle{Patients: res.Patients, History: hist.History}
		paths, err := export.Write(outDir, formats, bundle)
		m.Outputs = append(m.Outputs, paths...)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", p)
		}

		if dsn != "" {
			sink, err := export.NewPGSink(cmd.Context(), dsn, schema)
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer sink.Close()
			copied, err := sink.Write(cmd.Context(), bundle.Tables())
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			for _, name := range []string{export.PatientsTable, export.HistoryTable} {
				m.Outputs = append(m.Outputs, fmt.Sprintf("postgres:%s.%s", schema, name))
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Copied %d rows into %s.%s\n", copied[name], schema, name)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleaned %d patients, %d treatments (%d with adverse reaction, %d unmatched)\n",
			m.Counts.Patients, m.Counts.History, m.Counts.WithReaction, m.Counts.Unmatched)
		return nil
	},
}

// resolveDataDir picks the flag, then config, then walks up from the working
// directory to the first one holding all four input tables.
func resolveDataDir(flagVal, cfgVal string) (string, error) {
	dir := flagVal
	if dir == "" {
		dir = cfgVal
	}
	if dir == "" {
		found, err := utils.FindDataDir("", table.PatientsFile, table.TreatmentsFile, table.TreatmentsCutFile, table.AdverseReactionsFile)
		if err != nil {
			return "", fmt.Errorf("no data dir given: %w", err)
		}
		dir = found
	}
	return filepath.Abs(dir)
}

func decodeDataset(ds *table.Dataset) (cleaning.Input, error) {
	var in cleaning.Input
	var err error
	if in.Patients, err = table.DecodePatients(ds.Patients); err != nil {
		return in, err
	}
	if in.Treatments, err = table.DecodeTreatments(ds.Treatments); err != nil {
		return in, err
	}
	if in.TreatmentsCut, err = table.DecodeTreatments(ds.TreatmentsCut); err != nil {
		return in, err
	}
	in.AdverseReactions, err = table.DecodeAdverseReactions(ds.AdverseReactions)
	return in, err
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVar(&cleanDataDir, "data-dir", "", "directory holding patients.csv, treatments.csv, treatments_cut.csv, adverse_reactions.csv")
	cleanCmd.Flags().StringVarP(&cleanOutDir, "out-dir", "o", "", "output directory (default from config: clean)")
	cleanCmd.Flags().StringSliceVarP(&cleanFormats, "format", "f", nil, "output formats: csv,xlsx,parquet")
	cleanCmd.Flags().StringVar(&cleanPGDSN, "pg", "", "Postgres DSN; when set, tables are also copied into Postgres")
	cleanCmd.Flags().StringVar(&cleanPGSchema, "pg-schema", "", "Postgres schema (default from config: public)")
	cleanCmd.Flags().IntVar(&cleanExpected, "expected-treatments", 0, "treatments row count after restoring the cut rows; 0 disables the check")
	cleanCmd.Flags().StringVar(&cleanCorrections, "corrections", "", "YAML correction catalogue (default: built-in)")
	cleanCmd.Flags().BoolVar(&cleanNoManifest, "no-manifest", false, "do not record a run manifest")
}
