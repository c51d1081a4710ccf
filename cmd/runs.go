package cmd

import (
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trialclean-cli/internal/run"
	"github.com/KaramelBytes/trialclean-cli/internal/utils"
)

var runsShowJSON bool

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List or inspect recorded clean runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		runs, err := run.List(c.RunsDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tPATIENTS\tHISTORY\tSTATUS")
		for _, m := range runs {
			status := "ok"
			if m.Error != "" {
				status = "failed"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", m.ID.String()[:8], m.StartedAt.Local().Format("2006-01-02 15:04:05"),
				m.Counts.Patients, m.Counts.History, status)
		}
		return tw.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run manifest by id or id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		m, err := run.Find(c.RunsDir, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runsShowJSON {
			b, err := utils.PrettyJSON(m)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(b))
			return err
		}
		fmt.Fprintf(out, "run: %s\n", m.ID)
		fmt.Fprintf(out, "started: %s\n", m.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if !m.FinishedAt.IsZero() {
			fmt.Fprintf(out, "duration: %s\n", m.FinishedAt.Sub(m.StartedAt).Round(time.Millisecond))
		}
		fmt.Fprintf(out, "data_dir: %s\n", m.DataDir)
		if m.Error != "" {
			fmt.Fprintf(out, "error: %s\n", m.Error)
		}
		fmt.Fprintln(out, "inputs:")
		for _, name := range sortedInputNames(m.Inputs) {
			fmt.Fprintf(out, "- %s: %d rows\n", name, m.Inputs[name])
		}
		fmt.Fprintln(out, "rules:")
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, s := range m.Rules {
			fmt.Fprintf(tw, "- %s\t%d -> %d\tchanged %d\n", s.Rule, s.RowsIn, s.RowsOut, s.Changed)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		k := m.Counts
		fmt.Fprintf(out, "counts: patients=%d treatments=%d adverse_reactions=%d history=%d with_reaction=%d unmatched=%d dropped_contacts=%d missed_corrections=%d\n",
			k.Patients, k.Treatments, k.AdverseReactions, k.History, k.WithReaction, k.Unmatched, k.DroppedContacts, k.MissedCorrections)
		fmt.Fprintln(out, "outputs:")
		for _, p := range m.Outputs {
			fmt.Fprintf(out, "- %s\n", p)
		}
		return nil
	},
}

func sortedInputNames(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsShowCmd.Flags().BoolVar(&runsShowJSON, "json", false, "print the raw run.json")
}
