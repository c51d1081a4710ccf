// Package merge folds the cleaned adverse reactions and patient ids into
// one treatment history table.
package merge

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

// ReactionSeparator joins several reactions recorded for one patient.
const ReactionSeparator = "; "

// AttachReactions left-joins reactions onto treatments by normalized name.
// Every treatment row is kept, in order; rows without a reaction get an
// empty AdverseReaction. Several distinct reactions for one person are
// joined with ReactionSeparator instead of repeating the treatment row.
func AttachReactions(treatments []model.Treatment, reactions []model.AdverseReaction) []model.TreatmentHistory {
	byKey := make(map[string][]string, len(reactions))
	for _, r := range reactions {
		key := model.NameKey(r.GivenName, r.Surname)
		reaction := strings.TrimSpace(r.Reaction)
		if reaction == "" || containsFold(byKey[key], reaction) {
			continue
		}
		byKey[key] = append(byKey[key], reaction)
	}

	out := make([]model.TreatmentHistory, len(treatments))
	for i, t := range treatments {
		out[i] = model.TreatmentHistory{
			GivenName:       t.GivenName,
			Surname:         t.Surname,
			Treatment:       t.Drug,
			StartDose:       t.StartDose,
			EndDose:         t.EndDose,
			HbA1cStart:      t.HbA1cStart,
			HbA1cEnd:        t.HbA1cEnd,
			HbA1cChange:     t.HbA1cChange,
			AdverseReaction: strings.Join(byKey[t.Identity().Key()], ReactionSeparator),
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// AttachPatientIDs sets PatientID on each history row whose name matches a
// patient. It returns a new slice, the number of rows left unmatched
// (PatientID 0) and the names shared by more than one patient. Rows with a
// shared name are left unmatched rather than given an arbitrary id.
func AttachPatientIDs(history []model.TreatmentHistory, patients []model.Patient) ([]model.TreatmentHistory, int, []string) {
	ids := make(map[string]int, len(patients))
	firstName := make(map[string]string, len(patients))
	var ambiguous []string
	for _, p := range patients {
		key := p.Identity().Key()
		prev, seen := ids[key]
		if !seen {
			ids[key] = p.PatientID
			firstName[key] = p.Identity().String()
			continue
		}
		if prev != 0 {
			ambiguous = append(ambiguous, firstName[key])
			ids[key] = 0
		}
	}
	out := make([]model.TreatmentHistory, len(history))
	unmatched := 0
	for i, h := range history {
		h.PatientID = ids[model.NameKey(h.GivenName, h.Surname)]
		if h.PatientID == 0 {
			unmatched++
		}
		out[i] = h
	}
	return out, unmatched, ambiguous
}

// Result is the merged table with its join statistics.
type Result struct {
	History      []model.TreatmentHistory
	WithReaction int
	Unmatched    int
	// Ambiguous lists patient names carried by more than one patient_id.
	Ambiguous []string
}

// BuildHistory runs both joins and logs the rows no patient matched.
func BuildHistory(treatments []model.Treatment, reactions []model.AdverseReaction, patients []model.Patient, log zerolog.Logger) Result {
	history := AttachReactions(treatments, reactions)
	with := 0
	for _, h := range history {
		if h.AdverseReaction != "" {
			with++
		}
	}
	history, unmatched, ambiguous := AttachPatientIDs(history, patients)
	for _, name := range ambiguous {
		log.Warn().Str("patient", name).Msg("several patients share this name; treatments left without patient_id")
	}
	for _, h := range history {
		if h.PatientID == 0 {
			log.Debug().Str("given_name", h.GivenName).Str("surname", h.Surname).Msg("treatment has no matching patient")
		}
	}
	if unmatched > 0 {
		log.Warn().Int("rows", unmatched).Msg("treatment rows without patient_id")
	}
	log.Info().Int("rows", len(history)).Int("with_reaction", with).Msg("treatment history built")
	return Result{History: history, WithReaction: with, Unmatched: unmatched, Ambiguous: ambiguous}
}
