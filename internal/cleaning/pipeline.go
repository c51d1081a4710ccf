package cleaning

import (
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

// Input holds the raw tables a clean run starts from.
type Input struct {
	Patients         []model.RawPatient
	Treatments       []model.RawTreatment
	TreatmentsCut    []model.RawTreatment
	AdverseReactions []model.RawAdverseReaction
}

// Options configures Run.
type Options struct {
	// ExpectedTreatments is the treatments row count after restore; <= 0 disables the check.
	ExpectedTreatments int
	// Catalogue defaults to the embedded one when nil.
	Catalogue *Catalogue
	Logger    zerolog.Logger
}

// Stat records one rule application.
type Stat struct {
	Rule    string `json:"rule"`
	RowsIn  int    `json:"rows_in"`
	RowsOut int    `json:"rows_out"`
	Changed int    `json:"changed"`
}

// Result is the cleaned dataset plus per-rule statistics.
type Result struct {
	Patients          []model.Patient
	Treatments        []model.Treatment
	AdverseReactions  []model.AdverseReaction
	Stats             []Stat
	DroppedContacts   int
	MissedCorrections []Correction
}

type recorder struct {
	log   zerolog.Logger
	stats []Stat
}

func (r *recorder) record(rule string, in, out, changed int) {
	r.stats = append(r.stats, Stat{Rule: rule, RowsIn: in, RowsOut: out, Changed: changed})
	r.log.Info().Str("rule", rule).Int("rows_in", in).Int("rows_out", out).Int("changed", changed).Msg("rule applied")
}

// Run applies every rule in order and checks the post-conditions. The input
// slices are not modified.
func Run(in Input, opts Options) (*Result, error) {
	cat := opts.Catalogue
	if cat == nil {
		var err error
		if cat, err = DefaultCatalogue(); err != nil {
			return nil, err
		}
	}
	rec := &recorder{log: opts.Logger}
	res := &Result{}

	// treatments
	raw, err := RestoreMissingRows(in.Treatments, in.TreatmentsCut, opts.ExpectedTreatments)
	if err != nil {
		return nil, err
	}
	rec.record(RuleRestoreMissingRows, len(in.Treatments), len(raw), len(in.TreatmentsCut))

	treatments, err := ParseTreatments(raw)
	if err != nil {
		return nil, err
	}
	rec.record(RuleParseTreatments, len(raw), len(treatments), 0)

	n := len(treatments)
	treatments, changed := RecomputeHbA1cChange(treatments)
	rec.record(RuleRecomputeHbA1c, n, len(treatments), changed)

	if treatments, changed, err = ReshapeDoses(treatments); err != nil {
		return nil, err
	}
	rec.record(RuleReshapeDoses, n, len(treatments), changed)

	treatments, changed = CapitalizeTreatmentNames(treatments)
	rec.record(RuleCapitalizeTreatments, n, len(treatments), changed)

	// adverse reactions
	reactions, err := ParseAdverseReactions(in.AdverseReactions)
	if err != nil {
		return nil, err
	}
	rec.record(RuleParseReactions, len(in.AdverseReactions), len(reactions), 0)

	n = len(reactions)
	reactions, changed = CapitalizeReactionNames(reactions)
	rec.record(RuleCapitalizeReactions, n, len(reactions), changed)

	// patients
	drafts := ToDrafts(in.Patients)
	n = len(drafts)
	drafts, removed := RemoveSentinels(drafts, cat.Sentinels)
	rec.record(RuleRemoveSentinels, n, len(drafts), removed)

	n = len(drafts)
	if drafts, removed, err = RemoveDuplicates(drafts, cat.Removals, cat.DedupSurnames); err != nil {
		return nil, err
	}
	rec.record(RuleRemoveDuplicates, n, len(drafts), removed)

	n = len(drafts)
	if drafts, res.DroppedContacts, err = SplitContact(drafts); err != nil {
		return nil, err
	}
	if res.DroppedContacts > 0 {
		opts.Logger.Warn().Int("rows", res.DroppedContacts).Msg("dropped patients without contact information")
	}
	rec.record(RuleSplitContact, n, len(drafts), len(drafts))

	n = len(drafts)
	if drafts, changed, err = NormalizePhone(drafts); err != nil {
		return nil, err
	}
	rec.record(RuleNormalizePhone, n, len(drafts), changed)

	var applied int
	if drafts, applied, res.MissedCorrections, err = ApplyCorrections(drafts, cat.Corrections); err != nil {
		return nil, err
	}
	for _, c := range res.MissedCorrections {
		opts.Logger.Debug().Str("correction", c.String()).Msg("correction matched no row")
	}
	rec.record(RuleApplyCorrections, n, len(drafts), applied)

	if drafts, changed, err = NormalizeState(drafts); err != nil {
		return nil, err
	}
	rec.record(RuleNormalizeState, n, len(drafts), changed)

	if drafts, changed, err = NormalizeZip(drafts); err != nil {
		return nil, err
	}
	rec.record(RuleNormalizeZip, n, len(drafts), changed)

	patients, err := ParsePatients(drafts)
	if err != nil {
		return nil, err
	}
	rec.record(RuleParsePatients, n, len(patients), 0)

	if err := ValidateTreatments(treatments); err != nil {
		return nil, err
	}
	if err := ValidateReactions(reactions); err != nil {
		return nil, err
	}
	if err := ValidatePatients(patients); err != nil {
		return nil, err
	}
	if err := ValidateDedupSurnames(patients, cat.DedupSurnames); err != nil {
		return nil, err
	}

	res.Patients = patients
	res.Treatments = treatments
	res.AdverseReactions = reactions
	res.Stats = rec.stats
	return res, nil
}
