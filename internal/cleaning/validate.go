package cleaning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

// RulePostconditions names the final struct-tag check over every output row.
const RulePostconditions = "postconditions"

var validate = validator.New(validator.WithRequiredStructEnabled())

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		tag := fe.Tag()
		if fe.Param() != "" {
			tag += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s=%v fails %s", fe.Field(), fe.Value(), tag))
	}
	return strings.Join(parts, "; ")
}

// ValidatePatients checks the cleaned patients against their struct tags.
func ValidatePatients(rows []model.Patient) error {
	for i, r := range rows {
		if err := validate.Struct(r); err != nil {
			return structural(RulePostconditions, rowLabel(i+1, r.GivenName, r.Surname), "patients: %s", describe(err))
		}
	}
	return nil
}

// ValidateDedupSurnames checks that later rules did not drop the one row
// left for each deduplicated surname.
func ValidateDedupSurnames(rows []model.Patient, surnames []string) error {
	return checkSurnamesOnce(RulePostconditions, rows, surnames, func(p model.Patient) (int, string, string) {
		return p.PatientID, p.GivenName, p.Surname
	})
}

// ValidateTreatments checks reshaped treatments and the hba1c_change identity.
func ValidateTreatments(rows []model.Treatment) error {
	for _, r := range rows {
		label := rowLabel(r.Row, r.GivenName, r.Surname)
		if err := validate.Struct(r); err != nil {
			return structural(RulePostconditions, label, "treatments: %s", describe(err))
		}
		if r.HbA1cChange != r.HbA1cStart-r.HbA1cEnd {
			return structural(RulePostconditions, label, "treatments: hba1c_change %v != %v - %v",
				r.HbA1cChange, r.HbA1cStart, r.HbA1cEnd)
		}
	}
	return nil
}

// ValidateReactions checks cleaned adverse reactions.
func ValidateReactions(rows []model.AdverseReaction) error {
	for i, r := range rows {
		if err := validate.Struct(r); err != nil {
			return structural(RulePostconditions, rowLabel(i+1, r.GivenName, r.Surname), "adverse_reactions: %s", describe(err))
		}
	}
	return nil
}
