package cleaning

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

//go:embed corrections.yaml
var defaultCatalogue []byte

// Catalogue lists the record-level fixes applied to the patients table.
type Catalogue struct {
	Sentinels     []model.Identity `yaml:"sentinels"`
	DedupSurnames []string         `yaml:"dedup_surnames"`
	Removals      []model.Identity `yaml:"removals"`
	Corrections   []Correction     `yaml:"corrections"`
}

// Correction rewrites one field of the single record matching Identity.
// Either To is set, or Factor converts From (rounded to Round decimals).
type Correction struct {
	model.Identity `yaml:",inline"`
	Field          string  `yaml:"field"`
	From           string  `yaml:"from,omitempty"`
	To             string  `yaml:"to,omitempty"`
	Factor         float64 `yaml:"factor,omitempty"`
	Round          int     `yaml:"round,omitempty"`
	Note           string  `yaml:"note,omitempty"`
}

func (c Correction) String() string {
	return fmt.Sprintf("%s.%s", c.Identity, c.Field)
}

// Target returns the value the field holds once the correction is applied.
func (c Correction) Target() string {
	if c.Factor == 0 {
		return c.To
	}
	v, _ := strconv.ParseFloat(c.From, 64)
	v *= c.Factor
	if c.Round > 0 {
		p := math.Pow10(c.Round)
		v = math.Round(v*p) / p
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var correctableFields = []string{
	model.ColGivenName, model.ColSurname, model.ColAssignedSex, model.ColAddress,
	model.ColCity, model.ColState, model.ColZipCode, model.ColCountry, "email", "phone",
	model.ColBirthdate, model.ColWeight, model.ColHeight, model.ColBMI,
}

func field(p *model.PatientDraft, name string) *string {
	switch name {
	case model.ColGivenName:
		return &p.GivenName
	case model.ColSurname:
		return &p.Surname
	case model.ColAssignedSex:
		return &p.AssignedSex
	case model.ColAddress:
		return &p.Address
	case model.ColCity:
		return &p.City
	case model.ColState:
		return &p.State
	case model.ColZipCode:
		return &p.ZipCode
	case model.ColCountry:
		return &p.Country
	case "email":
		return &p.Email
	case "phone":
		return &p.Phone
	case model.ColBirthdate:
		return &p.Birthdate
	case model.ColWeight:
		return &p.Weight
	case model.ColHeight:
		return &p.Height
	case model.ColBMI:
		return &p.BMI
	}
	return nil
}

// DefaultCatalogue returns the embedded catalogue.
func DefaultCatalogue() (*Catalogue, error) {
	return ParseCatalogue(defaultCatalogue)
}

// LoadCatalogue reads a catalogue from path, or the embedded one when path is empty.
func LoadCatalogue(path string) (*Catalogue, error) {
	if path == "" {
		return DefaultCatalogue()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corrections: %w", err)
	}
	cat, err := ParseCatalogue(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalogue decodes and checks a YAML catalogue.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var cat Catalogue
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("parse corrections: %w", err)
	}
	for i, c := range cat.Corrections {
		switch {
		case strings.TrimSpace(c.Surname) == "":
			return nil, fmt.Errorf("correction %d: surname is required", i+1)
		case !slices.Contains(correctableFields, c.Field):
			return nil, fmt.Errorf("correction %d (%s): unknown field %q", i+1, c.Identity, c.Field)
		case c.Factor == 0 && c.To == "":
			return nil, fmt.Errorf("correction %d (%s): one of to or factor is required", i+1, c.Identity)
		case c.Factor != 0 && c.To != "":
			return nil, fmt.Errorf("correction %d (%s): to and factor are exclusive", i+1, c.Identity)
		}
		if c.Factor != 0 {
			if _, err := strconv.ParseFloat(c.From, 64); err != nil {
				return nil, fmt.Errorf("correction %d (%s): factor needs a numeric from", i+1, c.Identity)
			}
		}
	}
	for i, id := range append(slices.Clone(cat.Sentinels), cat.Removals...) {
		if strings.TrimSpace(id.Surname) == "" {
			return nil, fmt.Errorf("identity %d: surname is required", i+1)
		}
	}
	return &cat, nil
}

func sameValue(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}

// ApplyCorrections applies each correction to the single row it names. A
// correction that matches no row is returned in missed; one that matches
// several rows, or whose from no longer holds, is a structural error.
// A row already holding the target value is left alone.
func ApplyCorrections(rows []model.PatientDraft, corrections []Correction) (out []model.PatientDraft, applied int, missed []Correction, err error) {
	out = slices.Clone(rows)
	for _, c := range corrections {
		idx := -1
		for i := range out {
			if !c.Matches(out[i].GivenName, out[i].Surname) {
				continue
			}
			if idx >= 0 {
				return nil, 0, nil, structural(RuleApplyCorrections, c.Identity.String(),
					"%s matches rows #%d and #%d", c, out[idx].Row, out[i].Row)
			}
			idx = i
		}
		if idx < 0 {
			missed = append(missed, c)
			continue
		}
		p := field(&out[idx], c.Field)
		target := c.Target()
		if sameValue(*p, target) {
			continue
		}
		if c.From != "" && !sameValue(*p, c.From) {
			return nil, 0, nil, structural(RuleApplyCorrections, rowLabel(out[idx].Row, out[idx].GivenName, out[idx].Surname),
				"%s holds %q, expected %q", c, *p, c.From)
		}
		*p = target
		applied++
	}
	return out, applied, missed, nil
}
