package cleaning

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/trialclean-cli/internal/model"
)

// Rule names for the patients table.
const (
	RuleRemoveSentinels  = "patients.remove-sentinels"
	RuleRemoveDuplicates = "patients.remove-duplicates"
	RuleSplitContact     = "patients.split-contact"
	RuleNormalizePhone   = "patients.normalize-phone"
	RuleApplyCorrections = "patients.apply-corrections"
	RuleNormalizeState   = "patients.normalize-state"
	RuleNormalizeZip     = "patients.normalize-zip"
	RuleParsePatients    = "patients.parse-types"
)

var (
	phoneRe = regexp.MustCompile(`(?:\+\d{1,2}\s)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	// digits are allowed in the local part, so a phone glued in front of
	// the address is swallowed by the match and trimmed off afterwards.
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

var birthdateLayouts = []string{"1/2/2006", "2006-01-02"}

// ToDrafts copies raw patient rows into the working string shape.
func ToDrafts(rows []model.RawPatient) []model.PatientDraft {
	out := make([]model.PatientDraft, len(rows))
	for i, r := range rows {
		out[i] = model.PatientDraft{
			Row:         r.Row,
			PatientID:   r.PatientID,
			AssignedSex: r.AssignedSex,
			GivenName:   r.GivenName,
			Surname:     r.Surname,
			Address:     r.Address,
			City:        r.City,
			State:       r.State,
			ZipCode:     r.ZipCode,
			Country:     r.Country,
			Contact:     r.Contact,
			Birthdate:   r.Birthdate,
			Weight:      r.Weight,
			Height:      r.Height,
			BMI:         r.BMI,
		}
	}
	return out
}

func matchesAny(ids []model.Identity, who model.Identity) bool {
	for _, id := range ids {
		if id.Matches(who.GivenName, who.Surname) {
			return true
		}
	}
	return false
}

// RemoveSentinels drops placeholder records. It returns the rows kept and
// how many were removed.
func RemoveSentinels(rows []model.PatientDraft, sentinels []model.Identity) ([]model.PatientDraft, int) {
	out := make([]model.PatientDraft, 0, len(rows))
	for _, r := range rows {
		if matchesAny(sentinels, r.Identity()) {
			continue
		}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// RemoveDuplicates drops the records named in removals and then checks that
// every surname in dedupSurnames occurs exactly once.
func RemoveDuplicates(rows []model.PatientDraft, removals []model.Identity, dedupSurnames []string) ([]model.PatientDraft, int, error) {
	out := make([]model.PatientDraft, 0, len(rows))
	for _, r := range rows {
		if matchesAny(removals, r.Identity()) {
			continue
		}
		out = append(out, r)
	}
	if err := checkSurnamesOnce(RuleRemoveDuplicates, out, dedupSurnames, func(r model.PatientDraft) (int, string, string) {
		return r.Row, r.GivenName, r.Surname
	}); err != nil {
		return nil, 0, err
	}
	return out, len(rows) - len(out), nil
}

// checkSurnamesOnce fails unless each surname matches exactly one row.
func checkSurnamesOnce[T any](rule string, rows []T, surnames []string, identity func(T) (int, string, string)) error {
	for _, surname := range surnames {
		var hits []string
		for _, r := range rows {
			row, given, sn := identity(r)
			if strings.EqualFold(strings.TrimSpace(sn), strings.TrimSpace(surname)) {
				hits = append(hits, rowLabel(row, given, sn))
			}
		}
		switch len(hits) {
		case 1:
		case 0:
			return structural(rule, "", "surname %s must occur exactly once, found none", surname)
		default:
			return structural(rule, "", "surname %s must occur exactly once, found %d: %s",
				surname, len(hits), strings.Join(hits, ", "))
		}
	}
	return nil
}

// SplitContactValue extracts the phone and email embedded in one contact cell.
func SplitContactValue(contact string) (phone, email string, ok bool) {
	p := phoneRe.FindStringIndex(contact)
	e := emailRe.FindStringIndex(contact)
	if p == nil || e == nil {
		return "", "", false
	}
	phone = contact[p[0]:p[1]]
	start := e[0]
	if start < p[1] && p[0] < e[1] {
		start = max(start, p[1])
	}
	email = strings.TrimLeft(contact[start:e[1]], "._%+-")
	if at := strings.IndexByte(email, '@'); at <= 0 {
		return "", "", false
	}
	return phone, email, true
}

// SplitContact fills Email and Phone from Contact and clears Contact. Rows
// with an empty contact are dropped; their count is returned.
func SplitContact(rows []model.PatientDraft) ([]model.PatientDraft, int, error) {
	out := make([]model.PatientDraft, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		if r.Contact == "" {
			if r.Email != "" && r.Phone != "" {
				out = append(out, r)
				continue
			}
			dropped++
			continue
		}
		phone, email, ok := SplitContactValue(r.Contact)
		if !ok {
			return nil, 0, pattern(RuleSplitContact, rowLabel(r.Row, r.GivenName, r.Surname),
				"contact %q does not hold both a phone number and an email", r.Contact)
		}
		r.Phone, r.Email, r.Contact = phone, email, ""
		out = append(out, r)
	}
	return out, dropped, nil
}

// NormalizePhoneValue reduces a phone number to 11 digits with a leading 1.
func NormalizePhoneValue(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	switch {
	case len(d) == 10:
		return "1" + d, true
	case len(d) == 11 && d[0] == '1':
		return d, true
	}
	return "", false
}

// NormalizePhone rewrites every phone into the 11-digit form.
func NormalizePhone(rows []model.PatientDraft) ([]model.PatientDraft, int, error) {
	out := slices.Clone(rows)
	changed := 0
	for i := range out {
		v, ok := NormalizePhoneValue(out[i].Phone)
		if !ok {
			return nil, 0, pattern(RuleNormalizePhone, rowLabel(out[i].Row, out[i].GivenName, out[i].Surname),
				"phone %q is not a 10 or 11 digit number", out[i].Phone)
		}
		if v != out[i].Phone {
			changed++
		}
		out[i].Phone = v
	}
	return out, changed, nil
}

// NormalizeState maps full state names to their two-letter codes.
func NormalizeState(rows []model.PatientDraft) ([]model.PatientDraft, int, error) {
	out := slices.Clone(rows)
	changed := 0
	for i := range out {
		code, ok := StateCode(out[i].State)
		if !ok {
			return nil, 0, pattern(RuleNormalizeState, rowLabel(out[i].Row, out[i].GivenName, out[i].Surname),
				"unknown state %q", out[i].State)
		}
		if code != out[i].State {
			changed++
		}
		out[i].State = code
	}
	return out, changed, nil
}

// NormalizeZipValue turns "2138.0" into "02138". Fractional digits are
// truncated, so "2138.5" is "02138" too.
func NormalizeZipValue(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if !allDigits(s[i+1:]) {
			return "", false
		}
		s = s[:i]
	}
	if s == "" || len(s) > 5 || !allDigits(s) {
		return "", false
	}
	return strings.Repeat("0", 5-len(s)) + s, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeZip rewrites every zip code as five digits.
func NormalizeZip(rows []model.PatientDraft) ([]model.PatientDraft, int, error) {
	out := slices.Clone(rows)
	changed := 0
	for i := range out {
		v, ok := NormalizeZipValue(out[i].ZipCode)
		if !ok {
			return nil, 0, pattern(RuleNormalizeZip, rowLabel(out[i].Row, out[i].GivenName, out[i].Surname),
				"zip_code %q is not a 5 digit code", out[i].ZipCode)
		}
		if v != out[i].ZipCode {
			changed++
		}
		out[i].ZipCode = v
	}
	return out, changed, nil
}

// ParseBirthdate accepts M/D/YYYY and YYYY-MM-DD.
func ParseBirthdate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParsePatients decodes working rows into typed patients.
func ParsePatients(rows []model.PatientDraft) ([]model.Patient, error) {
	out := make([]model.Patient, 0, len(rows))
	for _, r := range rows {
		label := rowLabel(r.Row, r.GivenName, r.Surname)
		id, err := strconv.Atoi(strings.TrimSpace(r.PatientID))
		if err != nil {
			return nil, pattern(RuleParsePatients, label, "patient_id %q is not an integer", r.PatientID)
		}
		sex := model.Sex(strings.ToLower(strings.TrimSpace(r.AssignedSex)))
		if sex != model.SexMale && sex != model.SexFemale {
			return nil, pattern(RuleParsePatients, label, "assigned_sex %q is not male or female", r.AssignedSex)
		}
		birth, ok := ParseBirthdate(r.Birthdate)
		if !ok {
			return nil, pattern(RuleParsePatients, label, "birthdate %q is not M/D/YYYY", r.Birthdate)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(r.Weight), 64)
		if err != nil {
			return nil, pattern(RuleParsePatients, label, "weight %q is not a number", r.Weight)
		}
		h, err := strconv.ParseFloat(strings.TrimSpace(r.Height), 64)
		if err != nil || h != math.Trunc(h) {
			return nil, pattern(RuleParsePatients, label, "height %q is not a whole number of inches", r.Height)
		}
		bmi, err := strconv.ParseFloat(strings.TrimSpace(r.BMI), 64)
		if err != nil {
			return nil, pattern(RuleParsePatients, label, "bmi %q is not a number", r.BMI)
		}
		out = append(out, model.Patient{
			PatientID:   id,
			AssignedSex: sex,
			GivenName:   r.GivenName,
			Surname:     r.Surname,
			Address:     r.Address,
			City:        r.City,
			State:       r.State,
			ZipCode:     r.ZipCode,
			Country:     r.Country,
			Email:       r.Email,
			Phone:       r.Phone,
			Birthdate:   birth,
			Weight:      weight,
			Height:      int(h),
			BMI:         bmi,
		})
	}
	return out, nil
}
