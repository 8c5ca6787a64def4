// transform/common.go
package transform

import (
	"strings"
	"time"

	"github.com/nclcancer/survival/frame"
	"github.com/nclcancer/survival/utils"
)

// Columns the transforms derive.
const (
	ColAreaCore               = "area_core"
	ColDataSubstituted        = "data_substituted"
	ColDateUpload             = "date_upload"
	ColDateDiagnosisWindow    = "date_diagnosis_window"
	ColDateSnapshot           = "date_snapshot"
	ColStandardisationSubtype = "standardisation_type_subcategory"
	ColSurvivalMetric         = "survival_metric"
	ColSurvivalPercent        = "survival_percent"
)

// Persons is the gender label of generalised rows.
const Persons = "Persons"

// GeographySet is the set of core geography codes.
type GeographySet map[string]struct{}

// NewGeographySet builds a set from codes, ignoring blanks.
func NewGeographySet(codes ...string) GeographySet {
	s := make(GeographySet, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			s[c] = struct{}{}
		}
	}
	return s
}

// Has reports whether code is a core geography.
func (s GeographySet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Run carries the values shared by every file of one pipeline run.
type Run struct {
	Started time.Time
	Core    GeographySet
}

func constant(v any) func(frame.Row) any {
	return func(frame.Row) any { return v }
}

func textEquals(r frame.Row, col, want string) bool {
	s, ok := r.Text(col)
	return ok && s == want
}

// inScope keeps core geographies and every row of the alliance type.
func inScope(src SourceColumns, allianceType string, core GeographySet) func(frame.Row) bool {
	return func(r frame.Row) bool {
		return textEquals(r, src.GeographyType, allianceType) || isCore(r, src.GeographyCode, core)
	}
}

func isCore(r frame.Row, col string, core GeographySet) bool {
	code, ok := r.Text(col)
	return ok && core.Has(code)
}

// Generalise copies the rows matching rule with gender set to Persons. In
// ModeReplace the matched originals are dropped. Source rows are never
// modified.
func Generalise(t *frame.Table, src SourceColumns, rule GeneraliseRule) *frame.Table {
	match := func(r frame.Row) bool {
		if !textEquals(r, src.CancerSite, rule.Site) || !textEquals(r, src.Gender, rule.Gender) {
			return false
		}
		if rule.AgeAtDiagnosis != "" && !textEquals(r, src.AgeAtDiagnosis, rule.AgeAtDiagnosis) {
			return false
		}
		if rule.GeographyCode != "" && !textEquals(r, src.GeographyCode, rule.GeographyCode) {
			return false
		}
		return true
	}

	var persons []frame.Row
	for _, r := range t.Rows() {
		if match(r) {
			c := r.Clone()
			c[src.Gender] = Persons
			persons = append(persons, c)
		}
	}

	base := t
	if rule.Mode == ModeReplace {
		base = t.Filter(func(r frame.Row) bool { return !match(r) })
	}
	return base.Append(persons...)
}

func ruleColumns(src SourceColumns, rules []GeneraliseRule) []string {
	cols := []string{src.CancerSite, src.Gender}
	for _, r := range rules {
		if r.AgeAtDiagnosis != "" {
			cols = append(cols, src.AgeAtDiagnosis)
		}
		if r.GeographyCode != "" {
			cols = append(cols, src.GeographyCode)
		}
	}
	return cols
}

// FormatColumns normalizes every column name, applies out.Rename and then
// projects onto out.Columns under their destination names.
func FormatColumns(t *frame.Table, out Output) (*frame.Table, error) {
	t, err := t.RenameFunc(utils.NormalizeColumnName)
	if err != nil {
		return nil, err
	}
	if t, err = t.Rename(out.Rename); err != nil {
		return nil, err
	}
	names := make([]string, len(out.Columns))
	dest := make(map[string]string, len(out.Columns))
	for i, c := range out.Columns {
		names[i] = c.Name
		dest[c.Name] = c.As
	}
	if t, err = t.Select(names...); err != nil {
		return nil, err
	}
	return t.Rename(dest)
}
