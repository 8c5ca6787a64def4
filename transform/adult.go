// transform/adult.go
package transform

import (
	"strings"

	"github.com/nclcancer/survival/frame"
	"github.com/nclcancer/survival/utils"
)

// File identifies the workbook a table was read from.
type File struct {
	Name string
	// SnapshotDate is nil when the notes sheet gave no usable date.
	SnapshotDate *string
}

// Adult reshapes the raw "Table 4" sheet of an adult workbook into the long
// adult destination layout, one row per survival metric.
func Adult(raw *frame.Table, p AdultPolicy, run Run, file File) (*frame.Table, error) {
	src := p.Source
	need := append([]string{src.GeographyType, src.GeographyCode, src.StandardisationType}, ruleColumns(src, p.Generalise)...)
	if err := raw.Require(need...); err != nil {
		return nil, err
	}

	t := raw.Filter(inScope(src, p.AllianceType, run.Core))
	t = t.WithColumn(ColAreaCore, func(r frame.Row) any { return isCore(r, src.GeographyCode, run.Core) })
	t = decomposeStandardisation(t, src.StandardisationType, p.NonStandardised)

	var window, snapshot any
	if w, ok := utils.DiagnosisWindow(file.Name); ok {
		window = w
	}
	if file.SnapshotDate != nil {
		snapshot = *file.SnapshotDate
	}
	t = t.WithColumn(ColDateUpload, constant(run.Started))
	t = t.WithColumn(ColDateDiagnosisWindow, constant(window))
	t = t.WithColumn(ColDateSnapshot, constant(snapshot))

	for _, rule := range p.Generalise {
		t = Generalise(t, src, rule)
	}

	t, err := t.Melt(p.IDColumns, p.ValueColumns, ColSurvivalMetric, ColSurvivalPercent)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(p.ValueColumns))
	for _, v := range p.ValueColumns {
		labels[v] = MetricLabel(v, p.MetricSuffixes)
	}
	t = relabel(t, ColSurvivalMetric, labels)

	return FormatColumns(t, p.Output)
}

// SplitStandardisation splits "Age-standardised (ICSS 1)" into its base
// category and the parenthesised subcategory. The subcategory is nil when
// there are no brackets or the base is nonStandardised.
func SplitStandardisation(v, nonStandardised string) (base string, sub *string) {
	base = strings.TrimSpace(v)
	if i := strings.Index(v, "("); i >= 0 {
		base = strings.TrimSpace(v[:i])
		rest := v[i+1:]
		if j := strings.Index(rest, ")"); j >= 0 {
			rest = rest[:j]
		}
		sub = &rest
	}
	if base == nonStandardised {
		sub = nil
	}
	return base, sub
}

func decomposeStandardisation(t *frame.Table, col, nonStandardised string) *frame.Table {
	// subcategory first: it reads the undecomposed value
	t = t.WithColumn(ColStandardisationSubtype, func(r frame.Row) any {
		if s, ok := r.Text(col); ok {
			if _, sub := SplitStandardisation(s, nonStandardised); sub != nil {
				return *sub
			}
		}
		return nil
	})
	return t.WithColumn(col, func(r frame.Row) any {
		if s, ok := r.Text(col); ok {
			base, _ := SplitStandardisation(s, nonStandardised)
			return base
		}
		return r[col]
	})
}

// MetricLabel turns a value column header into a metric name by removing
// each of suffixes from the end (case-insensitively, in order) and title
// casing what is left. e.g. "Net survival (%)" -> "Net".
func MetricLabel(header string, suffixes []string) string {
	s := strings.TrimSpace(header)
	for _, suf := range suffixes {
		if n := len(s) - len(suf); n >= 0 && strings.EqualFold(s[n:], suf) {
			s = strings.TrimSpace(s[:n])
		}
	}
	return utils.TitleCase(s)
}
