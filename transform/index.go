// transform/index.go
package transform

import (
	"github.com/nclcancer/survival/frame"
)

// Index reshapes the raw "Table 5" sheet of an index workbook into the
// index destination layout.
func Index(raw *frame.Table, p IndexPolicy, run Run) (*frame.Table, error) {
	src := p.Source
	need := append([]string{src.GeographyType, src.GeographyCode, src.SubstitutedBy}, ruleColumns(src, p.Generalise)...)
	if err := raw.Require(need...); err != nil {
		return nil, err
	}

	t := raw.Filter(inScope(src, p.AllianceType, run.Core))
	t = t.WithColumn(ColAreaCore, func(r frame.Row) any { return isCore(r, src.GeographyCode, run.Core) })
	t = t.WithColumn(ColDataSubstituted, func(r frame.Row) any { return !r.IsNull(src.SubstitutedBy) })
	t = t.WithColumn(ColDateUpload, constant(run.Started))

	for _, rule := range p.Generalise {
		t = Generalise(t, src, rule)
	}

	t = relabel(t, src.CancerSite, p.SiteLabels)
	t = dropValues(t, src.CancerSite, p.DropSites)

	return FormatColumns(t, p.Output)
}

// relabel replaces whole cell values of col found in labels.
func relabel(t *frame.Table, col string, labels map[string]string) *frame.Table {
	if len(labels) == 0 {
		return t
	}
	return t.WithColumn(col, func(r frame.Row) any {
		if s, ok := r.Text(col); ok {
			if to, found := labels[s]; found {
				return to
			}
		}
		return r[col]
	})
}

func dropValues(t *frame.Table, col string, values []string) *frame.Table {
	if len(values) == 0 {
		return t
	}
	drop := make(map[string]bool, len(values))
	for _, v := range values {
		drop[v] = true
	}
	return t.Filter(func(r frame.Row) bool {
		s, ok := r.Text(col)
		return !ok || !drop[s]
	})
}
