package transform

import (
	"testing"
	"time"

	"github.com/nclcancer/survival/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var started = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func policies(t *testing.T) Policies {
	t.Helper()
	p, err := DefaultPolicies()
	require.NoError(t, err)
	return p
}

func testRun() Run {
	return Run{Started: started, Core: NewGeographySet("E92000001", "E56000027")}
}

var indexColumns = []string{
	"Geography type", "Geography name", "Geography code", "Cancer site", "Gender",
	"Age at diagnosis", "Standardisation type", "Diagnosis year", "Years since diagnosis",
	"Patient numbers", "Survival (%)\n", "Lower CI", "Upper CI", "Precision", "Standard error",
	"Substituted by Other Geography",
}

func indexRow(geoType, code, site, gender, age string, substituted any) frame.Row {
	return frame.Row{
		"Geography type":                 geoType,
		"Geography name":                 "Area " + code,
		"Geography code":                 code,
		"Cancer site":                    site,
		"Gender":                         gender,
		"Age at diagnosis":               age,
		"Standardisation type":           "Age-standardised",
		"Diagnosis year":                 2020.0,
		"Years since diagnosis":          1.0,
		"Patient numbers":                1200.0,
		"Survival (%)\n":                 74.6,
		"Lower CI":                       73.1,
		"Upper CI":                       76.0,
		"Precision":                      1.5,
		"Standard error":                 0.7,
		"Substituted by Other Geography": substituted,
	}
}

func rawIndex() *frame.Table {
	return frame.New(indexColumns,
		indexRow("Country", "E92000001", "Index", "Persons", "All ages", nil),
		indexRow("Cancer Alliance", "E56000001", "Index", "Persons", "All ages", nil),
		indexRow("Sub-ICB", "E38000001", "Index", "Persons", "All ages", nil),
		indexRow("Cancer Alliance", "E56000027", "Breast", "Female", "All ages", "E40000003"),
		indexRow("Cancer Alliance", "E56000027", "Breast", "Female", "15-44", nil),
		indexRow("Country", "E92000001", "Other", "Persons", "All ages", nil),
	)
}

func column(tbl *frame.Table, col string) []any {
	return tbl.Column(col)
}

func TestDefaultPolicies(t *testing.T) {
	p := policies(t)
	assert.Equal(t, "Table 5", p.Index.Sheet)
	assert.Equal(t, 10, p.Index.SkipRows)
	assert.Equal(t, "Table 4", p.Adult.Sheet)
	assert.Equal(t, 9, p.Adult.SkipRows)
	assert.Equal(t, 10, p.Adult.NotesSkipRows)
	assert.Equal(t, ModeReplace, p.Index.Generalise[0].Mode)
	assert.Len(t, p.Sources, 2)
}

func TestParsePoliciesRejects(t *testing.T) {
	_, err := ParsePolicies([]byte("index:\n  sheet_name: Table 5\n"))
	assert.Error(t, err, "unknown keys are rejected")

	p := policies(t)
	p.Adult.Generalise = append(p.Adult.Generalise, GeneraliseRule{Site: "Larynx", Gender: "Male", Mode: "merge"})
	assert.ErrorContains(t, p.Validate(), "unknown mode")

	p = policies(t)
	p.Index.SkipRows = -1
	assert.Error(t, p.Validate())

	p = policies(t)
	p.Adult.FilePrefix = p.Index.FilePrefix
	assert.Error(t, p.Validate())
}

func TestIndex(t *testing.T) {
	p := policies(t)
	out, err := Index(rawIndex(), p.Index, testRun())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"AREA_NAME", "AREA_CODE", "IS_AREA_CORE", "CANCER_SITE", "GENDER", "AGE_AT_DIAGNOSIS",
		"STANDARDISATION_TYPE", "YEAR_OF_DIAGNOSIS", "YEARS_SINCE_DIAGNOSIS", "PATIENT_NUMBERS",
		"SURVIVAL_PERCENT", "LOWER_CI", "UPPER_CI", "PRECISION", "STANDARD_ERROR",
		"IS_DATA_SUBSTITUTED", "DATE_UPLOAD",
	}, out.Columns())

	// Sub-ICB row is out of scope, Other is dropped.
	require.Equal(t, 4, out.Len())

	for _, r := range out.Rows() {
		assert.NotEqual(t, "Index", r["CANCER_SITE"])
		assert.NotEqual(t, "Other", r["CANCER_SITE"])
		code := r["AREA_CODE"].(string)
		assert.Equal(t, code == "E92000001" || code == "E56000027", r["IS_AREA_CORE"], code)
		assert.Equal(t, started, r["DATE_UPLOAD"])
		assert.Equal(t, 74.6, r["SURVIVAL_PERCENT"])
	}

	assert.Equal(t, []any{"Overall", "Overall", "Breast", "Breast"}, column(out, "CANCER_SITE"))
	assert.Equal(t, []any{"Persons", "Persons", "Female", "Persons"}, column(out, "GENDER"))
	assert.Equal(t, []any{"15-44", "All ages"}, column(out, "AGE_AT_DIAGNOSIS")[2:])
	assert.Equal(t, []any{false, false, false, true}, column(out, "IS_DATA_SUBSTITUTED"))
}

func TestIndexMissingColumn(t *testing.T) {
	raw := frame.New([]string{"Geography code", "Cancer site"}, frame.Row{"Geography code": "E92000001", "Cancer site": "Index"})
	_, err := Index(raw, policies(t).Index, testRun())
	var mc *frame.MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Contains(t, mc.Columns, "Substituted by Other Geography")
}

func TestIndexSurvivalHeaderWithNewline(t *testing.T) {
	out, err := Index(rawIndex(), policies(t).Index, testRun())
	require.NoError(t, err)
	assert.True(t, out.HasColumn("SURVIVAL_PERCENT"))
}

func TestGeneraliseReplaceIsIdempotent(t *testing.T) {
	p := policies(t).Index
	rule := p.Generalise[0]
	once := Generalise(rawIndex(), p.Source, rule)
	twice := Generalise(once, p.Source, rule)

	assert.Equal(t, once.Len(), twice.Len())
	assert.Equal(t, column(once, "Gender"), column(twice, "Gender"))
	assert.Equal(t, rawIndex().Len(), once.Len())
}

func TestGeneraliseAddDuplicates(t *testing.T) {
	p := policies(t).Adult
	rule := GeneraliseRule{Site: "Prostate", Gender: "Male", Mode: ModeAdd}
	raw := frame.New([]string{"Cancer site", "Gender"}, frame.Row{"Cancer site": "Prostate", "Gender": "Male"})

	once := Generalise(raw, p.Source, rule)
	assert.Equal(t, []any{"Male", "Persons"}, column(once, "Gender"))
	assert.Equal(t, "Male", raw.Rows()[0]["Gender"], "source rows are not modified")

	twice := Generalise(once, p.Source, rule)
	assert.Equal(t, []any{"Male", "Persons", "Persons"}, column(twice, "Gender"))
}

func TestSplitStandardisation(t *testing.T) {
	sub := func(s string) *string { return &s }
	tests := []struct {
		in   string
		base string
		sub  *string
	}{
		{"Age-standardised (ICSS 1)", "Age-standardised", sub("ICSS 1")},
		{"Non-standardised", "Non-standardised", nil},
		{"Non-standardised (crude)", "Non-standardised", nil},
		{"Age-standardised", "Age-standardised", nil},
		{"Age-standardised (ICSS 2", "Age-standardised", sub("ICSS 2")},
	}
	for _, tt := range tests {
		base, s := SplitStandardisation(tt.in, "Non-standardised")
		assert.Equal(t, tt.base, base, tt.in)
		assert.Equal(t, tt.sub, s, tt.in)
	}
}

func TestMetricLabel(t *testing.T) {
	suffixes := []string{"(%)", "survival"}
	assert.Equal(t, "Net", MetricLabel("Net survival (%)", suffixes))
	assert.Equal(t, "Overall", MetricLabel("Overall survival (%)", suffixes))
	assert.Equal(t, "Relative", MetricLabel("relative Survival", suffixes))
}

var adultColumns = []string{
	"Geography type", "Geography name", "Geography code", "Cancer site", "Gender",
	"Standardisation type", "Years since diagnosis", "Patients", "Net survival (%)",
	"Overall survival (%)", "Lower CI",
}

func adultRow(geoType, code, site, gender, std string) frame.Row {
	return frame.Row{
		"Geography type":        geoType,
		"Geography name":        "Area " + code,
		"Geography code":        code,
		"Cancer site":           site,
		"Gender":                gender,
		"Standardisation type":  std,
		"Years since diagnosis": 5.0,
		"Patients":              800.0,
		"Net survival (%)":      70.2,
		"Overall survival (%)":  55.1,
		"Lower CI":              60.0,
	}
}

func TestAdultUnpivot(t *testing.T) {
	p := policies(t)
	raw := frame.New(adultColumns, adultRow("Country", "E92000001", "Lung", "Persons", "Age-standardised (ICSS 1)"))
	snapshot := "March 2024"

	out, err := Adult(raw, p.Adult, testRun(), File{Name: "adult_lung_2015_2019.xlsx", SnapshotDate: &snapshot})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"AREA_TYPE", "AREA_CODE", "AREA_NAME", "IS_AREA_CORE", "CANCER_SITE", "GENDER",
		"STANDARDISATION_TYPE", "STANDARDISATION_TYPE_SUBCATEGORY", "YEARS_SINCE_DIAGNOSIS",
		"PATIENT_NUMBERS", "SURVIVAL_METRIC", "SURVIVAL_PERCENT", "DATE_UPLOAD",
		"DATE_DIAGNOSIS_WINDOW", "DATE_SNAPSHOT",
	}, out.Columns())
	require.Equal(t, 2, out.Len())

	assert.Equal(t, []any{"Net", "Overall"}, column(out, "SURVIVAL_METRIC"))
	assert.Equal(t, []any{70.2, 55.1}, column(out, "SURVIVAL_PERCENT"))
	for _, r := range out.Rows() {
		assert.Equal(t, "Age-standardised", r["STANDARDISATION_TYPE"])
		assert.Equal(t, "ICSS 1", r["STANDARDISATION_TYPE_SUBCATEGORY"])
		assert.Equal(t, "2015-2019", r["DATE_DIAGNOSIS_WINDOW"])
		assert.Equal(t, "March 2024", r["DATE_SNAPSHOT"])
		assert.Equal(t, started, r["DATE_UPLOAD"])
		assert.Equal(t, true, r["IS_AREA_CORE"])
		assert.Equal(t, 800.0, r["PATIENT_NUMBERS"])
	}
}

func TestAdultGeneralisation(t *testing.T) {
	p := policies(t)
	raw := frame.New(adultColumns,
		adultRow("Country", "E92000001", "Breast", "Female", "Non-standardised"),
		adultRow("Cancer Alliance", "E56000001", "Breast", "Female", "Non-standardised"),
		adultRow("Cancer Alliance", "E56000001", "Prostate", "Male", "Non-standardised"),
		adultRow("Region", "E40000003", "Ovary", "Female", "Non-standardised"),
	)

	out, err := Adult(raw, p.Adult, testRun(), File{Name: "adult"})
	require.NoError(t, err)

	type key struct{ code, site, gender string }
	counts := map[key]int{}
	for _, r := range out.Rows() {
		counts[key{r["AREA_CODE"].(string), r["CANCER_SITE"].(string), r["GENDER"].(string)}]++
		assert.Nil(t, r["STANDARDISATION_TYPE_SUBCATEGORY"])
		assert.Nil(t, r["DATE_DIAGNOSIS_WINDOW"], "file name has a single token")
		assert.Nil(t, r["DATE_SNAPSHOT"])
	}

	// two metrics per input row
	assert.Equal(t, map[key]int{
		{"E92000001", "Breast", "Female"}:    2,
		{"E92000001", "Breast", "Persons"}:   2,
		{"E56000001", "Breast", "Female"}:    2,
		{"E56000001", "Prostate", "Male"}:    2,
		{"E56000001", "Prostate", "Persons"}: 2,
	}, counts)
}

func TestAdultMissingValueColumn(t *testing.T) {
	p := policies(t)
	cols := adultColumns[:len(adultColumns)-2]
	row := adultRow("Country", "E92000001", "Lung", "Persons", "Non-standardised")
	delete(row, "Overall survival (%)")
	delete(row, "Lower CI")

	_, err := Adult(frame.New(cols, row), p.Adult, testRun(), File{Name: "adult_lung_2015_2019.xlsx"})
	var mc *frame.MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, []string{"Overall survival (%)"}, mc.Columns)
}

func TestFormatColumnsCollision(t *testing.T) {
	raw := frame.New([]string{"Area code", "area  code"})
	_, err := FormatColumns(raw, Output{Columns: []OutputColumn{{Name: "area_code", As: "AREA_CODE"}}})
	assert.Error(t, err)
}
