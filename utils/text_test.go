package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeColumnName(t *testing.T) {
	cases := map[string]string{
		"Survival (%)\n":            "survival_(%)",
		"Geography code":            "geography_code",
		"  Years since\ndiagnosis ": "years_since_diagnosis",
		"Lower CI":                  "lower_ci",
		"area_core":                 "area_core",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeColumnName(in), "input %q", in)
	}
}

func TestDiagnosisWindow(t *testing.T) {
	w, ok := DiagnosisWindow("adult_female_breast_2015_2019.xlsx")
	assert.True(t, ok)
	assert.Equal(t, "2015-2019", w)

	w, ok = DiagnosisWindow("./data/adult_2016_2020.xlsx")
	assert.True(t, ok)
	assert.Equal(t, "2016-2020", w)

	_, ok = DiagnosisWindow("adult.xlsx")
	assert.False(t, ok)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Net Survival", TitleCase("net survival"))
	assert.Equal(t, "Overall", TitleCase("OVERALL"))
}
