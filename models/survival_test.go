package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"Index_2023.xlsx", KindIndex},
		{"adult_female_breast_2015_2019.xlsx", KindAdult},
		{"index_2023.xlsx", KindUnknown},
		{"Adult_2016_2020.xlsx", KindUnknown},
		{"notes.xlsx", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name, "Index", "adult"))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "index", KindIndex.String())
	assert.Equal(t, "adult", KindAdult.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
