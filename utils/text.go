// utils/text.go
package utils

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// NormalizeColumnName turns a spreadsheet header into a column identifier:
// newlines become spaces, the result is trimmed, whitespace runs become a
// single "_" and everything is lower-cased.
// e.g. "Survival (%)\n" -> "survival_(%)", "Geography  code" -> "geography_code".
func NormalizeColumnName(header string) string {
	header = strings.ReplaceAll(header, "\r", " ")
	header = strings.ReplaceAll(header, "\n", " ")
	return strings.ToLower(strings.Join(strings.Fields(header), "_"))
}

// DiagnosisWindow derives the diagnosis-window label from a staged file name:
// the last two underscore separated tokens of the base name, without its
// extension, joined by "-". ok is false when the name has fewer than two tokens.
// e.g. "data/adult_female_breast_2015_2019.xlsx" -> "2015-2019".
func DiagnosisWindow(filename string) (window string, ok bool) {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return "", false
	}
	return strings.Join(parts[len(parts)-2:], "-"), true
}

// TitleCase capitalises the first letter of every word.
func TitleCase(s string) string {
	return titleCaser.String(s)
}
