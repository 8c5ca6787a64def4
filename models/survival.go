// models/survival.go
package models

import "strings"

// Kind identifies which survival dataset a staged workbook holds.
type Kind int

const (
	KindUnknown Kind = iota
	KindIndex        // "Index" workbooks: one-year index of cancer survival (Table 5)
	KindAdult        // "adult" workbooks: survival by cancer site (Table 4)
)

func (k Kind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindAdult:
		return "adult"
	default:
		return "unknown"
	}
}

// StagedFile is a workbook waiting in the staging area. Kind is decided once,
// at discovery time.
type StagedFile struct {
	Name string
	Kind Kind
}

// Classify decides a file's kind from its name prefix. Prefix matching is
// case-sensitive, as the publisher's file names are.
func Classify(name, indexPrefix, adultPrefix string) Kind {
	switch {
	case indexPrefix != "" && strings.HasPrefix(name, indexPrefix):
		return KindIndex
	case adultPrefix != "" && strings.HasPrefix(name, adultPrefix):
		return KindAdult
	default:
		return KindUnknown
	}
}

// Geography is one row of the geography reference file.
type Geography struct {
	Code string `csv:"code"`
	Name string `csv:"name,omitempty"`
	Core bool   `csv:"core,omitempty"`
}
