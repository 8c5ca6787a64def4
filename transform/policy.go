// transform/policy.go
package transform

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed policies.yaml
var defaultPolicies []byte

// Mode says what happens to the rows a generalisation rule copies.
type Mode string

const (
	// ModeAdd keeps the original single-gender rows next to the Persons copies.
	ModeAdd Mode = "add"
	// ModeReplace drops the original rows once their Persons copies exist.
	ModeReplace Mode = "replace"
)

// GeneraliseRule selects rows by site and gender (and optionally age band
// and geography) and copies them with gender set to Persons.
type GeneraliseRule struct {
	Site           string `yaml:"site"`
	Gender         string `yaml:"gender"`
	AgeAtDiagnosis string `yaml:"age_at_diagnosis,omitempty"`
	GeographyCode  string `yaml:"geography_code,omitempty"`
	Mode           Mode   `yaml:"mode"`
}

// SourceColumns names the published headers the transforms read.
type SourceColumns struct {
	GeographyType       string `yaml:"geography_type"`
	GeographyCode       string `yaml:"geography_code"`
	CancerSite          string `yaml:"cancer_site"`
	Gender              string `yaml:"gender"`
	AgeAtDiagnosis      string `yaml:"age_at_diagnosis,omitempty"`
	StandardisationType string `yaml:"standardisation_type"`
	SubstitutedBy       string `yaml:"substituted_by,omitempty"`
}

// OutputColumn maps a normalized column name to its destination identifier.
type OutputColumn struct {
	Name string `yaml:"name"`
	As   string `yaml:"as"`
}

// Output describes the final column layout: Rename runs on normalized names,
// then Columns both projects and renames to destination identifiers.
type Output struct {
	Rename  map[string]string `yaml:"rename"`
	Columns []OutputColumn    `yaml:"columns"`
}

// SourceTarget tells the scrape step which publication page to open and
// which file labels to download from it.
type SourceTarget struct {
	PageMatch string   `yaml:"page_match"`
	TargetIDs []string `yaml:"target_ids"`
}

// IndexPolicy says how index workbooks are read and reshaped.
type IndexPolicy struct {
	FilePrefix   string            `yaml:"file_prefix"`
	Sheet        string            `yaml:"sheet"`
	SkipRows     int               `yaml:"skip_rows"`
	AllianceType string            `yaml:"alliance_type"`
	Source       SourceColumns     `yaml:"source"`
	Generalise   []GeneraliseRule  `yaml:"generalise"`
	SiteLabels   map[string]string `yaml:"site_labels"`
	DropSites    []string          `yaml:"drop_sites"`
	Output       Output            `yaml:"output"`
}

// AdultPolicy says how adult workbooks are read and unpivoted.
type AdultPolicy struct {
	FilePrefix      string           `yaml:"file_prefix"`
	Sheet           string           `yaml:"sheet"`
	SkipRows        int              `yaml:"skip_rows"`
	NotesSheet      string           `yaml:"notes_sheet"`
	NotesSkipRows   int              `yaml:"notes_skip_rows"`
	AllianceType    string           `yaml:"alliance_type"`
	NonStandardised string           `yaml:"non_standardised"`
	Source          SourceColumns    `yaml:"source"`
	Generalise      []GeneraliseRule `yaml:"generalise"`
	IDColumns       []string         `yaml:"id_columns"`
	ValueColumns    []string         `yaml:"value_columns"`
	MetricSuffixes  []string         `yaml:"metric_suffixes"`
	Output          Output           `yaml:"output"`
}

// Policies holds everything that differs between publication revisions.
// A change in the published layout should be a change to this file's YAML,
// not to code.
type Policies struct {
	Sources []SourceTarget `yaml:"sources"`
	Index   IndexPolicy    `yaml:"index"`
	Adult   AdultPolicy    `yaml:"adult"`
}

// DefaultPolicies returns the policies embedded in the binary.
func DefaultPolicies() (Policies, error) {
	return ParsePolicies(defaultPolicies)
}

// ParsePolicies decodes and validates a policy document. Unknown keys are
// rejected so typos do not silently fall back to zero values.
func ParsePolicies(data []byte) (Policies, error) {
	var p Policies
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Policies{}, fmt.Errorf("failed to decode policies: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policies{}, err
	}
	return p, nil
}

// Validate checks the policies for values the transforms cannot work with.
func (p Policies) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(p.Index.FilePrefix != "" && p.Adult.FilePrefix != "", "file prefixes are required")
	check(p.Index.FilePrefix != p.Adult.FilePrefix, "index and adult file prefixes must differ")
	check(p.Index.Sheet != "" && p.Adult.Sheet != "" && p.Adult.NotesSheet != "", "sheet names are required")
	check(p.Index.SkipRows >= 0 && p.Adult.SkipRows >= 0 && p.Adult.NotesSkipRows >= 0, "skip rows must not be negative")
	check(len(p.Index.Output.Columns) > 0 && len(p.Adult.Output.Columns) > 0, "output columns are required")
	check(len(p.Adult.ValueColumns) > 0, "adult value columns are required")
	for _, r := range append(append([]GeneraliseRule{}, p.Index.Generalise...), p.Adult.Generalise...) {
		check(r.Mode == ModeAdd || r.Mode == ModeReplace, "generalise rule for %q: unknown mode %q", r.Site, r.Mode)
		check(r.Site != "" && r.Gender != "", "generalise rules need a site and a gender")
	}
	check(p.Index.Source.SubstitutedBy != "", "index source.substituted_by is required")
	for _, r := range p.Index.Generalise {
		check(r.AgeAtDiagnosis == "" || p.Index.Source.AgeAtDiagnosis != "",
			"index rule for %q filters on age but source.age_at_diagnosis is not set", r.Site)
	}
	for _, s := range p.Sources {
		check(s.PageMatch != "" && len(s.TargetIDs) > 0, "sources need a page_match and target_ids")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid policies: %w", errors.Join(errs...))
	}
	return nil
}
