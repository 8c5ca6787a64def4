// config/reference.go
package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/nclcancer/survival/models"
	"github.com/nclcancer/survival/transform"
)

// ParseGeographies decodes a geography reference CSV with a "code,name,core"
// header.
func ParseGeographies(r io.Reader) ([]models.Geography, error) {
	var geos []models.Geography
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder for geographies: %w", err)
	}
	if err := dec.Decode(&geos); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode geographies CSV: %w", err)
	}
	return geos, nil
}

// CoreGeographies returns the core geography set: CORE_GEOGRAPHY_CODES plus
// every core row of GEOGRAPHIES_FILE. An empty set is an error, since every
// row would then be out of scope except alliances.
func (c Config) CoreGeographies() (transform.GeographySet, error) {
	codes := append([]string{}, c.CoreGeographyCodes...)
	if c.GeographiesFile != "" {
		f, err := os.Open(c.GeographiesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open geographies file: %w", err)
		}
		defer f.Close()

		geos, err := ParseGeographies(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.GeographiesFile, err)
		}
		for _, g := range geos {
			if g.Core {
				codes = append(codes, g.Code)
			}
		}
	}

	set := transform.NewGeographySet(codes...)
	if len(set) == 0 {
		return nil, fmt.Errorf("no core geographies configured: set CORE_GEOGRAPHY_CODES or GEOGRAPHIES_FILE")
	}
	return set, nil
}

// Policies returns the embedded dataset policies, or the ones in
// POLICY_FILE when it is set.
func (c Config) Policies() (transform.Policies, error) {
	if c.PolicyFile == "" {
		return transform.DefaultPolicies()
	}
	data, err := os.ReadFile(c.PolicyFile)
	if err != nil {
		return transform.Policies{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	p, err := transform.ParsePolicies(data)
	if err != nil {
		return transform.Policies{}, fmt.Errorf("%s: %w", c.PolicyFile, err)
	}
	return p, nil
}
