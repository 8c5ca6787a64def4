// scraper/select.go
package scraper

import (
	"fmt"
	"sort"
	"strings"
)

// LinkSelectionError means a target id matched no link or more than one.
type LinkSelectionError struct {
	TargetID string
	Matches  []string
}

func (e *LinkSelectionError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("no file matches %q", e.TargetID)
	}
	return fmt.Sprintf("%d files match %q, none will be processed: %s",
		len(e.Matches), e.TargetID, strings.Join(e.Matches, ", "))
}

// SelectLink returns the one label in links containing targetID.
func SelectLink(links map[string]string, targetID string) (string, error) {
	var matches []string
	for label := range links {
		if strings.Contains(label, targetID) {
			matches = append(matches, label)
		}
	}
	sort.Strings(matches)
	if len(matches) != 1 {
		return "", &LinkSelectionError{TargetID: targetID, Matches: matches}
	}
	return matches[0], nil
}
