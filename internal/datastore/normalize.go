package datastore

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeCommonName returns the dedup key for a common name: Unicode case
// folded with inner whitespace collapsed. "Red  Fox " and "red fox" share a key.
func NormalizeCommonName(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	// A Caser keeps state between calls, so each call gets its own
	return cases.Fold().String(collapsed)
}
