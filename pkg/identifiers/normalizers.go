// Package identifiers converts between the licence and well identifier
// encodings used by the AER ST1, AER ST37 and Petrinex datasets.
package identifiers

import (
	"fmt"
	"strings"
	"unicode"
)

// Normalizer maps a raw identifier cell to the form used for joins.
type Normalizer func(string) string

// Names of the normalizers a join key can be built with.
const (
	NormalizeTrim            = "trim"
	NormalizeAlphanumeric    = "alphanumeric"
	NormalizeRegistryLicence = "registry_licence"
	NormalizeStatusLicence   = "status_licence"
)

var normalizers = map[string]Normalizer{
	NormalizeTrim:            Trim,
	NormalizeAlphanumeric:    Alphanumeric,
	NormalizeRegistryLicence: LicenceFromRegistry,
	NormalizeStatusLicence:   LicenceFromStatusListing,
}

// Lookup returns the named normalizer.
func Lookup(name string) (Normalizer, error) {
	fn, ok := normalizers[name]
	if !ok {
		return nil, fmt.Errorf("unknown identifier normalizer %q", name)
	}
	return fn, nil
}

// Trim removes surrounding spaces. Only the space character is stripped;
// tabs belong to the value.
func Trim(s string) string {
	return strings.Trim(s, " ")
}

// Alphanumeric keeps only letters and digits
func Alphanumeric(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
