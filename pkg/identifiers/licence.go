package identifiers

// registryPrefixWidth is the width of the prefix ST1 puts in front of every
// licence number ("W " for most wells).
const registryPrefixWidth = 2

// LicenceFromRegistry standardizes an ST1 licence number: the two-character
// prefix is dropped, then surrounding spaces are trimmed.
func LicenceFromRegistry(value string) string {
	runes := []rune(value)
	if len(runes) <= registryPrefixWidth {
		return ""
	}
	return Trim(string(runes[registryPrefixWidth:]))
}

// LicenceFromStatusListing standardizes an ST37 licence number, which carries
// no prefix.
func LicenceFromStatusListing(value string) string {
	return Trim(value)
}
