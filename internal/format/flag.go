package format

import "strings"

// Flag converts an ISO 3166 alpha-2 country code to its flag emoji.
// Unknown input yields a white flag.
func Flag(countryCode string) string {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	if len(cc) != 2 || cc[0] < 'A' || cc[0] > 'Z' || cc[1] < 'A' || cc[1] > 'Z' {
		return "🏳️"
	}
	const regionalA = 0x1F1E6
	return string([]rune{
		rune(regionalA + int(cc[0]-'A')),
		rune(regionalA + int(cc[1]-'A')),
	})
}
