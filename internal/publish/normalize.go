package publish

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeText collapses whitespace runs and trims stray punctuation from
// the ends of a field.
func normalizeText(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.Trim(s, " .,;:|-")
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// dedupeKey reduces a title to its comparable core. Titles whose key is
// trivially short are treated as duplicates of everything and rejected.
func dedupeKey(title string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(title), "")
}

var spamKeywords = []string{
	"casino", "viagra", "porn", "xxx", "lottery", "jackpot",
	"free money", "betting bonus", "escort",
}

func containsSpam(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range spamKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// locationCountries maps lowercase country and major-city tokens to ISO
// 3166-1 alpha-2 codes. Longest-token match wins so "new york" beats "york".
var locationCountries = map[string]string{
	"germany": "DE", "deutschland": "DE", "berlin": "DE", "munich": "DE",
	"münchen": "DE", "hamburg": "DE", "frankfurt": "DE", "cologne": "DE",
	"köln": "DE", "stuttgart": "DE", "düsseldorf": "DE",
	"austria": "AT", "österreich": "AT", "vienna": "AT", "wien": "AT",
	"switzerland": "CH", "schweiz": "CH", "zurich": "CH", "zürich": "CH",
	"geneva": "CH",
	"france": "FR", "paris": "FR",
	"netherlands": "NL", "amsterdam": "NL",
	"united kingdom": "GB", "london": "GB",
	"spain": "ES", "madrid": "ES", "barcelona": "ES",
	"italy": "IT", "milan": "IT", "rome": "IT",
	"united states": "US", "new york": "US",
	"vietnam": "VN", "ho chi minh city": "VN", "hanoi": "VN",
	"thailand": "TH", "bangkok": "TH",
	"china": "CN", "shanghai": "CN", "beijing": "CN",
	"japan": "JP", "tokyo": "JP",
	"india": "IN", "mumbai": "IN",
	"singapore": "SG",
}

// countryFromLocation derives an ISO country code from a location string,
// or "" when no known token appears.
func countryFromLocation(location string) string {
	loc := strings.ToLower(location)
	best, bestLen := "", 0
	for token, code := range locationCountries {
		if strings.Contains(loc, token) && len(token) > bestLen {
			best, bestLen = code, len(token)
		}
	}
	return best
}

// cityOf takes the text before the first comma as the city.
func cityOf(location string) string {
	if location == "" {
		return ""
	}
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(city)
}

// farCities maps city tokens to the one country they belong to. A request
// targeting a different country cannot legitimately surface an event in one
// of these cities; such combinations are junk extractions.
var farCities = map[string]string{
	"ho chi minh city": "VN", "hanoi": "VN", "bangkok": "TH",
	"shanghai": "CN", "beijing": "CN", "tokyo": "JP", "mumbai": "IN",
	"singapore": "SG", "new york": "US",
}

// impossibleCombo reports whether the location names a city that cannot
// belong to the target country.
func impossibleCombo(location, targetCountry string) bool {
	if targetCountry == "" {
		return false
	}
	loc := strings.ToLower(location)
	for city, country := range farCities {
		if strings.Contains(loc, city) && country != targetCountry {
			return true
		}
	}
	return false
}
