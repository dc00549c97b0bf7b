package event

import (
	"regexp"
	"strings"
	"time"
)

// DateConfidence tags how certain the date normalizer is about its output.
const (
	DateConfidenceHigh   = "high"
	DateConfidenceMedium = "medium"
	DateConfidenceLow    = "low"
)

// dateLayouts are tried in order against a cleaned date string. The first
// layout that parses wins.
var dateLayouts = []struct {
	layout     string
	confidence string
}{
	{time.RFC3339, DateConfidenceHigh},
	{"2006-01-02T15:04:05", DateConfidenceHigh},
	{"2006-01-02", DateConfidenceHigh},
	{"02.01.2006", DateConfidenceHigh},
	{"January 2, 2006", DateConfidenceHigh},
	{"Jan 2, 2006", DateConfidenceHigh},
	{"2 January 2006", DateConfidenceHigh},
	{"2 Jan 2006", DateConfidenceHigh},
	{"January 2006", DateConfidenceMedium},
	{"Jan 2006", DateConfidenceMedium},
	{"2006", DateConfidenceLow},
}

// rangeSep splits date ranges such as "12-14 March 2026" or
// "March 12 - 14, 2026". An en dash counts as a separator too.
var rangeSep = regexp.MustCompile(`\s*(?:-|–|to|bis)\s*`)

// NormalizeDate turns a free-form date string into canonical
// YYYY-MM-DD start/end dates plus a confidence tag. Single dates yield
// identical start and end. Ranges that share a month ("12-14 March 2026")
// are recombined by borrowing the month and year from the end part.
// ok is false when nothing in the string parses as a date.
func NormalizeDate(raw string) (start, end, confidence string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", "", false
	}

	if t, conf, parsed := parseOne(raw); parsed {
		d := t.Format("2006-01-02")
		return d, d, conf, true
	}

	parts := rangeSep.Split(raw, 2)
	if len(parts) == 2 {
		endT, endConf, endOK := parseOne(parts[1])
		if endOK {
			startRaw := strings.TrimSpace(parts[0])
			startT, startConf, startOK := parseOne(startRaw)
			if !startOK {
				// "12-14 March 2026": the start part is a bare day number,
				// so complete it from the end date.
				if day := atoiSafe(startRaw); day >= 1 && day <= 31 {
					startT = time.Date(endT.Year(), endT.Month(), day, 0, 0, 0, 0, time.UTC)
					startOK = true
					startConf = endConf
				}
			}
			if startOK {
				conf := startConf
				if endConf == DateConfidenceLow || startConf == DateConfidenceLow {
					conf = DateConfidenceLow
				} else if endConf == DateConfidenceMedium || startConf == DateConfidenceMedium {
					conf = DateConfidenceMedium
				}
				return startT.Format("2006-01-02"), endT.Format("2006-01-02"), conf, true
			}
			d := endT.Format("2006-01-02")
			return d, d, DateConfidenceMedium, true
		}
	}

	return "", "", "", false
}

func parseOne(s string) (time.Time, string, bool) {
	s = strings.TrimSpace(strings.Trim(s, ",."))
	s = strings.ReplaceAll(s, "st,", ",")
	s = strings.ReplaceAll(s, "nd,", ",")
	s = strings.ReplaceAll(s, "rd,", ",")
	s = strings.ReplaceAll(s, "th,", ",")
	for _, l := range dateLayouts {
		if l.layout == "2006" && len(s) != 4 {
			// Bare numbers shorter than a year ("12" in "12-14 March")
			// must not parse as year 12.
			continue
		}
		if t, err := time.Parse(l.layout, s); err == nil {
			return t, l.confidence, true
		}
	}
	return time.Time{}, "", false
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	if s == "" {
		return -1
	}
	return n
}
