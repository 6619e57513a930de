package normalize

import (
	"strings"
	"unicode"

	"github.com/rawblock/recon-engine/internal/config"
)

// Balmo is the balance-of-month sentinel. It passes through normalization
// literally and never participates in month ordering.
const Balmo = "Balmo"

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var monthAbbrev = [13]string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Month canonicalizes a contract month into the owning exchange's dialect:
// "Aug-25" (MMM-YY) or "Aug25" (MMMYY). Accepted inputs include "Aug 25",
// "aug25", "August-25", "Aug-25" and "Aug25". The Balmo sentinel is
// preserved literally.
func Month(raw string, format string) (string, error) {
	s := trim(raw)
	if s == "" {
		return "", &Error{Field: "contract_month", Value: raw, Reason: "missing"}
	}
	if strings.EqualFold(s, Balmo) {
		return Balmo, nil
	}

	// Split on the first digit: letters before are the month token, the
	// digits are the two- or four-digit year.
	cut := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			cut = i
			break
		}
	}
	if cut <= 0 {
		return "", &Error{Field: "contract_month", Value: raw, Reason: "no year digits"}
	}

	alpha := strings.TrimRight(s[:cut], " -")
	year := s[cut:]

	if len(alpha) < 3 {
		return "", &Error{Field: "contract_month", Value: raw, Reason: "month token too short"}
	}
	idx, ok := monthNames[strings.ToLower(alpha)[:3]]
	if !ok {
		return "", &Error{Field: "contract_month", Value: raw, Reason: "unknown month name"}
	}

	switch len(year) {
	case 2:
	case 4:
		year = year[2:]
	default:
		return "", &Error{Field: "contract_month", Value: raw, Reason: "year must be 2 or 4 digits"}
	}
	for _, r := range year {
		if !unicode.IsDigit(r) {
			return "", &Error{Field: "contract_month", Value: raw, Reason: "non-digit year"}
		}
	}

	if format == config.MonthYY {
		return monthAbbrev[idx] + year, nil
	}
	return monthAbbrev[idx] + "-" + year, nil
}

// MonthKey orders canonical contract months as (year, month-index). The
// second return is false for Balmo and anything unparseable, which only
// ever compare by string equality.
func MonthKey(canonical string) (int, bool) {
	s := strings.ReplaceAll(canonical, "-", "")
	if len(s) != 5 {
		return 0, false
	}
	idx, ok := monthNames[strings.ToLower(s[:3])]
	if !ok {
		return 0, false
	}
	year := 0
	for _, r := range s[3:] {
		if !unicode.IsDigit(r) {
			return 0, false
		}
		year = year*10 + int(r-'0')
	}
	return year*12 + idx - 1, true
}
