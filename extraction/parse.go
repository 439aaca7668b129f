package extraction

import (
	"regexp"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/gigbooks_backend/models"
	"bitbucket.org/mmdatafocus/gigbooks_backend/utils"
	"github.com/shopspring/decimal"
)

// DefaultCurrencyCode is the inferred fallback when neither a line cell nor
// the statement carries an explicit currency.
const DefaultCurrencyCode = "CAD"

var (
	amountPattern   = regexp.MustCompile(`-?\(?\$?\s?-?[0-9][0-9.,\s']*\)?`)
	currencyPattern = regexp.MustCompile(`\b(CAD|USD|EUR|GBP|AUD|MXN)\b`)
)

// ParseAmount turns a raw cell or free-text fragment into a decimal amount.
// Handles currency symbols, thousands separators (both "1,234.56" and the
// European "1.234,56"), parenthesized negatives and trailing minus signs.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", "CA", "", "US", "", " ", "", "'", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	// "1.234,56" -> "1234.56"; "1,234.56" -> "1234.56"; "10,50" -> "10.50".
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
		s = strings.ReplaceAll(s, ",", "")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// FindAmount scans a free-text line for the first thing that parses as an
// amount. Used by the label-then-lookahead pass.
func FindAmount(line string) (decimal.Decimal, bool) {
	for _, m := range amountPattern.FindAllString(line, -1) {
		// A bare year or id is not an amount.
		if !strings.ContainsAny(m, ".,$()") && len(strings.TrimLeft(m, "-")) > 7 {
			continue
		}
		if d, ok := ParseAmount(m); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2 2006",
}

// ParseDate tries the known provider date layouts in order.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DetectCurrencyCode scans a cell for an explicit ISO-4217 code.
func DetectCurrencyCode(raw string) (string, bool) {
	m := currencyPattern.FindString(strings.ToUpper(raw))
	if m == "" {
		return "", false
	}
	return m, true
}

var (
	monthKeyPattern   = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)
	quarterKeyPattern = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)
	yearKeyPattern    = regexp.MustCompile(`^\d{4}$`)
)

// PeriodRange resolves a period key into its [start, end) date range.
// A malformed key is a DataIntegrityError: redelivery cannot fix it.
func PeriodRange(periodType models.PeriodType, periodKey string) (time.Time, time.Time, error) {
	switch periodType {
	case models.PeriodTypeMonthly:
		m := monthKeyPattern.FindStringSubmatch(periodKey)
		if m == nil {
			return time.Time{}, time.Time{}, utils.NewDataIntegrityError("malformed monthly period key: " + periodKey)
		}
		start, _ := time.Parse("2006-01", periodKey)
		return start, start.AddDate(0, 1, 0), nil
	case models.PeriodTypeQuarterly:
		m := quarterKeyPattern.FindStringSubmatch(periodKey)
		if m == nil {
			return time.Time{}, time.Time{}, utils.NewDataIntegrityError("malformed quarterly period key: " + periodKey)
		}
		q := int(m[2][0] - '0')
		start, _ := time.Parse("2006", m[1])
		start = start.AddDate(0, (q-1)*3, 0)
		return start, start.AddDate(0, 3, 0), nil
	case models.PeriodTypeYearly, models.PeriodTypeYTD:
		if !yearKeyPattern.MatchString(periodKey) {
			return time.Time{}, time.Time{}, utils.NewDataIntegrityError("malformed yearly period key: " + periodKey)
		}
		start, _ := time.Parse("2006", periodKey)
		return start, start.AddDate(1, 0, 0), nil
	}
	return time.Time{}, time.Time{}, utils.NewDataIntegrityError("unknown period type: " + string(periodType))
}
