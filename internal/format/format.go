// Package format is the single source of truth for number/currency
// formatting and financial-year math. Everything that renders money for
// a user goes through here; no inline formatters elsewhere.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Common currencies; unlisted codes fall back to the code itself.
var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"AED": "د.إ",
	"JPY": "¥",
	"CNY": "¥",
	"AUD": "A$",
	"CAD": "C$",
	"SGD": "S$",
	"MYR": "RM",
	"THB": "฿",
	"KRW": "₩",
	"BRL": "R$",
	"ZAR": "R",
	"NGN": "₦",
	"BDT": "৳",
	"PKR": "₨",
}

// Style selects the abbreviation scheme for large numbers.
type Style int

const (
	// StyleIndian renders Lakhs and Crores: ₹2.50 L, ₹1.50 Cr.
	StyleIndian Style = iota
	// StyleInternational renders K/M/B: $4.52M.
	StyleInternational
	// StylePlain renders full comma-grouped values: $4,523,000.00.
	StylePlain
)

const (
	lakh  = 100_000
	crore = 10_000_000
)

// CurrencySymbol returns the display symbol for an ISO currency code.
func CurrencySymbol(code string) string {
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	if code == "" {
		return "$"
	}
	return code
}

// StyleFromProfile maps the profile's number_format field to a Style.
func StyleFromProfile(numberFormat string) Style {
	switch {
	case strings.Contains(numberFormat, "Indian"):
		return StyleIndian
	case strings.Contains(numberFormat, "International"):
		return StyleInternational
	default:
		return StylePlain
	}
}

// Currency formats a value with the given symbol and style.
func Currency(value float64, symbol string, style Style) string {
	switch style {
	case StyleIndian:
		return indian(value, symbol)
	case StyleInternational:
		return international(value, symbol)
	default:
		return plain(value, symbol)
	}
}

// indian renders Lakh/Crore notation: ₹45.23 L, ₹2.15 Cr, ₹45,230, ₹42.00.
func indian(value float64, symbol string) string {
	abs := math.Abs(value)
	sign := ""
	if value < 0 {
		sign = "-"
	}

	switch {
	case abs >= crore:
		return fmt.Sprintf("%s%s%.2f Cr", sign, symbol, abs/crore)
	case abs >= lakh:
		return fmt.Sprintf("%s%s%.2f L", sign, symbol, abs/lakh)
	case abs >= 1000:
		return fmt.Sprintf("%s%s%s", sign, symbol, group(abs, 0))
	default:
		return fmt.Sprintf("%s%s%.2f", sign, symbol, abs)
	}
}

// international renders K/M/B notation: $4.52M, $21.50B, $45.23K.
func international(value float64, symbol string) string {
	abs := math.Abs(value)
	sign := ""
	if value < 0 {
		sign = "-"
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%s%s%.2fB", sign, symbol, abs/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%s%s%.2fM", sign, symbol, abs/1_000_000)
	case abs >= 1000:
		return fmt.Sprintf("%s%s%.2fK", sign, symbol, abs/1000)
	default:
		return fmt.Sprintf("%s%s%.2f", sign, symbol, abs)
	}
}

// plain renders standard comma grouping with no abbreviation.
func plain(value float64, symbol string) string {
	abs := math.Abs(value)
	sign := ""
	if value < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%s%s", sign, symbol, group(abs, 2))
}

// group renders a non-negative value with comma thousands separators.
func group(abs float64, decimals int) string {
	// Round to the target precision first so fractional carry propagates
	// into the integer part (999.999 at 2 decimals is 1,000.00).
	scale := math.Pow(10, float64(decimals))
	abs = math.Round(abs*scale) / scale

	whole := int64(abs)
	frac := abs - float64(whole)

	s := fmt.Sprintf("%d", whole)
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}

	if decimals > 0 {
		fracStr := fmt.Sprintf("%.*f", decimals, frac)
		b.WriteString(fracStr[1:]) // strip the leading "0"
	}
	return b.String()
}

// FYDates holds the financial-year boundaries around a reference time.
type FYDates struct {
	Start     time.Time
	End       time.Time
	PrevStart time.Time
	PrevEnd   time.Time
	Label     string // e.g. "FY 2025-26"
	PrevLabel string
	Quarter   int // 1-4 within the FY
}

// FinancialYear computes FY boundaries for the profile's configured start
// ("MM-DD", default April 1st) relative to now.
func FinancialYear(fyStart string, now time.Time) FYDates {
	startMonth, startDay := 4, 1
	if parts := strings.SplitN(fyStart, "-", 2); len(parts) == 2 {
		var m, d int
		if _, err := fmt.Sscanf(fyStart, "%d-%d", &m, &d); err == nil && m >= 1 && m <= 12 && d >= 1 && d <= 28 {
			startMonth, startDay = m, d
		}
	}

	year := now.Year()
	thisYearStart := time.Date(year, time.Month(startMonth), startDay, 0, 0, 0, 0, now.Location())
	var start time.Time
	if now.Before(thisYearStart) {
		start = thisYearStart.AddDate(-1, 0, 0)
	} else {
		start = thisYearStart
	}
	end := start.AddDate(1, 0, -1)

	monthsIn := int(now.Month()) - int(start.Month())
	if monthsIn < 0 {
		monthsIn += 12
	}
	quarter := monthsIn/3 + 1

	label := fyLabel(start, end, startMonth)
	prevStart := start.AddDate(-1, 0, 0)
	prevEnd := start.AddDate(0, 0, -1)

	return FYDates{
		Start:     start,
		End:       end,
		PrevStart: prevStart,
		PrevEnd:   prevEnd,
		Label:     label,
		PrevLabel: fyLabel(prevStart, prevEnd, startMonth),
		Quarter:   quarter,
	}
}

func fyLabel(start, end time.Time, startMonth int) string {
	if startMonth == 1 {
		return fmt.Sprintf("FY %d", start.Year())
	}
	return fmt.Sprintf("FY %d-%02d", start.Year(), end.Year()%100)
}

// MonthBounds returns the first and last day of the month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return first, last
}

// LastMonthBounds returns the first and last day of the previous month.
func LastMonthBounds(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	prevFirst := first.AddDate(0, -1, 0)
	return prevFirst, first.AddDate(0, 0, -1)
}

// ISODate renders a date the way the SQL layer stores posting dates.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}
