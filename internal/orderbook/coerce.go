package orderbook

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	headerSpacePattern = regexp.MustCompile(`\s+`)
	priceScrubPattern  = regexp.MustCompile(`[^0-9.\-]`)
)

var dateFormats = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01/02/06",
	"1-2-2006",
	"01-02-2006",
	"1-2-06",
	"01-02-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006/01/02",
	"1/2/2006 3:04 PM",
	"01/02/2006 03:04 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 03:04:05 PM",
	"1/2/2006 15:04",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NormalizeHeader produces the alias-lookup form of a raw header: leading and
// trailing whitespace trimmed, runs of inner whitespace collapsed to one
// space, everything lowercased.
func NormalizeHeader(header string) string {
	return strings.ToLower(headerSpacePattern.ReplaceAllString(strings.TrimSpace(header), " "))
}

// CoerceText trims a cell and converts the textual null markers spreadsheet
// tooling emits ("nan", "none", "<na>", any casing) to the empty string.
func CoerceText(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "nan", "none", "<na>":
		return ""
	}
	return value
}

// CoerceDate parses a cell into a calendar date. The false return marks the
// value as missing, either because the cell is empty or a null token, or
// because no supported format matched.
func CoerceDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "none", "nat":
		return time.Time{}, false
	}

	// Excel numeric date serial (common in XLS/XLSX exports).
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		// Keep a realistic schedule serial range to avoid treating plain
		// years or short numeric IDs as serial dates.
		if serial >= 20000 && serial <= 80000 {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return TruncateToDate(parsed), true
			}
		}
		return time.Time{}, false
	}

	for _, format := range dateFormats {
		if parsed, err := time.Parse(format, value); err == nil {
			return TruncateToDate(parsed), true
		}
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return TruncateToDate(parsed), true
	}

	return time.Time{}, false
}

// CoercePrice parses a cell into a price. Currency symbols, thousands
// separators, and stray unit text are stripped before parsing; anything that
// still fails to parse as a number is treated as missing, never as an error.
func CoercePrice(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	cleaned := strings.ReplaceAll(value, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = priceScrubPattern.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// TruncateToDate drops the clock and zone, keeping the calendar day in UTC.
func TruncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
