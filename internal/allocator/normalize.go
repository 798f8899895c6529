package allocator

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// TitleCase trims s and converts it to title case ("girls football" -> "Girls Football").
func TitleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(s)
}

// CleanCell trims a tabular value and blanks the placeholders spreadsheet
// tools write for missing data.
func CleanCell(raw string) string {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "nan", "nat", "none", "null", "<na>":
		return ""
	}
	return v
}

// NormalizeYear reduces "7", "7.0", "Y7" and "Year 7" to "7".
func NormalizeYear(raw string) string {
	v := CleanCell(raw)
	lower := strings.ToLower(v)
	switch {
	case strings.HasPrefix(lower, "year"):
		v = strings.TrimSpace(v[4:])
	case strings.HasPrefix(lower, "y"):
		v = strings.TrimSpace(v[1:])
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return v
}

var dayAliases = map[string]string{
	"mon": "Monday", "tue": "Tuesday", "tues": "Tuesday", "wed": "Wednesday",
	"thu": "Thursday", "thur": "Thursday", "thurs": "Thursday", "fri": "Friday",
	"sat": "Saturday", "sun": "Sunday",
}

// NormalizeDay title-cases a weekday name and expands common abbreviations.
func NormalizeDay(raw string) string {
	v := CleanCell(raw)
	if full, ok := dayAliases[strings.ToLower(v)]; ok {
		return full
	}
	return TitleCase(v)
}

// NormalizeWeek maps "A", "week a" and "WEEK A" onto the canonical "Week A".
func NormalizeWeek(raw string) string {
	v := whitespaceRun.ReplaceAllString(CleanCell(raw), " ")
	switch strings.ToUpper(v) {
	case "A", "WEEK A", "WK A", "WEEKA":
		return "Week A"
	case "B", "WEEK B", "WK B", "WEEKB":
		return "Week B"
	}
	return TitleCase(v)
}

// isWildcardDay reports whether a rule's Day column applies to every day.
func isWildcardDay(day string) bool {
	switch strings.ToLower(strings.TrimSpace(day)) {
	case "", "all", "nan", "none":
		return true
	}
	return false
}

var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"02/01/06",
	"2/1/06",
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"02 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"2-Jan-06",
}

// ParseDayFirst reads a curriculum date using the day-first convention
// (01/09/2025 is 1 September). Spreadsheet serial numbers are accepted too.
func ParseDayFirst(raw string) (time.Time, bool) {
	v := CleanCell(raw)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return DateOnly(t), true
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial >= 1 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// DateOnly truncates t to midnight UTC on its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
