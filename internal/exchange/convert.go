package exchange

// convert.go turns raw cell text into typed values and typed values back into
// cell text.
//
// Parsing is forgiving about the things spreadsheets do to data:
//   - Multiple date formats (ISO, US, dotted, "Jan 2, 2006")
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//
// String columns are never cleaned: their text is the value.

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	errInvalidNumber = errors.New("invalid number")
	errInvalidBool   = errors.New("invalid boolean")
	errInvalidDate   = errors.New("invalid date")
)

// Date layouts split by year format for proper 2-digit year handling
var (
	isoLayouts = []string{
		time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

// CleanCell removes spreadsheet artifacts from a non-text cell:
// surrounding whitespace and Excel formula prefixes (="..." or =...).
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}
	return strings.TrimSpace(s)
}

// ParseNumber converts cell text to a float64.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ParseNumber(s string) (float64, error) {
	s = CleanCell(s)
	if s == "" {
		return 0, errInvalidNumber
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			return 0, errInvalidNumber
		}
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, errInvalidNumber
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, errInvalidNumber
	}
	return f, nil
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(CleanCell(s)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, errInvalidBool
	}
}

// ParseDate converts cell text to a time.Time.
// ISO-8601 is tried first, then the US/locale layouts, then 2-digit years with pivot.
func ParseDate(s string) (time.Time, error) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, errInvalidDate
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, nil
		}
	}

	return time.Time{}, errInvalidDate
}

// coerce applies the built-in strategy for t to a non-blank raw cell.
func coerce(raw string, t DataType) (any, error) {
	switch t {
	case TypeNumber:
		return ParseNumber(raw)
	case TypeBoolean:
		return ParseBool(raw)
	case TypeDate:
		return ParseDate(raw)
	default:
		return raw, nil
	}
}

// FormatValue renders a record value as cell text. nil becomes "".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		if hasClock(val) {
			return val.Format(time.RFC3339)
		}
		return val.Format("2006-01-02")
	case *time.Time:
		if val == nil {
			return ""
		}
		return FormatValue(*val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func hasClock(t time.Time) bool {
	h, m, s := t.Clock()
	return h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0 || t.Location() != time.UTC
}

// typeErrorHint returns the guidance appended to a coercion failure.
func typeErrorHint(t DataType) string {
	switch t {
	case TypeNumber:
		return "expected a number"
	case TypeBoolean:
		return "use yes/no, true/false, or 1/0"
	case TypeDate:
		return "use YYYY-MM-DD or MM/DD/YYYY"
	default:
		return "invalid value"
	}
}
