package render

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goliatone/go-formcards/pkg/values"
)

func parseNumber(raw string, decimal rune) (float64, bool) {
	cleaned, ok := stripNumber(raw)
	if !ok {
		return 0, false
	}

	sign := ""
	if strings.HasPrefix(cleaned, "-") || strings.HasPrefix(cleaned, "+") {
		sign, cleaned = cleaned[:1], cleaned[1:]
	}
	if sign == "+" {
		sign = ""
	}
	cleaned = strings.ReplaceAll(cleaned, "'", "")

	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')

	var sep byte
	switch {
	case lastComma >= 0 && lastDot >= 0:
		sep = ','
		if lastDot > lastComma {
			sep = '.'
		}
	case lastComma >= 0:
		sep = decideSeparator(cleaned, ',', decimal)
	case lastDot >= 0:
		sep = decideSeparator(cleaned, '.', decimal)
	}

	var b strings.Builder
	b.WriteString(sign)
	for i := 0; i < len(cleaned); i++ {
		c := cleaned[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == sep:
			b.WriteByte('.')
		case c == ',' || c == '.':
			// grouping mark
		default:
			return 0, false
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// decideSeparator resolves a lone mark: repeated marks group, a mark matching
// the locale's decimal is decimal, otherwise a mark followed by exactly three
// digits groups.
func decideSeparator(s string, mark byte, decimal rune) byte {
	if strings.Count(s, string(mark)) > 1 {
		return 0
	}
	if rune(mark) == decimal {
		return mark
	}
	idx := strings.IndexByte(s, mark)
	if len(s)-idx-1 == 3 && idx > 0 {
		return 0
	}
	return mark
}

// stripNumber drops whitespace, currency symbols and a leading or trailing
// three-letter currency code. It fails when digits are missing or stray
// characters remain.
func stripNumber(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	if n := len(fields); n > 1 {
		if isCurrencyCode(fields[0]) {
			fields = fields[1:]
		} else if isCurrencyCode(fields[n-1]) {
			fields = fields[:n-1]
		}
	}
	s = strings.Join(fields, "")
	if len(s) > 3 && isCurrencyCode(s[:3]) {
		s = s[3:]
	} else if len(s) > 3 && isCurrencyCode(s[len(s)-3:]) {
		s = s[:len(s)-3]
	}

	var b strings.Builder
	digits := 0
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Sc, r):
			continue
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case r == ',' || r == '.' || r == '\'' || r == '-' || r == '+':
			b.WriteRune(r)
		default:
			return "", false
		}
	}
	out := b.String()
	if digits == 0 || strings.LastIndexAny(out, "+-") > 0 {
		return "", false
	}
	return out, true
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

type float64er interface {
	Float64() (float64, error)
}

// toFloat coerces a bound value into a number. Strings go through the
// locale-tolerant parser.
func toFloat(value any, locale *Locale) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return toFloat(float64(v), locale)
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return toFloat(f, locale)
		}
		return locale.ParseNumber(v)
	case float64er:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return toFloat(f, locale)
	default:
		return 0, false
	}
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		return parseBool(v)
	case nil:
		return false, false
	default:
		if f, ok := toFloat(v, defaultLocale); ok {
			return f != 0, true
		}
		return false, false
	}
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "on", "yes", "y", "checked":
		return true, true
	case "false", "0", "off", "no", "n", "":
		return false, true
	default:
		return false, false
	}
}

// toText renders scalar values for text-like fields. Empty strings and nil
// report false so callers fall back to the sentinel.
func toText(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(v)
		return v, s != ""
	case fmt.Stringer:
		s := v.String()
		return s, strings.TrimSpace(s) != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
			return "", false
		}
		s := fmt.Sprint(value)
		return s, strings.TrimSpace(s) != ""
	}
}

// toList returns the elements of a slice value. nil is an empty list.
func toList(value any) ([]any, bool) {
	return values.List(value)
}

func isNilPointer(value any) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts time.Time, ISO strings and numeric unix timestamps
// (seconds, or milliseconds when large). Digit-only strings are not read as
// timestamps. Zone-less strings are read in loc.
func parseTime(value any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, !v.IsZero()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if f, ok := toFloat(value, defaultLocale); ok && f == math.Trunc(f) {
		return fromUnix(int64(f)), true
	}
	return time.Time{}, false
}

func fromUnix(n int64) time.Time {
	if n > 1e12 || n < -1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// parseUserDate reads raw input and normalises it to the ISO boundary:
// 2006-01-02 for DATE, RFC 3339 for DATETIME. Locale layouts are accepted
// as a fallback.
func parseUserDate(raw string, withTime bool, locale *Locale) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	t, ok := parseTime(raw, locale.location)
	if !ok {
		layout := locale.conv.dateLayout
		if withTime {
			layout = locale.conv.dateTimeLayout
		}
		parsed, err := time.ParseInLocation(layout, raw, locale.location)
		if err != nil {
			return "", false
		}
		t, ok = parsed, true
	}
	if withTime {
		return t.Format(time.RFC3339), true
	}
	return t.Format("2006-01-02"), true
}
