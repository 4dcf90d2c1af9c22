package render

import (
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultCurrency applies to CURRENCY fields without a currency code.
const DefaultCurrency = "EUR"

type localeConventions struct {
	symbolAfter    bool
	symbolSpace    bool
	yes, no        string
	dateLayout     string
	dateTimeLayout string
}

var supportedLocales = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.German,
	language.French,
	language.Spanish,
	language.Italian,
	language.Dutch,
	language.Portuguese,
}

var conventions = []localeConventions{
	{yes: "Yes", no: "No", dateLayout: "01/02/2006", dateTimeLayout: "01/02/2006 3:04 PM"},
	{yes: "Yes", no: "No", dateLayout: "02/01/2006", dateTimeLayout: "02/01/2006 15:04"},
	{symbolAfter: true, symbolSpace: true, yes: "Ja", no: "Nein", dateLayout: "02.01.2006", dateTimeLayout: "02.01.2006 15:04"},
	{symbolAfter: true, symbolSpace: true, yes: "Oui", no: "Non", dateLayout: "02/01/2006", dateTimeLayout: "02/01/2006 15:04"},
	{symbolAfter: true, symbolSpace: true, yes: "Sí", no: "No", dateLayout: "02/01/2006", dateTimeLayout: "02/01/2006 15:04"},
	{symbolAfter: true, symbolSpace: true, yes: "Sì", no: "No", dateLayout: "02/01/2006", dateTimeLayout: "02/01/2006 15:04"},
	{symbolSpace: true, yes: "Ja", no: "Nee", dateLayout: "02-01-2006", dateTimeLayout: "02-01-2006 15:04"},
	{symbolAfter: true, symbolSpace: true, yes: "Sim", no: "Não", dateLayout: "02/01/2006", dateTimeLayout: "02/01/2006 15:04"},
}

var localeMatcher = language.NewMatcher(supportedLocales)

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
	"CHF": "CHF",
	"SEK": "kr",
	"NOK": "kr",
	"DKK": "kr",
	"PLN": "zł",
	"BRL": "R$",
	"CAD": "CA$",
	"AUD": "A$",
}

// CurrencySymbol returns the display symbol for an ISO 4217 code, or the code
// itself when no symbol is known.
func CurrencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	if symbol, ok := currencySymbols[code]; ok {
		return symbol
	}
	return code
}

// Locale formats and parses numbers, currencies, booleans and dates for one
// language tag. Number grouping and separators come from CLDR data through
// golang.org/x/text.
type Locale struct {
	tag      language.Tag
	printer  *message.Printer
	decimal  rune
	conv     localeConventions
	location *time.Location
}

// LocaleOption customises a Locale.
type LocaleOption func(*Locale)

// WithBooleanLabels overrides the read-only labels of BOOLEAN fields.
func WithBooleanLabels(yes, no string) LocaleOption {
	return func(l *Locale) {
		if yes != "" {
			l.conv.yes = yes
		}
		if no != "" {
			l.conv.no = no
		}
	}
}

// WithDateLayouts overrides the read-only date and date-time layouts.
func WithDateLayouts(date, dateTime string) LocaleOption {
	return func(l *Locale) {
		if date != "" {
			l.conv.dateLayout = date
		}
		if dateTime != "" {
			l.conv.dateTimeLayout = dateTime
		}
	}
}

// WithLocation sets the zone DATETIME values are displayed and entered in.
func WithLocation(loc *time.Location) LocaleOption {
	return func(l *Locale) {
		if loc != nil {
			l.location = loc
		}
	}
}

// NewLocale builds a Locale for tag. Conventions fall back to the closest
// supported language.
func NewLocale(tag language.Tag, options ...LocaleOption) *Locale {
	_, index, _ := localeMatcher.Match(tag)
	if index < 0 || index >= len(conventions) {
		index = 0
	}
	l := &Locale{
		tag:      tag,
		printer:  message.NewPrinter(tag),
		conv:     conventions[index],
		location: time.UTC,
	}
	l.decimal = l.detectDecimal()
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// ParseLocale builds a Locale from a BCP 47 string such as "de-DE". Invalid
// input yields American English.
func ParseLocale(raw string, options ...LocaleOption) *Locale {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		tag = language.AmericanEnglish
	}
	return NewLocale(tag, options...)
}

var defaultLocale = NewLocale(language.AmericanEnglish)

// DefaultLocale returns the American English locale.
func DefaultLocale() *Locale { return defaultLocale }

// Tag returns the language tag.
func (l *Locale) Tag() language.Tag { return l.tag }

// Location returns the display zone.
func (l *Locale) Location() *time.Location { return l.location }

// DecimalSeparator returns the locale's decimal mark.
func (l *Locale) DecimalSeparator() rune { return l.decimal }

func (l *Locale) detectDecimal() rune {
	sample := l.printer.Sprintf("%v", number.Decimal(1.5, number.MinFractionDigits(1), number.MaxFractionDigits(1)))
	for _, r := range sample {
		if !unicode.IsDigit(r) {
			return r
		}
	}
	return '.'
}

// FormatNumber renders v with locale grouping and up to three fraction
// digits.
func (l *Locale) FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return l.printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(3)))
}

// FormatDecimal renders v with exactly digits fraction digits.
func (l *Locale) FormatDecimal(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if digits < 0 {
		digits = 0
	}
	return l.printer.Sprintf("%v", number.Decimal(v, number.MinFractionDigits(digits), number.MaxFractionDigits(digits)))
}

// FormatCurrency renders v with two fraction digits and the symbol of code
// placed the way the locale writes amounts.
func (l *Locale) FormatCurrency(v float64, code string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	amount := l.FormatDecimal(v, 2)
	symbol := CurrencySymbol(code)
	space := ""
	if l.conv.symbolSpace || len([]rune(symbol)) > 1 {
		space = " "
	}
	if l.conv.symbolAfter {
		return sign + amount + " " + symbol
	}
	return sign + symbol + space + amount
}

// Bool returns the locale's Yes/No label.
func (l *Locale) Bool(v bool) string {
	if v {
		return l.conv.yes
	}
	return l.conv.no
}

// FormatDate renders the calendar date of t.
func (l *Locale) FormatDate(t time.Time) string {
	return t.Format(l.conv.dateLayout)
}

// FormatDateTime renders t in the locale's zone.
func (l *Locale) FormatDateTime(t time.Time) string {
	return t.In(l.location).Format(l.conv.dateTimeLayout)
}

// ParseNumber reads user input tolerant of grouping marks and a comma
// decimal mark. Currency symbols, ISO codes and spaces are ignored.
// Anything else yields (0, false).
func (l *Locale) ParseNumber(raw string) (float64, bool) {
	return parseNumber(raw, l.decimal)
}

// ParseCurrency is ParseNumber for amounts.
func (l *Locale) ParseCurrency(raw string) (float64, bool) {
	return parseNumber(raw, l.decimal)
}

// ParseNumber parses with the default locale.
func ParseNumber(raw string) (float64, bool) {
	return defaultLocale.ParseNumber(raw)
}

// ParseCurrency parses with the default locale.
func ParseCurrency(raw string) (float64, bool) {
	return defaultLocale.ParseCurrency(raw)
}
