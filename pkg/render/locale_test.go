package render

import (
	"testing"

	"golang.org/x/text/language"
)

func TestParseNumberTolerance(t *testing.T) {
	de := NewLocale(language.German)
	en := NewLocale(language.AmericanEnglish)

	cases := []struct {
		locale *Locale
		in     string
		want   float64
		ok     bool
	}{
		{de, "1.234,50 €", 1234.50, true},
		{de, "1234,5", 1234.5, true},
		{de, "1.234", 1234, true},
		{de, "-12,75", -12.75, true},
		{en, "1.234,50 €", 1234.50, true},
		{en, "$1,234.50", 1234.50, true},
		{en, "1,234", 1234, true},
		{en, "1,5", 1.5, true},
		{en, "EUR 99.90", 99.90, true},
		{en, "1 234 567", 1234567, true},
		{en, "1'234.5", 1234.5, true},
		{en, "", 0, false},
		{en, "abc", 0, false},
		{en, "12abc", 0, false},
		{en, "€", 0, false},
		{en, "1-2", 0, false},
	}
	for _, tc := range cases {
		got, ok := tc.locale.ParseNumber(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s ParseNumber(%q) = (%v, %v), want (%v, %v)", tc.locale.Tag(), tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPackageLevelParsers(t *testing.T) {
	if v, ok := ParseCurrency("1.234,50 €"); !ok || v != 1234.50 {
		t.Fatalf("ParseCurrency = (%v, %v)", v, ok)
	}
	if _, ok := ParseNumber("n/a"); ok {
		t.Fatalf("expected failure for garbage")
	}
}

func TestLocaleFallbackConventions(t *testing.T) {
	swissGerman := ParseLocale("de-CH")
	if swissGerman.Bool(true) != "Ja" {
		t.Fatalf("expected German conventions for de-CH, got %q", swissGerman.Bool(true))
	}
	broken := ParseLocale("not a tag")
	if broken.Tag() != language.AmericanEnglish {
		t.Fatalf("expected fallback tag, got %s", broken.Tag())
	}
	if CurrencySymbol("xyz") != "XYZ" || CurrencySymbol("") != "€" {
		t.Fatalf("unexpected currency symbols")
	}
}

func TestFormatNumberGrouping(t *testing.T) {
	de := NewLocale(language.German)
	if got := de.FormatNumber(1234567.125); got != "1.234.567,125" {
		t.Fatalf("unexpected German grouping %q", got)
	}
	if de.DecimalSeparator() != ',' {
		t.Fatalf("expected comma decimal, got %q", de.DecimalSeparator())
	}
	en := NewLocale(language.AmericanEnglish)
	if got := en.FormatDecimal(0.5, 2); got != "0.50" {
		t.Fatalf("unexpected English decimal %q", got)
	}
}
