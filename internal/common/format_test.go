package common

import (
	"testing"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{1234.56, "$1,234.56"},
		{0, "$0.00"},
		{-500.00, "-$500.00"},
		{1000000.99, "$1,000,000.99"},
		{0.999, "$1.00"},
	}

	for _, tt := range tests {
		got := FormatMoney(tt.value)
		if got != tt.want {
			t.Errorf("FormatMoney(%.3f) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestFormatMoneyForCountry(t *testing.T) {
	tests := []struct {
		value   float64
		country string
		want    string
	}{
		{1234.56, "GB", "£1,234.56"},
		{1234.56, "gb", "£1,234.56"},
		{-20, "AU", "-A$20.00"},
		{99.5, "DE", "€99.50"},
		{10, "US", "$10.00"},
		{10, "", "$10.00"},
		{10, "ZZ", "$10.00"},
	}

	for _, tt := range tests {
		got := FormatMoneyForCountry(tt.value, tt.country)
		if got != tt.want {
			t.Errorf("FormatMoneyForCountry(%.2f, %q) = %q, want %q", tt.value, tt.country, got, tt.want)
		}
	}
}

func TestFormatSignedMoney(t *testing.T) {
	if got := FormatSignedMoney(5); got != "+$5.00" {
		t.Errorf("expected +$5.00, got %q", got)
	}
	if got := FormatSignedMoney(-5); got != "-$5.00" {
		t.Errorf("expected -$5.00, got %q", got)
	}
}

func TestFormatRatio(t *testing.T) {
	if got := FormatRatio(0.25); got != "25.0%" {
		t.Errorf("expected 25.0%%, got %q", got)
	}
	if got := FormatRatio(0); got != "0.0%" {
		t.Errorf("expected 0.0%%, got %q", got)
	}
}
