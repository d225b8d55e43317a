package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"whole amount", "100", false},
		{"two decimal places", "42.50", false},
		{"one decimal place", "0.5", false},
		{"smallest unit", "0.01", false},
		{"trailing zero beyond scale", "10.100", false},
		{"trailing zeros only", "25.0000", false},
		{"sub-cent behind trailing zero", "10.101", true},
		{"zero", "0", true},
		{"zero with scale", "0.00", true},
		{"negative", "-10.00", true},
		{"sub-cent precision", "1.005", true},
		{"many fractional digits", "3.14159", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("expected ErrInvalidAmount for %s, got %v", tt.amount, err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected %s to be valid, got %v", tt.amount, err)
			}
		})
	}
}

func TestValidCardNumber(t *testing.T) {
	if !ValidCardNumber("4539148803436467") {
		t.Error("expected valid luhn card number to pass")
	}
	if ValidCardNumber("4539148803436468") {
		t.Error("expected invalid checksum to fail")
	}
	if ValidCardNumber("not-a-number") {
		t.Error("expected non-numeric input to fail")
	}
	if ValidCardNumber("123") {
		t.Error("expected too-short input to fail")
	}
	if !ValidCardNumber("8912345678901234562") {
		t.Error("expected valid 19-digit card number to pass")
	}
	if ValidCardNumber("8912345678901234561") {
		t.Error("expected 19-digit number with bad checksum to fail")
	}
	if ValidCardNumber("+539148803436467") {
		t.Error("expected signed input to fail")
	}
}
