package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  decimal.Decimal
		wantErr bool
	}{
		{"positive", decimal.NewFromInt(1), false},
		{"small fraction", decimal.RequireFromString("0.0001"), false},
		{"zero", decimal.Zero, true},
		{"negative", decimal.NewFromInt(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAmount() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr error
	}{
		{input: "1.2345", want: "1.2345"},
		{input: "  10 ", want: "10"},
		{input: "", wantErr: ErrMissingAmount},
		{input: "   ", wantErr: ErrMissingAmount},
		{input: "INVALID", wantErr: ErrInvalidAmount},
		{input: "1,5", wantErr: ErrInvalidAmount},
		{input: "1e-900000000", wantErr: ErrInvalidAmount},
		{input: "1e900000000", wantErr: ErrInvalidAmount},
		{input: "0.00000000000000000000000000001", wantErr: ErrInvalidAmount},
		{input: "1e28", want: "1e28"},
		{input: "0.0000000000000000000000000001", want: "0.0000000000000000000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("1.5"), 4); got != "1.5000" {
		t.Errorf("expected 1.5000, got %s", got)
	}
	if got := FormatAmount(decimal.RequireFromString("2.123456"), DefaultPrecision); got != "2.1235" {
		t.Errorf("expected 2.1235, got %s", got)
	}
	if got := FormatAmount(decimal.Zero, -1); got != "0.0000" {
		t.Errorf("expected 0.0000, got %s", got)
	}
}

func TestParseIDs(t *testing.T) {
	if id, err := ParseClientID(" 42 "); err != nil || id != 42 {
		t.Errorf("ParseClientID() = %d, %v", id, err)
	}
	if _, err := ParseClientID("70000"); !errors.Is(err, ErrMalformedRow) {
		t.Errorf("expected ErrMalformedRow for out of range client, got %v", err)
	}
	if _, err := ParseClientID("-1"); !errors.Is(err, ErrMalformedRow) {
		t.Errorf("expected ErrMalformedRow for negative client, got %v", err)
	}
	if id, err := ParseTxID("4294967295"); err != nil || id != 4294967295 {
		t.Errorf("ParseTxID() = %d, %v", id, err)
	}
	if _, err := ParseTxID("abc"); !errors.Is(err, ErrMalformedRow) {
		t.Errorf("expected ErrMalformedRow, got %v", err)
	}
}
