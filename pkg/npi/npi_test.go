package npi

import "testing"

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		npi  string
		want bool
	}{
		{"valid CMS example", "1234567893", true},
		{"too short", "123456789", false},
		{"too long", "12345678901", false},
		{"non-digit characters", "123456789a", false},
		{"all zeros fails checksum", "0000000000", false},
		{"off by one digit fails checksum", "1234567892", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.npi); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.npi, got, tt.want)
			}
		})
	}
}
