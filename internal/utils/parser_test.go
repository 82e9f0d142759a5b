package utils

import (
	"testing"
	"time"
)

func TestParseSizeToMB(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"64G", 65536, false},
		{"64GB", 65536, false},
		{"500M", 500, false},
		{"500", 500, false},
		{"1048576KB", 1024, false},
		{"1T", 1048576, false},
		{"  8g ", 8192, false},
		{"", 0, true},
		{"abc", 0, true},
		{"10X", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSizeToMB(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSizeToMB(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSizeToMB(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSizeToMB(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"2h", 2 * time.Hour, false},
		{"1h30m", 90 * time.Minute, false},
		{"02:00:00", 2 * time.Hour, false},
		{"2:30", 2*time.Hour + 30*time.Minute, false},
		{"7-00:00:00", 7 * 24 * time.Hour, false},
		{"1-12:30:00", 36*time.Hour + 30*time.Minute, false},
		{"", 0, true},
		{"banana", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDuration(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatWalltime(t *testing.T) {
	if got := FormatWalltime(7 * 24 * time.Hour); got != "7-00:00:00" {
		t.Errorf("FormatWalltime(7d) = %q, want 7-00:00:00", got)
	}
	if got := FormatWalltime(90 * time.Minute); got != "01:30:00" {
		t.Errorf("FormatWalltime(90m) = %q, want 01:30:00", got)
	}
	if got := FormatWalltime(0); got != "00:00:00" {
		t.Errorf("FormatWalltime(0) = %q, want 00:00:00", got)
	}
}

func TestFormatPressure(t *testing.T) {
	if got := FormatPressure(2187); got != "2187" {
		t.Errorf("FormatPressure(2187) = %q", got)
	}
	if got := FormatPressure(2187.5); got != "2187.5" {
		t.Errorf("FormatPressure(2187.5) = %q", got)
	}
}
