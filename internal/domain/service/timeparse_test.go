package service

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // RFC3339, empty means nil expected
	}{
		{"ISO datetime", "2024-03-15 10:30:00", "2024-03-15T10:30:00Z"},
		{"Day-first datetime", "15-03-2024 10:30:00", "2024-03-15T10:30:00Z"},
		{"Day-first no seconds", "15-03-2024 10:30", "2024-03-15T10:30:00Z"},
		{"Date only", "2024-03-15", "2024-03-15T00:00:00Z"},
		{"Surrounding whitespace", "  2024-03-15 10:30:00  ", "2024-03-15T10:30:00Z"},
		{"Empty", "", ""},
		{"Garbage", "not-a-date", ""},
		{"Unsupported layout", "03/15/2024", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Errorf("ParseTimestamp(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseTimestamp(%q) = nil, want %s", tt.input, tt.want)
			}
			want, _ := time.Parse(time.RFC3339, tt.want)
			if !got.Equal(want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, want)
			}
		})
	}
}
