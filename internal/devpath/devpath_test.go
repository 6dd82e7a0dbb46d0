package devpath

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "already normalized",
			input:    "Nokia 6/Internal Storage/Music",
			expected: "Nokia 6/Internal Storage/Music",
		},
		{
			name:     "windows separators",
			input:    "Nokia 6\\Internal Storage\\Music",
			expected: "Nokia 6/Internal Storage/Music",
		},
		{
			name:     "trailing separator",
			input:    "Nokia 6/Internal Storage/",
			expected: "Nokia 6/Internal Storage",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "single separator",
			input:    "/",
			expected: "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple path",
			input:    "dev/storage/dir",
			expected: []string{"dev", "storage", "dir"},
		},
		{
			name:     "double separators collapse",
			input:    "dev//dir",
			expected: []string{"dev", "dir"},
		},
		{
			name:     "mixed separators",
			input:    "dev\\storage/dir",
			expected: []string{"dev", "storage", "dir"},
		},
		{
			name:     "empty path",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Segments(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Segments(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		name     string
		parts    []string
		expected string
	}{
		{
			name:     "two parts",
			parts:    []string{"dev", "storage"},
			expected: "dev/storage",
		},
		{
			name:     "empty part skipped",
			parts:    []string{"", "storage"},
			expected: "storage",
		},
		{
			name:     "no parts",
			parts:    nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Join(tt.parts...); got != tt.expected {
				t.Errorf("Join(%v) = %q, want %q", tt.parts, got, tt.expected)
			}
		})
	}
}

func TestCut(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedFirst string
		expectedRest  string
	}{
		{
			name:          "device and path",
			input:         "Nokia 6/Internal Storage/Music",
			expectedFirst: "Nokia 6",
			expectedRest:  "Internal Storage/Music",
		},
		{
			name:          "device only",
			input:         "Nokia 6",
			expectedFirst: "Nokia 6",
			expectedRest:  "",
		},
		{
			name:          "empty",
			input:         "",
			expectedFirst: "",
			expectedRest:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, rest := Cut(tt.input)
			if first != tt.expectedFirst || rest != tt.expectedRest {
				t.Errorf("Cut(%q) = (%q, %q), want (%q, %q)",
					tt.input, first, rest, tt.expectedFirst, tt.expectedRest)
			}
		})
	}
}

func TestBase(t *testing.T) {
	if got := Base("dev/storage/file.txt"); got != "file.txt" {
		t.Errorf("Base = %q, want %q", got, "file.txt")
	}
	if got := Base(""); got != "" {
		t.Errorf("Base of empty path = %q, want empty", got)
	}
}
