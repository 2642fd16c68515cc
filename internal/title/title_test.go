package title

import (
	"testing"
)

func TestClassifyPrefix(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Chapter 12", PrefixChapter},
		{"chapter 3", PrefixChapter},
		{"Ch. 4", PrefixChapter},
		{"#12", PrefixChapter},
		{"Volume 12", PrefixVolume},
		{"Vol. 3", PrefixVolume},
		{"Some Standalone Book", PrefixVolume},
	}

	for _, tt := range tests {
		if got := ClassifyPrefix(tt.title); got != tt.want {
			t.Errorf("ClassifyPrefix(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"explicit volume", "Volume 12", "12"},
		{"explicit chapter", "Chapter 3.5", "3.5"},
		{"vol abbreviation", "Vol. 7", "7"},
		{"no marker", "No. 4", "4"},
		{"full-width digits", "第５巻", "5"},
		{"full-width double digits", "第１２巻", "12"},
		{"hash number", "#12", "12"},
		{"leading zeros stripped", "Volume 007", "7"},
		{"parenthesized", "My Series (3)", "3"},
		{"space delimited", "My Series 8", "8"},
		{"no number at all", "Short Stories", ""},
		// the fallback chain takes the last match per pattern, so an
		// embedded year after the volume marker stays out of the way
		{"marker beats trailing year", "Volume 2 (2021)", "2"},
		// without a marker the parenthesized year wins over the bare number
		{"parenthesized year wins", "My Series 8 (2021)", "2021"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractNumber(tt.title); got != tt.want {
				t.Errorf("ExtractNumber(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestVolumeLabel(t *testing.T) {
	tests := []struct {
		name         string
		title        string
		forcedPrefix string
		want         string
	}{
		{"volume label", "Volume 12", "", "Volume 12"},
		{"chapter label", "Chapter 4", "", "Chapter 4"},
		{"forced prefix wins", "Chapter 4", "Volume", "Volume 4"},
		{"full-width digits", "第５巻", "", "Volume 5"},
		{"no number keeps title", "  Short Stories  ", "", "Short Stories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VolumeLabel(tt.title, tt.forcedPrefix); got != tt.want {
				t.Errorf("VolumeLabel(%q, %q) = %q, want %q", tt.title, tt.forcedPrefix, got, tt.want)
			}
		})
	}
}
