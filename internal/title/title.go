// Package title normalizes human-authored book titles into a volume or
// chapter label with a numeric ordering key. The extraction is best-effort
// and locale-sensitive: titles without any numeric token degrade to plain
// string identity, and titles with several numeric substrings (embedded
// years, issue counts) resolve to whatever the fallback chain picks.
package title

import (
	"regexp"
	"strings"
)

const (
	PrefixVolume  = "Volume"
	PrefixChapter = "Chapter"
)

var chapterPattern = regexp.MustCompile(`(?i)(?:\bchapter\b|\bch[.\s_-]*\d|#\d+)`)

// separatorReplacer folds locale punctuation and japanese year/month/issue
// markers into a plain dot so the number patterns see dotted sub-parts.
var separatorReplacer = strings.NewReplacer(
	"．", ".",
	"，", ".",
	",", ".",
	"＃", ".",
	"#", ".",
	"／", ".",
	"/", ".",
	"・", ".",
	"年", ".",
	"月", ".",
)

// numberPatterns are tried in priority order; within one pattern the last
// match wins, and the first pattern with any match decides the result.
var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:volume|chapter|vol\.?|ch\.?|no\.?|第)\s*(\d+(?:\.\d+)*)`),
	regexp.MustCompile(`\((\d+(?:\.\d+)*)\)`),
	regexp.MustCompile(`(?:^|\s)(\d+(?:\.\d+)*)(?:\s|$)`),
	regexp.MustCompile(`(\d+(?:\.\d+)*)`),
}

// ClassifyPrefix returns "Chapter" if the title carries a chapter marker or a
// bare #<number> token, otherwise "Volume".
func ClassifyPrefix(title string) string {
	if chapterPattern.MatchString(title) {
		return PrefixChapter
	}
	return PrefixVolume
}

// ExtractNumber returns the decimal ordering number of a title, or "" when no
// numeric token exists.
func ExtractNumber(title string) string {
	normalized := separatorReplacer.Replace(foldDigits(title))

	for _, pattern := range numberPatterns {
		matches := pattern.FindAllStringSubmatch(normalized, -1)
		if len(matches) == 0 {
			continue
		}

		number := matches[len(matches)-1][1]

		number = strings.TrimLeft(number, "0")
		if number == "" {
			number = "0"
		}

		return number
	}

	return ""
}

// VolumeLabel builds the volume identity of a title. When an ordering number
// was found the label is "<prefix> <number>", with forcedPrefix overriding the
// classified prefix; otherwise the trimmed title is returned verbatim.
func VolumeLabel(title, forcedPrefix string) string {
	number := ExtractNumber(title)
	if number == "" {
		return strings.TrimSpace(title)
	}

	prefix := forcedPrefix
	if prefix == "" {
		prefix = ClassifyPrefix(title)
	}

	return prefix + " " + number
}

// foldDigits translates full-width digit glyphs to their ASCII equivalents.
func foldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return '0' + (r - '０')
		}
		return r
	}, s)
}
