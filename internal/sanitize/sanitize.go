package sanitize

import (
	"regexp"
	"strings"
)

var illegalChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Filename removes problematic characters from a rendered filename
func Filename(name string) string {
	// Trim spaces & dots
	name = strings.Trim(name, " .")

	// Remove illegal chars
	return illegalChars.ReplaceAllString(name, "")
}

// Path sanitizes every segment of a rendered archive path while keeping the
// forward slashes that separate them
func Path(path string) string {
	segments := strings.Split(path, "/")

	cleaned := segments[:0]
	for _, segment := range segments {
		segment = Filename(segment)
		if segment != "" {
			cleaned = append(cleaned, segment)
		}
	}

	return strings.Join(cleaned, "/")
}
