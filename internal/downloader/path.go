package downloader

import (
	"regexp"
	"strings"
)

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// sanitizeName strips characters that are unsafe in file names on any
// supported platform. An all-invalid name collapses to empty.
func sanitizeName(name string) string {
	clean := invalidNameChars.ReplaceAllString(name, "-")
	clean = strings.Trim(clean, " .")
	if strings.Trim(clean, "-") == "" {
		return ""
	}
	return clean
}
