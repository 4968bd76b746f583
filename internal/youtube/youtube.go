// Package youtube validates video links before they are sent for extraction.
package youtube

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidLink is returned for input that is not a recognised video link.
var ErrInvalidLink = errors.New("please enter a valid YouTube link")

var (
	linkPattern   = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/|youtube\.com/shorts/|m\.youtube\.com/watch\?v=)[\w-]+`)
	shortPattern  = regexp.MustCompile(`youtu\.be/([\w-]+)`)
	watchPattern  = regexp.MustCompile(`[?&]v=([\w-]+)`)
	shortsPattern = regexp.MustCompile(`/shorts/([\w-]+)`)
)

// IsValid reports whether raw looks like a watch, short or youtu.be link.
func IsValid(raw string) bool {
	return linkPattern.MatchString(strings.TrimSpace(raw))
}

// Validate returns the trimmed link or ErrInvalidLink.
func Validate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !linkPattern.MatchString(trimmed) {
		return "", ErrInvalidLink
	}
	return trimmed, nil
}

// VideoID extracts the video id, or "" when none is present.
func VideoID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	for _, re := range []*regexp.Regexp{shortPattern, watchPattern, shortsPattern} {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			return m[1]
		}
	}
	return ""
}
