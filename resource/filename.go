package resource

import (
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
)

const maxTitleFilenameLength = 50

var invalidFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// sanitizeFilename strips characters that are invalid in file names,
// trims surrounding whitespace and collapses internal whitespace runs.
func sanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")

	return repeatedSpaceRegex.ReplaceAllString(strings.TrimSpace(name), " ")
}

// hashOf returns a short, deterministic textual hash of s. It is used to
// disambiguate file names derived from URLs that differ only in their
// query strings and as a last-resort file name.
func hashOf(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))

	return strconv.FormatUint(uint64(h.Sum32()), 10)
}

// truncate limits s to at most limit characters.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
