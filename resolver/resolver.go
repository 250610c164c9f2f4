/*
	resolver package provides URL canonicalization helpers for the
	archiving components: validating raw URLs, stripping fragment
	identifiers and decomposing an absolute URL into its root and
	folder components.
*/

package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Locate the scheme + host prefix of an absolute http(s) URL.
// Note: the original archiver matched http:// roots only. https roots are
// recognized here as well since the reference extraction patterns already
// admit https URLs.
var rootRegex = regexp.MustCompile(`(?i)^(https?://[^/]+)`)

// InvalidURLError is returned when a raw URL cannot be parsed into a
// well-formed absolute URI.
type InvalidURLError struct {
	URL string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL: %q", e.URL)
}

// Resolve validates a raw URL and returns its canonical absolute form with
// any fragment identifier stripped from the tail.
func Resolve(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return "", &InvalidURLError{URL: raw}
	}

	return StripFragment(raw), nil
}

// ResolveNoValidate canonicalizes a URL that is already known to be valid,
// such as a server-reported content-location. It only strips the fragment
// identifier and never fails.
func ResolveNoValidate(raw string) string {
	return StripFragment(raw)
}

// StripFragment removes a trailing #fragment section from a URL.
func StripFragment(raw string) string {
	if i := strings.Index(raw, "#"); i != -1 {
		return raw[:i]
	}

	return raw
}

// Decompose splits an absolute http(s) URL into its root (scheme + host)
// and folder (everything up to but excluding the last path separator)
// components. URLs without a path beyond the host decompose into equal
// root and folder values. The folder component carries no trailing slash.
func Decompose(urlStr string) (root, folder string) {
	match := rootRegex.FindString(urlStr)
	if match == "" {
		return "", ""
	}

	root = match
	folder = root

	if i := strings.LastIndex(urlStr, "/"); i > len(root) {
		folder = urlStr[:i]
	}

	return root, folder
}
