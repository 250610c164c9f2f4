/*
	rewrite package implements pattern-based reference rewriting for raw
	HTML and CSS content. It rewrites relative references to absolute
	form before a resource set is crawled, extracts the set of externally
	referenced URLs that drive the crawl, and rewrites references to
	local file paths once the resource set is settled.
*/

package rewrite

import (
	"regexp"
	"strings"
)

var (
	// Locate href / src / background attributes together with their
	// delimited values.
	attrRegex = regexp.MustCompile(
		`(?i)\b(href|src|background)(\s*=\s*)("[^"]*"|'[^']*'|[^\s>]+)`,
	)

	// Locate CSS @import / *-image: / background: constructs with either
	// a url(...) or a bare quoted reference.
	cssRegex = regexp.MustCompile(
		`(?i)(@import\s+|[\w-]*image\s*:\s*|background\s*:[^;{}]*?)` +
			`(url\(\s*['"]?[^'")\s]+['"]?\s*\)|"[^"]+"|'[^']+')`,
	)

	// Locate src= / background= attribute references for extraction.
	srcAttrRegex = regexp.MustCompile(
		`(?i)\b(?:src|background)\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`,
	)

	// Locate <link href=...> references.
	linkHrefRegex = regexp.MustCompile(
		`(?i)<link[^>]*?href\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`,
	)

	// Locate <iframe src=...> and <frame src=...> references.
	frameSrcRegex = regexp.MustCompile(
		`(?i)<i?frame[^>]*?src\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`,
	)

	// Only absolute http(s) URLs participate in the crawl.
	absoluteURLRegex = regexp.MustCompile(`(?i)^https?://\w`)

	// Locate the <base href="xxx"> tag and return the value of the href
	// attribute, and the whole tag for removal.
	baseHrefRegex = regexp.MustCompile(`(?i)<base[^>]*?href\s*?=\s*?["']?([^"'\s>]+)["']?`)
	baseTagRegex  = regexp.MustCompile(`(?i)<base[^>]*>`)

	// Value prefixes that must never be rewritten to absolute form.
	skippedPrefixes = []string{
		"http:", "https:", "ftp:", "mailto:", "javascript:", "data:", "#",
	}
)

// Reference is one discovered external reference: the literal delimited
// text as matched in the content and the delimiter-stripped URL.
type Reference struct {
	Delimited string
	URL       string
}

// NodeLookup is implemented by resource stores that can resolve a
// referenced URL to the local filename of its downloaded resource.
type NodeLookup interface {
	// LocalName returns the download filename for the resource keyed by
	// the given URL and whether such a resource exists.
	LocalName(url string) (string, bool)
}

// ToAbsolute rewrites root-relative and path-relative references inside
// HTML or CSS content into absolute URLs. Root-relative references (a
// leading /) are prefixed with root, path-relative ones with folder. The
// original quoting and delimiter style of every match is preserved.
func ToAbsolute(content, root, folder string) string {
	content = attrRegex.ReplaceAllStringFunc(content, func(match string) string {
		sub := attrRegex.FindStringSubmatch(match)
		value, quote := unquote(sub[3])

		rewritten, ok := absolutize(value, root, folder)
		if !ok {
			return match
		}

		return sub[1] + sub[2] + quote + rewritten + quote
	})

	content = cssRegex.ReplaceAllStringFunc(content, func(match string) string {
		sub := cssRegex.FindStringSubmatch(match)
		value, ok := stripCSSDelimiters(sub[2])
		if !ok {
			return match
		}

		rewritten, rewriteOK := absolutize(value, root, folder)
		if !rewriteOK {
			return match
		}

		return sub[1] + wrapLike(sub[2], rewritten)
	})

	return content
}

// absolutize resolves a single reference value against root / folder.
// The second return value reports whether a rewrite applies at all:
// absolute URLs, non-archivable schemes and in-page anchors are left
// untouched.
func absolutize(value, root, folder string) (string, bool) {
	if value == "" || strings.HasPrefix(value, "//") {
		return "", false
	}

	lower := strings.ToLower(value)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	if strings.HasPrefix(value, "/") {
		return root + value, true
	}

	return folder + "/" + value, true
}

// ExtractReferences scans content for the four supported reference shapes:
// src= / background= attributes, CSS @import / url() / image directives,
// <link href=...> tags and <iframe|frame src=...> tags. The result is an
// insertion-ordered list of (delimited text, bare URL) pairs. Values that
// are not absolute http(s) URLs are discarded and the first occurrence of
// a given delimited key wins.
func ExtractReferences(content string) []Reference {
	var refs []Reference
	seen := make(map[string]struct{})

	appendRef := func(delimited, bare string) {
		if !absoluteURLRegex.MatchString(bare) {
			return
		}

		if _, exists := seen[delimited]; exists {
			return
		}

		seen[delimited] = struct{}{}
		refs = append(refs, Reference{Delimited: delimited, URL: bare})
	}

	for _, match := range srcAttrRegex.FindAllStringSubmatch(content, -1) {
		value, _ := unquote(match[1])
		appendRef(match[1], value)
	}

	for _, match := range cssRegex.FindAllStringSubmatch(content, -1) {
		if value, ok := stripCSSDelimiters(match[2]); ok {
			appendRef(match[2], value)
		}
	}

	for _, match := range linkHrefRegex.FindAllStringSubmatch(content, -1) {
		value, _ := unquote(match[1])
		appendRef(match[1], value)
	}

	for _, match := range frameSrcRegex.FindAllStringSubmatch(content, -1) {
		value, _ := unquote(match[1])
		appendRef(match[1], value)
	}

	return refs
}

// ToLocal rewrites every extracted reference whose URL exists in the
// lookup store into a local path of the form localFolder/<filename>,
// preserving the delimiter style of the original occurrence.
func ToLocal(content string, refs []Reference, store NodeLookup, localFolder string) string {
	for _, ref := range refs {
		name, exists := store.LocalName(ref.URL)
		if !exists {
			continue
		}

		local := name
		if localFolder != "" {
			local = localFolder + "/" + name
		}

		content = strings.ReplaceAll(content, ref.Delimited, wrapLike(ref.Delimited, local))
	}

	return content
}

// ExtractBaseHref locates an HTML <base href=...> declaration. When
// present it returns the href value with any trailing slash stripped and
// the content with the <base ...> tag removed. The second return value
// reports whether a base declaration was found.
func ExtractBaseHref(content string) (href, stripped string, found bool) {
	match := baseHrefRegex.FindStringSubmatch(content)
	if match == nil {
		return "", content, false
	}

	href = strings.TrimSuffix(match[1], "/")
	stripped = baseTagRegex.ReplaceAllString(content, "")

	return href, stripped, true
}

// unquote strips a single level of matching quotes from a delimited value
// and reports the quote character used, if any.
func unquote(delimited string) (value, quote string) {
	if len(delimited) >= 2 {
		first := delimited[0]
		if (first == '"' || first == '\'') && delimited[len(delimited)-1] == first {
			return delimited[1 : len(delimited)-1], string(first)
		}
	}

	return delimited, ""
}

// stripCSSDelimiters reduces a CSS reference token, either url(...) with
// optional inner quotes or a bare quoted string, to its URL value.
func stripCSSDelimiters(token string) (string, bool) {
	lower := strings.ToLower(token)
	if strings.HasPrefix(lower, "url(") && strings.HasSuffix(token, ")") {
		inner := strings.TrimSpace(token[4 : len(token)-1])
		inner = strings.Trim(inner, `'"`)
		if inner == "" {
			return "", false
		}

		return inner, true
	}

	value, quote := unquote(token)
	if quote == "" {
		return "", false
	}

	return value, true
}

// wrapLike wraps a replacement value in the same delimiter style used by
// the original delimited token.
func wrapLike(original, value string) string {
	lower := strings.ToLower(original)

	switch {
	case strings.HasPrefix(lower, "url("):
		if strings.Contains(original, `"`) {
			return `url("` + value + `")`
		}
		if strings.Contains(original, "'") {
			return "url('" + value + "')"
		}

		return "url(" + value + ")"
	case strings.HasPrefix(original, `"`):
		return `"` + value + `"`
	case strings.HasPrefix(original, "'"):
		return "'" + value + "'"
	default:
		return value
	}
}
