package resource

import "strings"

// IsBinaryContent reports whether a Content-Type header value describes
// binary content. Any content type without a "text" component is treated
// as binary.
func IsBinaryContent(contentType string) bool {
	return !strings.Contains(strings.ToLower(contentType), "text")
}

// IsHTMLContent reports whether a Content-Type header value describes
// HTML content.
func IsHTMLContent(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

// IsCSSContent reports whether a Content-Type header value describes
// CSS content.
func IsCSSContent(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/css")
}

// extensionsByContentType maps known content types to the file extension
// used for downloaded resources. Unknown content types fall back to .htm.
var extensionsByContentType = map[string]string{
	"text/html":                ".htm",
	"image/gif":                ".gif",
	"image/jpeg":               ".jpg",
	"text/javascript":          ".js",
	"application/x-javascript": ".js",
	"image/x-png":              ".png",
	"text/css":                 ".css",
	"text/plain":               ".txt",
}

// extensionFor resolves a Content-Type header value to a download file
// extension. Any parameters after a ";" are ignored.
func extensionFor(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mediaType, ";"); i != -1 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	if ext, ok := extensionsByContentType[mediaType]; ok {
		return ext
	}

	return ".htm"
}
