package resource

import (
	"time"

	"golang.org/x/text/encoding"
)

// Response carries the result of fetching a single URL through the
// transport collaborator. Decompression and charset detection are the
// transport's responsibility.
type Response struct {
	// Bytes is the decompressed response body.
	Bytes []byte

	// ContentType is the raw Content-Type header value.
	ContentType string

	// ContentLocation is the server-reported canonical URL for the
	// resource, empty when the server reported none. When present it is
	// authoritative over the requested URL.
	ContentLocation string

	// Encoding is the character encoding detected for text content.
	Encoding encoding.Encoding

	// EncodingName is the IANA name of the detected encoding.
	EncodingName string

	// IsBinary hints whether the transport considers the content binary.
	// A set hint wins over the content-type heuristic.
	IsBinary bool
}

// Fetcher should be implemented by objects that resolve a URL to raw
// resource data. Implementations handle compression, proxies, cookies,
// authentication and timeouts.
type Fetcher interface {
	// Fetch retrieves the resource at url. A non-zero ifModifiedSince
	// value asks the server to answer only when the resource changed
	// after that time; a not-modified answer surfaces as an error.
	Fetch(url string, ifModifiedSince time.Time) (*Response, error)
}

// FileSystem should be implemented by objects that persist resource
// bytes for the archiver.
type FileSystem interface {
	// MkdirAll creates a directory along with any missing parents.
	MkdirAll(path string) error

	// WriteFile writes data to path, creating or truncating the file.
	WriteFile(path string, data []byte) error

	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)

	// Remove deletes the file at path.
	Remove(path string) error

	// RemoveDir deletes the directory at path.
	RemoveDir(path string) error

	// ReadDir lists the names of the entries in the directory at path.
	ReadDir(path string) ([]string, error)
}
