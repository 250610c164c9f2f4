/*
	resource package models a single fetched (or fetch-failed) web
	resource: its identity, raw bytes, text encoding, classification and
	storage target. Nodes fetch themselves through a narrow transport
	interface and persist themselves through a narrow filesystem
	interface, both injected at construction time.
*/

package resource

import (
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/text/encoding"

	"github.com/mycok/uArchive/resolver"
	"github.com/mycok/uArchive/rewrite"
)

// DownloadState tracks the fetch lifecycle of a node. A node transitions
// from NotFetched to exactly one of Fetched or FetchFailed and is never
// re-fetched.
type DownloadState int

const (
	// NotFetched is the initial state of every node.
	NotFetched DownloadState = iota

	// Fetched marks a node whose content was retrieved successfully.
	Fetched

	// FetchFailed marks a node whose transport request failed.
	FetchFailed
)

// StorageMode selects where a downloaded resource is persisted.
type StorageMode int

const (
	// Memory keeps resource bytes in memory only and never touches the
	// filesystem.
	Memory StorageMode = iota

	// DiskTemporary persists resources to a scratch folder that is
	// removed once the archive has been produced.
	DiskTemporary

	// DiskPermanent persists resources next to the saved page.
	DiskPermanent
)

// Deps carries the external collaborators and per-build options a node
// needs to fetch, classify and persist itself.
type Deps struct {
	Fetcher Fetcher
	FS      FileSystem

	// UseTitleAsFilename derives download file names from the HTML
	// title instead of the URL when possible.
	UseTitleAsFilename bool

	// ForcedEncoding overrides the transport-detected text encoding.
	ForcedEncoding     encoding.Encoding
	ForcedEncodingName string
}

// Node represents one web resource addressed by a URL.
type Node struct {
	// OriginalURL is the URL exactly as first referenced. It is the
	// node's identity inside a resource graph and is never modified.
	OriginalURL string

	// ResolvedURL is the absolute canonical form of the URL with any
	// fragment stripped. A server-reported content-location replaces it.
	ResolvedURL string

	// URLRoot and URLFolder are derived from ResolvedURL. An HTML
	// <base href> declaration overrides URLFolder for this node only.
	URLRoot   string
	URLFolder string

	// ContentType is the raw Content-Type header value.
	ContentType string

	// Bytes holds the (possibly rewritten and re-encoded) resource body.
	Bytes []byte

	// TextEncoding is the character encoding of Bytes for text content.
	// It is never set for binary content.
	TextEncoding     encoding.Encoding
	TextEncodingName string

	// State is the download lifecycle state; FetchErr holds the
	// transport error for FetchFailed nodes.
	State    DownloadState
	FetchErr error

	// Storage selects where the resource is persisted.
	Storage StorageMode

	// DownloadFolder is the directory the resource is saved under for
	// disk storage modes.
	DownloadFolder string

	// Appended is set once the node has been emitted into an archive,
	// preventing duplicate emission.
	Appended bool

	deps      Deps
	baseName  string
	extension string
}

// New creates a node for a raw URL, canonicalizing it and deriving its
// root and folder components. It fails with *resolver.InvalidURLError
// when the URL is not a well-formed absolute URI.
func New(rawURL string, deps Deps) (*Node, error) {
	resolved, err := resolver.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	root, folder := resolver.Decompose(resolved)

	return &Node{
		OriginalURL: rawURL,
		ResolvedURL: resolved,
		URLRoot:     root,
		URLFolder:   folder,
		deps:        deps,
	}, nil
}

// IsBinary reports whether the fetched content is binary.
func (n *Node) IsBinary() bool { return IsBinaryContent(n.ContentType) }

// IsHTML reports whether the fetched content is HTML.
func (n *Node) IsHTML() bool { return IsHTMLContent(n.ContentType) }

// IsCSS reports whether the fetched content is CSS.
func (n *Node) IsCSS() bool { return IsCSSContent(n.ContentType) }

// Fetch retrieves the node's content through the transport collaborator.
// Fetching an already fetched node is a no-op and a failed node is never
// retried. On success the node records its content type and encoding,
// adopts a server-reported content-location as its authoritative URL and
// rewrites embedded references of HTML/CSS content to absolute form.
func (n *Node) Fetch() error {
	switch n.State {
	case Fetched:
		return nil
	case FetchFailed:
		return n.FetchErr
	}

	resp, err := n.deps.Fetcher.Fetch(n.ResolvedURL, time.Time{})
	if err != nil {
		n.State = FetchFailed
		n.FetchErr = err

		return err
	}

	n.ContentType = resp.ContentType
	n.Bytes = resp.Bytes

	// A transport may flag content binary even when the content type
	// reads as text; such content gets no encoding and no rewriting.
	binary := resp.IsBinary || n.IsBinary()

	if !binary {
		if n.deps.ForcedEncoding != nil {
			n.TextEncoding = n.deps.ForcedEncoding
			n.TextEncodingName = n.deps.ForcedEncodingName
		} else {
			n.TextEncoding = resp.Encoding
			n.TextEncodingName = resp.EncodingName
		}

		if n.TextEncodingName == "" {
			n.TextEncodingName = "utf-8"
		}
	}

	// The server's resolution of the requested URL is authoritative
	// over the client's guess. e.g. http://site.com/ may resolve to
	// http://site.com/default.htm.
	if loc := resp.ContentLocation; loc != "" && loc != n.ResolvedURL {
		n.ResolvedURL = resolver.ResolveNoValidate(loc)
		n.URLRoot, n.URLFolder = resolver.Decompose(n.ResolvedURL)
	}

	if !binary && (n.IsHTML() || n.IsCSS()) {
		text := n.decode(n.Bytes)

		if n.IsHTML() {
			if href, stripped, found := rewrite.ExtractBaseHref(text); found {
				n.URLFolder = href
				text = stripped
			}
		}

		text = rewrite.ToAbsolute(text, n.URLRoot, n.URLFolder)
		n.Bytes = n.encode(text)
	}

	n.State = Fetched

	return nil
}

// Text returns the node's content decoded into a string using the node's
// text encoding.
func (n *Node) Text() string {
	return n.decode(n.Bytes)
}

// SetText replaces the node's content with text re-encoded into the
// node's text encoding.
func (n *Node) SetText(text string) {
	n.Bytes = n.encode(text)
}

// Title extracts the content of the first <title> tag of a fetched HTML
// node, with tags stripped and entities decoded. Invoking it on non-HTML
// content fails with *NotHTMLOperationError.
func (n *Node) Title() (string, error) {
	if n.State != Fetched || !n.IsHTML() {
		return "", &NotHTMLOperationError{
			URL:         n.ResolvedURL,
			ContentType: n.ContentType,
		}
	}

	match := titleRegex.FindStringSubmatch(n.Text())
	if match == nil {
		return "", nil
	}

	return stripTags(match[1]), nil
}

// PlainText returns the node's content with all tags, scripts and styles
// stripped and HTML entities decoded.
func (n *Node) PlainText() string {
	return stripTags(n.Text())
}

// Save writes the node's content to path. With asText set the plain-text
// extraction of the content is written instead of the raw bytes.
func (n *Node) Save(path string, asText bool) error {
	if asText {
		return n.deps.FS.WriteFile(path, []byte(n.PlainText()))
	}

	return n.deps.FS.WriteFile(path, n.Bytes)
}

// SetBaseName overrides the derived download file name (without
// extension).
func (n *Node) SetBaseName(name string) { n.baseName = name }

// SetExtension overrides the derived download file extension.
func (n *Node) SetExtension(ext string) { n.extension = ext }

// BaseName lazily resolves the download file name without its extension.
// An explicitly assigned name wins; otherwise the name derives from the
// HTML title when enabled, then from the last URL path segment with a
// query-hash suffix for disambiguation, then from the title again and
// finally from a hash of the URL itself.
func (n *Node) BaseName() string {
	if n.baseName == "" {
		n.baseName = n.deriveBaseName()
	}

	return n.baseName
}

func (n *Node) deriveBaseName() string {
	if n.deps.UseTitleAsFilename {
		if name := n.titleName(); name != "" {
			return name
		}
	}

	var segment, query string
	if parsed, err := url.Parse(n.ResolvedURL); err == nil {
		segment = path.Base(parsed.Path)
		if segment == "/" || segment == "." {
			segment = ""
		}
		query = parsed.RawQuery
	}

	stem := sanitizeFilename(strings.TrimSuffix(segment, path.Ext(segment)))
	if stem != "" {
		if query != "" {
			stem += "_" + hashOf(query)
		}

		return stem
	}

	if name := n.titleName(); name != "" {
		return name
	}

	return hashOf(n.ResolvedURL)
}

func (n *Node) titleName() string {
	title, err := n.Title()
	if err != nil {
		return ""
	}

	return sanitizeFilename(truncate(title, maxTitleFilenameLength))
}

// TitleDownloadFilename derives the complete download file name from the
// HTML title regardless of the UseTitleAsFilename option. It returns ""
// when the content is not fetched HTML or carries no usable title.
func (n *Node) TitleDownloadFilename() string {
	name := n.titleName()
	if name == "" {
		return ""
	}

	return name + n.Extension()
}

// Extension lazily resolves the download file extension from the node's
// content type.
func (n *Node) Extension() string {
	if n.extension == "" {
		n.extension = extensionFor(n.ContentType)
	}

	return n.extension
}

// DownloadFilename returns the complete download file name including its
// extension.
func (n *Node) DownloadFilename() string {
	return n.BaseName() + n.Extension()
}

func (n *Node) decode(data []byte) string {
	if n.TextEncoding == nil {
		return string(data)
	}

	decoded, err := n.TextEncoding.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}

	return string(decoded)
}

func (n *Node) encode(text string) []byte {
	if n.TextEncoding == nil {
		return []byte(text)
	}

	encoded, err := n.TextEncoding.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return []byte(text)
	}

	return encoded
}
