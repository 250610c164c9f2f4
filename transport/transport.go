/*
	transport package implements the default network collaborator for the
	archiver. It resolves a URL to raw bytes together with the content
	type, the server-reported content location and the detected character
	encoding. Decompression and charset sniffing happen here so that the
	crawler never has to deal with either.
*/

package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/mycok/uArchive/resource"
)

// Static and compile-time check to ensure Client implements
// resource.Fetcher interface.
var _ resource.Fetcher = (*Client)(nil)

// ErrNotModified signals that the server answered an If-Modified-Since
// request with 304.
var ErrNotModified = errors.New("resource not modified")

// Error wraps a failed transport request.
type Error struct {
	URL        string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %q: unexpected status %d", e.URL, e.StatusCode)
	}

	return fmt.Sprintf("fetch %q: %v", e.URL, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// PrivateNetworkDetector should be implemented by objects that can detect
// whether a host resolves to a private network address.
type PrivateNetworkDetector interface {
	IsNetworkPrivate(address string) (bool, error)
}

// Config configures a transport client.
type Config struct {
	// HTTPClient performs the requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// UserAgent is sent with every request when set.
	UserAgent string

	// Detector, when set, rejects URLs whose host resolves to a private
	// network address before any request is made.
	Detector PrivateNetworkDetector
}

// Client fetches resources over HTTP(S).
type Client struct {
	config Config
}

// NewClient returns a transport client ready for use by the archiver.
func NewClient(config Config) *Client {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	return &Client{config: config}
}

// Fetch retrieves the resource at rawURL. A non-zero ifModifiedSince is
// forwarded as an If-Modified-Since header; a 304 answer surfaces as an
// *Error wrapping ErrNotModified. Non-2xx statuses fail with *Error.
func (c *Client) Fetch(rawURL string, ifModifiedSince time.Time) (*resource.Response, error) {
	if c.config.Detector != nil {
		if err := c.rejectPrivateHosts(rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Cause: err}
	}

	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	if !ifModifiedSince.IsZero() {
		req.Header.Set("If-Modified-Since", ifModifiedSince.UTC().Format(http.TimeFormat))
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Cause: ErrNotModified}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: rawURL, Cause: err}
	}

	contentType := resp.Header.Get("Content-Type")
	isBinary := resource.IsBinaryContent(contentType)

	response := &resource.Response{
		Bytes:           body,
		ContentType:     contentType,
		ContentLocation: contentLocation(resp, rawURL),
		IsBinary:        isBinary,
	}

	if !isBinary {
		// Charset resolution order: Content-Type header parameter, then
		// an HTML <meta> scan of the body, then a best-effort guess.
		enc, name, _ := charset.DetermineEncoding(body, contentType)
		response.Encoding = enc
		response.EncodingName = name
	}

	return response, nil
}

// contentLocation derives the server's canonical URL for the fetched
// resource: an explicit Content-Location header wins, otherwise the
// final URL after redirects when it differs from the requested one.
func contentLocation(resp *http.Response, requested string) string {
	if loc := resp.Header.Get("Content-Location"); loc != "" {
		if resolved, err := resp.Request.URL.Parse(loc); err == nil {
			return resolved.String()
		}
	}

	if final := resp.Request.URL.String(); final != requested {
		return final
	}

	return ""
}

func (c *Client) rejectPrivateHosts(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &Error{URL: rawURL, Cause: err}
	}

	host := parsed.Hostname()
	if host == "" {
		return &Error{URL: rawURL, Cause: errors.New("missing host")}
	}

	isPrivate, err := c.config.Detector.IsNetworkPrivate(host)
	if err != nil {
		return &Error{URL: rawURL, Cause: err}
	}

	if isPrivate {
		return &Error{
			URL:   rawURL,
			Cause: fmt.Errorf("host %q resolves to a private network", host),
		}
	}

	return nil
}
