/*
	archive package assembles RFC2557 (MHT) multipart MIME streams from a
	root resource node and its settled resource graph. One Encoder
	instance serves exactly one build: it moves through an explicit
	header -> parts -> finalize state machine and must never be shared
	between concurrent builds.
*/

package archive

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/juju/clock"

	"github.com/mycok/uArchive/resource"
)

// Boundary is the fixed multipart boundary token. It deliberately
// mirrors the token produced by the classic MimeOLE generators so that
// archives stay byte-compatible with existing consumers.
const Boundary = "----=_NextPart_000_00"

// Number of raw bytes encoded into each base64 body line.
const base64LineChunk = 57

const crlf = "\r\n"

var (
	// ErrHeaderAlreadyWritten is returned when WriteHeader is invoked on
	// an encoder that already started a build.
	ErrHeaderAlreadyWritten = errors.New("archive header already written")

	// ErrHeaderNotWritten is returned when parts are written or the
	// archive finalized before a header exists.
	ErrHeaderNotWritten = errors.New("archive header not yet written")
)

type encoderState int

const (
	stateEmpty encoderState = iota
	stateHeaderWritten
)

// Config configures an archive encoder.
type Config struct {
	// SavedBy identifies who produced the archive in the From header.
	// Defaults to "Saved by <user> on <host>".
	SavedBy string

	// Generator and Version identify the producing software in the
	// X-MimeOLE header.
	Generator string
	Version   string

	// Clock supplies the Date header timestamp. Defaults to the wall
	// clock.
	Clock clock.Clock
}

func (c *Config) applyDefaults() {
	if c.SavedBy == "" {
		username := "unknown"
		if u, err := user.Current(); err == nil && u.Username != "" {
			username = u.Username
		}

		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "localhost"
		}

		c.SavedBy = fmt.Sprintf("Saved by %s on %s", username, host)
	}

	if c.Generator == "" {
		c.Generator = "uArchive"
	}

	if c.Version == "" {
		c.Version = "1.0"
	}

	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
}

// NodeSource is implemented by resource stores that expose their nodes
// in ascending key order.
type NodeSource interface {
	Nodes() []*resource.Node
}

// Encoder accumulates one multipart MIME archive.
type Encoder struct {
	config Config
	buf    strings.Builder
	state  encoderState
}

// NewEncoder returns an encoder ready to start one archive build.
func NewEncoder(config Config) *Encoder {
	config.applyDefaults()

	return &Encoder{config: config}
}

// WriteHeader emits the archive header block: message headers, the
// multipart content type with the fixed boundary token and the plain
// text preamble.
func (e *Encoder) WriteHeader(root *resource.Node) error {
	if e.state != stateEmpty {
		return ErrHeaderAlreadyWritten
	}

	title, err := root.Title()
	if err != nil {
		title = ""
	}

	e.writeLine("From: <" + e.config.SavedBy + ">")
	e.writeLine("Subject: " + title)
	e.writeLine("Date: " + e.config.Clock.Now().Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	e.writeLine("MIME-Version: 1.0")
	e.writeLine("Content-Type: multipart/related;")
	e.writeLine("\ttype=\"text/html\";")
	e.writeLine("\tboundary=\"" + Boundary + "\"")
	e.writeLine(fmt.Sprintf("X-MimeOLE: Produced by %s %s", e.config.Generator, e.config.Version))
	e.writeLine("")
	e.writeLine("This is a multi-part message in MIME format.")

	e.state = stateHeaderWritten

	return nil
}

// WritePart emits one boundary-delimited part for a node: quoted-
// printable for text content, base64 in fixed-size chunks for binary
// content. Nodes already appended and nodes whose fetch failed are
// skipped, making the call idempotent per node.
func (e *Encoder) WritePart(node *resource.Node) error {
	if e.state != stateHeaderWritten {
		return ErrHeaderNotWritten
	}

	if node.Appended || node.State != resource.Fetched {
		return nil
	}

	e.writeLine("--" + Boundary)

	if node.IsBinary() {
		e.writeLine("Content-Type: " + node.ContentType)
		e.writeLine("Content-Transfer-Encoding: base64")
		e.writeLine("Content-Location: " + node.ResolvedURL)
		e.writeLine("")
		e.writeBase64Body(node.Bytes)
	} else {
		e.writeLine("Content-Type: " + node.ContentType + ";")
		e.writeLine("\tcharset=\"" + node.TextEncodingName + "\"")
		e.writeLine("Content-Transfer-Encoding: quoted-printable")
		e.writeLine("Content-Location: " + node.ResolvedURL)
		e.writeLine("")
		e.writeLine(encodeQuotedPrintable(node.Text(), node.TextEncoding))
	}

	e.writeLine("")
	node.Appended = true

	return nil
}

// WriteAll emits the header, the root part first and one part per graph
// node in ascending key order, terminated by a trailing boundary line.
// Note: the trailing boundary intentionally lacks the closing "--"
// suffix required by a strict RFC2557 reading; existing consumers of
// this format accept and expect the bare form.
func (e *Encoder) WriteAll(root *resource.Node, graph NodeSource) error {
	if err := e.WriteHeader(root); err != nil {
		return err
	}

	if err := e.WritePart(root); err != nil {
		return err
	}

	for _, node := range graph.Nodes() {
		if err := e.WritePart(node); err != nil {
			return err
		}
	}

	e.writeLine("--" + Boundary)

	return nil
}

// Finalize returns the accumulated archive text and resets the encoder.
// Any further use requires a fresh header.
func (e *Encoder) Finalize() (string, error) {
	if e.state != stateHeaderWritten {
		return "", ErrHeaderNotWritten
	}

	text := e.buf.String()
	e.buf.Reset()
	e.state = stateEmpty

	return text, nil
}

// FinalizeToFile writes the accumulated archive to path using the root
// node's text encoding and resets the encoder.
func (e *Encoder) FinalizeToFile(fs resource.FileSystem, path string, root *resource.Node) error {
	text, err := e.Finalize()
	if err != nil {
		return err
	}

	data := []byte(text)
	if root.TextEncoding != nil {
		if encoded, encErr := root.TextEncoding.NewEncoder().Bytes(data); encErr == nil {
			data = encoded
		}
	}

	return fs.WriteFile(path, data)
}

func (e *Encoder) writeLine(line string) {
	e.buf.WriteString(line)
	e.buf.WriteString(crlf)
}

func (e *Encoder) writeBase64Body(data []byte) {
	for start := 0; start < len(data); start += base64LineChunk {
		end := start + base64LineChunk
		if end > len(data) {
			end = len(data)
		}

		e.writeLine(base64.StdEncoding.EncodeToString(data[start:end]))
	}
}
