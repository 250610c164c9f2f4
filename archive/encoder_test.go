package archive

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/juju/clock/testclock"
	check "gopkg.in/check.v1"

	"github.com/mycok/uArchive/resource"
)

// Initialize and register a pointer instance of the encoderTestSuite to be
// executed by check testing package.
var _ = check.Suite(new(encoderTestSuite))

type encoderTestSuite struct {
	encoder *Encoder
}

// nodeList is a NodeSource stub serving nodes in the order provided.
type nodeList []*resource.Node

func (l nodeList) Nodes() []*resource.Node { return l }

func (s *encoderTestSuite) SetUpTest(c *check.C) {
	s.encoder = NewEncoder(Config{
		SavedBy:   "Saved by tester on testhost",
		Generator: "uArchive",
		Version:   "1.0",
		Clock: testclock.NewClock(
			time.Date(2022, time.March, 4, 15, 30, 0, 0, time.UTC),
		),
	})
}

func (s *encoderTestSuite) TestHeaderBlock(c *check.C) {
	root := htmlNode(c, "http://x.com/", "<html><head><title>T</title></head></html>")

	c.Assert(s.encoder.WriteHeader(root), check.IsNil)

	text, err := s.encoder.Finalize()
	c.Assert(err, check.IsNil)

	c.Assert(text, check.Equals, strings.Join([]string{
		"From: <Saved by tester on testhost>",
		"Subject: T",
		"Date: Fri, 04 Mar 2022 15:30:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: multipart/related;",
		"\ttype=\"text/html\";",
		"\tboundary=\"----=_NextPart_000_00\"",
		"X-MimeOLE: Produced by uArchive 1.0",
		"",
		"This is a multi-part message in MIME format.",
		"",
	}, "\r\n"))
}

func (s *encoderTestSuite) TestHeaderCanOnlyBeWrittenOnce(c *check.C) {
	root := htmlNode(c, "http://x.com/", "<html></html>")

	c.Assert(s.encoder.WriteHeader(root), check.IsNil)
	c.Assert(s.encoder.WriteHeader(root), check.Equals, ErrHeaderAlreadyWritten)
}

func (s *encoderTestSuite) TestPartRequiresHeader(c *check.C) {
	root := htmlNode(c, "http://x.com/", "<html></html>")

	c.Assert(s.encoder.WritePart(root), check.Equals, ErrHeaderNotWritten)
}

func (s *encoderTestSuite) TestTextPartUsesQuotedPrintable(c *check.C) {
	root := htmlNode(c, "http://x.com/page.html", "<html>x = y</html>")

	c.Assert(s.encoder.WriteHeader(root), check.IsNil)
	c.Assert(s.encoder.WritePart(root), check.IsNil)

	text, err := s.encoder.Finalize()
	c.Assert(err, check.IsNil)

	c.Assert(strings.Contains(text, "--"+Boundary+"\r\n"), check.Equals, true)
	c.Assert(strings.Contains(text, "Content-Type: text/html;\r\n"), check.Equals, true)
	c.Assert(strings.Contains(text, "\tcharset=\"utf-8\"\r\n"), check.Equals, true)
	c.Assert(
		strings.Contains(text, "Content-Transfer-Encoding: quoted-printable\r\n"),
		check.Equals, true,
	)
	c.Assert(
		strings.Contains(text, "Content-Location: http://x.com/page.html\r\n"),
		check.Equals, true,
	)
	c.Assert(strings.Contains(text, "<html>x =3D y</html>\r\n"), check.Equals, true)
}

func (s *encoderTestSuite) TestBinaryPartChunking(c *check.C) {
	// A 100 byte payload must split into exactly two base64 lines: one
	// for the first 57 raw bytes and one for the remaining 43.
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}

	node := binaryNode(c, "http://x.com/i.png", "image/x-png", payload)
	root := htmlNode(c, "http://x.com/", "<html></html>")

	c.Assert(s.encoder.WriteHeader(root), check.IsNil)
	c.Assert(s.encoder.WritePart(node), check.IsNil)

	text, err := s.encoder.Finalize()
	c.Assert(err, check.IsNil)

	c.Assert(
		strings.Contains(text, "Content-Transfer-Encoding: base64\r\n"),
		check.Equals, true,
	)

	wantFirst := base64.StdEncoding.EncodeToString(payload[:57])
	wantSecond := base64.StdEncoding.EncodeToString(payload[57:])
	c.Assert(
		strings.Contains(text, wantFirst+"\r\n"+wantSecond+"\r\n"),
		check.Equals, true,
	)
}

func (s *encoderTestSuite) TestPartEmissionIsIdempotent(c *check.C) {
	root := htmlNode(c, "http://x.com/", "<html></html>")
	node := binaryNode(c, "http://x.com/i.gif", "image/gif", []byte{0x47})

	c.Assert(s.encoder.WriteHeader(root), check.IsNil)
	c.Assert(s.encoder.WritePart(node), check.IsNil)
	c.Assert(s.encoder.WritePart(node), check.IsNil)

	text, err := s.encoder.Finalize()
	c.Assert(err, check.IsNil)

	c.Assert(
		strings.Count(text, "Content-Location: http://x.com/i.gif"),
		check.Equals, 1,
	)
}

func (s *encoderTestSuite) TestFailedNodesAreOmitted(c *check.C) {
	root := htmlNode(c, "http://x.com/", "<html></html>")
	failed, err := resource.New("http://x.com/broken.gif", resource.Deps{})
	c.Assert(err, check.IsNil)
	failed.State = resource.FetchFailed

	c.Assert(s.encoder.WriteHeader(root), check.IsNil)
	c.Assert(s.encoder.WritePart(failed), check.IsNil)

	text, finErr := s.encoder.Finalize()
	c.Assert(finErr, check.IsNil)

	c.Assert(strings.Contains(text, "broken.gif"), check.Equals, false)
}

func (s *encoderTestSuite) TestWriteAllEmitsRootFirstThenAscendingOrder(c *check.C) {
	root := htmlNode(c, "http://x.com/zz-root.html", "<html></html>")
	graph := nodeList{
		binaryNode(c, "http://x.com/a.gif", "image/gif", []byte{1}),
		binaryNode(c, "http://x.com/b.gif", "image/gif", []byte{2}),
	}

	c.Assert(s.encoder.WriteAll(root, graph), check.IsNil)

	text, err := s.encoder.Finalize()
	c.Assert(err, check.IsNil)

	rootAt := strings.Index(text, "Content-Location: http://x.com/zz-root.html")
	aAt := strings.Index(text, "Content-Location: http://x.com/a.gif")
	bAt := strings.Index(text, "Content-Location: http://x.com/b.gif")

	c.Assert(rootAt > 0, check.Equals, true)
	c.Assert(rootAt < aAt, check.Equals, true)
	c.Assert(aAt < bAt, check.Equals, true)
}

func (s *encoderTestSuite) TestWriteAllTrailingBoundaryHasNoCloseSuffix(c *check.C) {
	root := htmlNode(c, "http://x.com/", "<html></html>")

	c.Assert(s.encoder.WriteAll(root, nodeList{}), check.IsNil)

	text, err := s.encoder.Finalize()
	c.Assert(err, check.IsNil)

	c.Assert(strings.HasSuffix(text, "--"+Boundary+"\r\n"), check.Equals, true)
	c.Assert(strings.Contains(text, "--"+Boundary+"--"), check.Equals, false)
}

func (s *encoderTestSuite) TestFinalizeResetsEncoder(c *check.C) {
	root := htmlNode(c, "http://x.com/", "<html></html>")

	c.Assert(s.encoder.WriteAll(root, nodeList{}), check.IsNil)

	_, err := s.encoder.Finalize()
	c.Assert(err, check.IsNil)

	_, err = s.encoder.Finalize()
	c.Assert(err, check.Equals, ErrHeaderNotWritten)
}

func htmlNode(c *check.C, url, body string) *resource.Node {
	node, err := resource.New(url, resource.Deps{})
	c.Assert(err, check.IsNil)

	node.ContentType = "text/html"
	node.TextEncodingName = "utf-8"
	node.Bytes = []byte(body)
	node.State = resource.Fetched

	return node
}

func binaryNode(c *check.C, url, contentType string, data []byte) *resource.Node {
	node, err := resource.New(url, resource.Deps{})
	c.Assert(err, check.IsNil)

	node.ContentType = contentType
	node.Bytes = data
	node.State = resource.Fetched

	return node
}
