package archive

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
)

// Maximum visible line length before a soft or hard line break is
// inserted into quoted-printable output.
const qpMaxLineLength = 73

// encodeQuotedPrintable encodes text for a quoted-printable archive body.
// The equals sign and every code point above 126 are escaped as =HH;
// code points above 255 are first re-encoded into bytes using enc (the
// resource's text encoding) and each resulting byte escaped individually.
// Whenever the running line length reaches the limit, a soft break is
// inserted at the last literal space of the line when one exists,
// otherwise a hard break is inserted at the current position. A trailing
// literal space is escaped as =20.
func encodeQuotedPrintable(text string, enc encoding.Encoding) string {
	if text == "" {
		return ""
	}

	var out strings.Builder

	// line holds the visible characters of the line being assembled;
	// lastSpace is the index just past the most recent literal space.
	var line []byte
	lastSpace := -1

	flushBreak := func() {
		if lastSpace >= 0 {
			out.Write(line[:lastSpace])
			out.WriteString("=\r\n")
			line = append([]byte(nil), line[lastSpace:]...)
			lastSpace = -1

			return
		}

		out.Write(line)
		out.WriteString("=\r\n")
		line = line[:0]
	}

	appendToken := func(token string, isSpace bool) {
		line = append(line, token...)
		if isSpace {
			lastSpace = len(line)
		}

		if len(line) >= qpMaxLineLength {
			flushBreak()
		}
	}

	for _, r := range text {
		switch {
		case r > 255:
			for _, b := range encodeRune(r, enc) {
				appendToken(fmt.Sprintf("=%02X", b), false)
			}
		case r == '=' || r > 126:
			appendToken(fmt.Sprintf("=%02X", r), false)
		default:
			appendToken(string(r), r == ' ')
		}
	}

	out.Write(line)

	encoded := out.String()
	if strings.HasSuffix(encoded, " ") {
		encoded = encoded[:len(encoded)-1] + "=20"
	}

	return encoded
}

// encodeRune converts a rune above 255 into bytes of the target text
// encoding, falling back to its UTF-8 bytes when no encoding is known or
// the rune has no representation in it.
func encodeRune(r rune, enc encoding.Encoding) []byte {
	utf8Bytes := []byte(string(r))
	if enc == nil {
		return utf8Bytes
	}

	encoded, err := enc.NewEncoder().Bytes(utf8Bytes)
	if err != nil || len(encoded) == 0 {
		return utf8Bytes
	}

	return encoded
}
