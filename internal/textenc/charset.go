// Package textenc resolves the text encoding used for section headers and
// parameter bodies.
package textenc

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Charset is a text encoding together with the byte sequences the parser
// needs to split and compare encoded text.
type Charset struct {
	name    string
	enc     encoding.Encoding
	utf8    bool
	bom     []byte
	newline []byte
	cr      []byte
	crlf    []byte
}

var boms = map[string][]byte{
	"utf-8":    {0xEF, 0xBB, 0xBF},
	"utf-16le": {0xFF, 0xFE},
	"utf-16be": {0xFE, 0xFF},
}

// UTF8 is the default charset.
var UTF8 = FromEncoding(unicode.UTF8)

// Lookup returns the charset registered under name in the WHATWG encoding index.
func Lookup(name string) (*Charset, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}

	return FromEncoding(enc), nil
}

// FromEncoding wraps enc.
// The BOM is only known for the Unicode encodings of the WHATWG index.
func FromEncoding(enc encoding.Encoding) *Charset {
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = ""
	}

	c := &Charset{
		name: name,
		enc:  enc,
		utf8: name == "utf-8",
		bom:  boms[name],
	}
	c.newline = c.Encode("\n")
	c.cr = c.Encode("\r")
	c.crlf = c.Encode("\r\n")

	return c
}

// Name returns the canonical WHATWG name, or "" for encodings outside the index.
func (c *Charset) Name() string {
	return c.name
}

// BOM returns the byte order mark of the charset, or nil.
func (c *Charset) BOM() []byte {
	return c.bom
}

// Newline returns the encoded "\n".
func (c *Charset) Newline() []byte {
	return c.newline
}

// CR returns the encoded "\r".
func (c *Charset) CR() []byte {
	return c.cr
}

// CRLF returns the encoded "\r\n".
func (c *Charset) CRLF() []byte {
	return c.crlf
}

// Unit returns the code unit size used to align newline matches.
func (c *Charset) Unit() int {
	return len(c.newline)
}

// Encode encodes s. Characters the charset cannot represent are kept as UTF-8 bytes.
func (c *Charset) Encode(s string) []byte {
	if c.utf8 {
		return []byte(s)
	}

	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}

	// BOM-writing encoders prefix every call.
	if !strings.HasPrefix(s, "\uFEFF") {
		for _, bom := range boms {
			if bytes.HasPrefix(b, bom) {
				return b[len(bom):]
			}
		}
	}

	return b
}

// Decode decodes b into a string.
// UTF-8 input is returned as is so that parameter values keep their exact bytes.
func (c *Charset) Decode(b []byte) string {
	if c.utf8 {
		return string(b)
	}

	s, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}

	return string(s)
}
