package streamform

import (
	"io"
	"log/slog"
	"strings"

	"github.com/mazrean/streamform/internal/textenc"
	"golang.org/x/text/encoding"
)

type Parser struct {
	boundary string
	valueMap map[string][]Value
	hookMap  map[string]streamHook
	parserConfig
}

// NewParser creates a parser for a multipart/form-data body.
// An empty boundary is detected from the first non-blank line of the body.
func NewParser(boundary string, options ...ParserOption) *Parser {
	return &Parser{
		boundary:     boundary,
		valueMap:     make(map[string][]Value),
		hookMap:      make(map[string]streamHook),
		parserConfig: newParserConfig(options),
	}
}

type parserConfig struct {
	bufferSize         int
	charset            *textenc.Charset
	binaryMimeTypes    map[string]struct{}
	ignoreInvalidParts bool
	logger             *slog.Logger
	// err is an invalid option, reported when parsing starts.
	err error

	maxParts       uint
	maxHeaders     uint
	maxMemSize     DataSize
	maxMemFileSize DataSize
}

func newParserConfig(options []ParserOption) parserConfig {
	c := parserConfig{
		bufferSize:      defaultBufferSize,
		charset:         textenc.UTF8,
		binaryMimeTypes: map[string]struct{}{defaultBinaryMimeType: {}},
		logger:          slog.New(slog.DiscardHandler),
		maxParts:        defaultMaxParts,
		maxHeaders:      defaultMaxHeaders,
		maxMemSize:      defaultMaxMemSize,
		maxMemFileSize:  defaultMaxMemFileSize,
	}
	for _, opt := range options {
		opt(&c)
	}

	return c
}

type ParserOption func(*parserConfig)

type DataSize int64

const (
	_ DataSize = 1 << (iota * 10)
	KB
	MB
	GB
)

const (
	defaultBufferSize     = 4096
	defaultBinaryMimeType = "application/octet-stream"
	defaultMaxParts       = 10000
	defaultMaxHeaders     = 10000
	defaultMaxMemSize     = 32 * MB
	defaultMaxMemFileSize = 32 * MB
)

// WithBufferSize sets the size of the chunks read from the body and handed to file handlers.
// It must exceed the length of the closing boundary plus a CRLF.
// default: 4096
func WithBufferSize(size int) ParserOption {
	return func(c *parserConfig) {
		c.bufferSize = size
	}
}

// WithEncoding sets the encoding of header lines and parameter values.
// File contents are never decoded.
// default: UTF-8
func WithEncoding(enc encoding.Encoding) ParserOption {
	return func(c *parserConfig) {
		c.charset = textenc.FromEncoding(enc)
	}
}

// WithCharset is WithEncoding by WHATWG encoding label, e.g. "utf-16le" or "latin1".
func WithCharset(name string) ParserOption {
	return func(c *parserConfig) {
		charset, err := textenc.Lookup(name)
		if err != nil {
			c.err = err
			return
		}
		c.charset = charset
	}
}

// WithBinaryMimeTypes replaces the content types whose sections are always treated as files.
// default: application/octet-stream
func WithBinaryMimeTypes(mimeTypes ...string) ParserOption {
	return func(c *parserConfig) {
		c.binaryMimeTypes = make(map[string]struct{}, len(mimeTypes))
		for _, mimeType := range mimeTypes {
			c.binaryMimeTypes[strings.ToLower(mimeType)] = struct{}{}
		}
	}
}

// WithIgnoreInvalidParts skips sections that are neither a file nor a parameter
// instead of failing.
// default: false
func WithIgnoreInvalidParts(ignore bool) ParserOption {
	return func(c *parserConfig) {
		c.ignoreInvalidParts = ignore
	}
}

// WithLogger sets the logger receiving debug records of the decoding.
// default: discard
func WithLogger(logger *slog.Logger) ParserOption {
	return func(c *parserConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxParts sets the maximum number of parts to be parsed.
// default: 10000
func WithMaxParts(maxParts uint) ParserOption {
	return func(c *parserConfig) {
		c.maxParts = maxParts
	}
}

// WithMaxHeaders sets the maximum number of header parameters to be parsed.
// default: 10000
func WithMaxHeaders(maxHeaders uint) ParserOption {
	return func(c *parserConfig) {
		c.maxHeaders = maxHeaders
	}
}

// WithMaxMemSize sets the maximum memory size to be used for parsing.
// A parameter is checked against the limit once its whole body has been read,
// so a single oversized parameter is held in memory before ErrTooLargeForm is
// returned. Unhooked files are checked chunk by chunk.
// default: 32MB
func WithMaxMemSize(maxMemSize DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxMemSize = maxMemSize
	}
}

// WithMaxMemFileSize sets the maximum memory size to be used for parsing a file.
// default: 32MB
func WithMaxMemFileSize(maxMemFileSize DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxMemFileSize = maxMemFileSize
	}
}

type Value struct {
	content []byte
	header  Header
}

// Unwrap returns the content and header of the value.
func (v Value) Unwrap() (string, Header) {
	return string(v.content), v.header
}

// UnwrapRaw returns the raw content and header of the value.
func (v Value) UnwrapRaw() ([]byte, Header) {
	return v.content, v.header
}

type StreamHookFunc = func(r io.Reader, header Header) error

type streamHook struct {
	fn           StreamHookFunc
	requireParts []string
}
