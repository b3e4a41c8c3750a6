//go:generate go tool mockgen -source=$GOFILE -destination=mock/mock_$GOFILE -package=mock

package streamform

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrBufferTooSmall is returned when the buffer cannot hold a closing boundary and a CRLF.
	ErrBufferTooSmall = errors.New("buffer size too small for the boundary")
)

// DecodeError is returned when the body is not a well-formed multipart/form-data stream.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "multipart decode error: " + e.Reason + ": " + e.Err.Error()
	}

	return "multipart decode error: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FileChunk is a piece of an uploaded file.
// Index 0 marks the first chunk of a new file; concatenating the chunks in
// index order restores the file.
type FileChunk struct {
	Header Header
	// Data is only valid until the handler returns.
	Data  []byte
	Index int
}

// Parameter is a form field value, delivered once its whole body has been read.
type Parameter struct {
	Header Header
	// Lines holds the decoded lines of the value without their newlines.
	Lines []string
	raw   [][]byte
}

// Name returns the field name.
func (p Parameter) Name() string {
	return p.Header.Name()
}

// Value returns the lines joined with "\n".
func (p Parameter) Value() string {
	return strings.Join(p.Lines, "\n")
}

// RawLines returns the undecoded lines.
func (p Parameter) RawLines() [][]byte {
	return p.raw
}

// Handler receives the parts of a multipart stream in order.
// An error returned by a handler method aborts decoding.
type Handler interface {
	HandleFileChunk(chunk FileChunk) error
	HandleParameter(param Parameter) error
	// HandleStreamClosed is called once after the closing boundary.
	HandleStreamClosed() error
}

// FileEndHandler is implemented by handlers that want to know when a file is complete.
type FileEndHandler interface {
	HandleFileEnd(header Header) error
}

// HandlerFuncs adapts optional functions to Handler. Nil functions are skipped.
type HandlerFuncs struct {
	FileChunk    func(chunk FileChunk) error
	FileEnd      func(header Header) error
	Parameter    func(param Parameter) error
	StreamClosed func() error
}

func (h HandlerFuncs) HandleFileChunk(chunk FileChunk) error {
	if h.FileChunk == nil {
		return nil
	}
	return h.FileChunk(chunk)
}

func (h HandlerFuncs) HandleFileEnd(header Header) error {
	if h.FileEnd == nil {
		return nil
	}
	return h.FileEnd(header)
}

func (h HandlerFuncs) HandleParameter(param Parameter) error {
	if h.Parameter == nil {
		return nil
	}
	return h.Parameter(param)
}

func (h HandlerFuncs) HandleStreamClosed() error {
	if h.StreamClosed == nil {
		return nil
	}
	return h.StreamClosed()
}

// Decoder streams the parts of multipart/form-data bodies to a Handler.
// A Decoder holds no per-body state and may be used concurrently.
type Decoder struct {
	boundary string
	parserConfig
}

// NewDecoder creates a decoder. An empty boundary is detected from the first
// non-blank line of each body.
func NewDecoder(boundary string, options ...ParserOption) *Decoder {
	return &Decoder{
		boundary:     boundary,
		parserConfig: newParserConfig(options),
	}
}

// Decode decodes r, blocking on reads from r.
func (d *Decoder) Decode(r io.Reader, h Handler) error {
	return d.DecodeContext(context.Background(), r, h)
}

// DecodeContext decodes r. ctx is checked before every read from r;
// a canceled context stops decoding with ctx.Err().
func (d *Decoder) DecodeContext(ctx context.Context, r io.Reader, h Handler) error {
	if d.err != nil {
		return d.err
	}

	return newSession(r, h, &d.parserConfig).run(ctx, d.boundary)
}
