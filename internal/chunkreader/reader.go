// Package chunkreader reads a forward-only byte source in fixed-size chunks
// and lets the caller push back bytes it read too far.
package chunkreader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mazrean/streamform/internal/bytesearch"
	"github.com/mazrean/streamform/internal/rebuffer"
)

const (
	DefaultChunkSize = 4096

	maxConsecutiveEmptyReads = 100
)

// Reader pulls chunks from the source only when no pushed-back data is pending.
type Reader struct {
	src     io.Reader
	stack   *rebuffer.Stack
	scratch []byte
	bom     []byte
	newline []byte
	cr      []byte
	unit    int
	pulls   int
	eof     bool
}

type config struct {
	chunkSize int
	bom       []byte
	newline   []byte
	cr        []byte
	unit      int
}

type Option func(*config)

// WithChunkSize sets the number of bytes requested from the source per pull.
// default: 4096
func WithChunkSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithBOM sets the byte order mark dropped from the head of the first chunk.
func WithBOM(bom []byte) Option {
	return func(c *config) {
		c.bom = bom
	}
}

// WithNewline sets the encoded "\n" and "\r" and the code unit size of the text encoding.
// default: "\n", "\r", 1
func WithNewline(newline, cr []byte, unit int) Option {
	return func(c *config) {
		c.newline = newline
		c.cr = cr
		c.unit = unit
	}
}

func New(src io.Reader, options ...Option) *Reader {
	c := config{
		chunkSize: DefaultChunkSize,
		newline:   []byte{'\n'},
		cr:        []byte{'\r'},
		unit:      1,
	}
	for _, opt := range options {
		opt(&c)
	}

	return &Reader{
		src:     src,
		stack:   rebuffer.New(c.newline, c.unit),
		scratch: make([]byte, c.chunkSize),
		bom:     c.bom,
		newline: c.newline,
		cr:      c.cr,
		unit:    c.unit,
	}
}

// Push re-inserts b so that it is read before anything else.
func (r *Reader) Push(b []byte) {
	r.stack.Push(b)
}

// Buffered returns the number of bytes readable without touching the source.
func (r *Reader) Buffered() int {
	return r.stack.Len()
}

// pull reads the next chunk from the source into the stack.
// It returns io.EOF once the source is exhausted.
func (r *Reader) pull(ctx context.Context) error {
	if r.eof {
		return io.EOF
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	first := r.pulls == 0
	r.pulls++

	n, err := r.readChunk(first)
	if errors.Is(err, io.EOF) {
		r.eof = true
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	chunk := r.scratch[:n]
	if first && len(r.bom) > 0 && bytes.HasPrefix(chunk, r.bom) {
		chunk = chunk[len(r.bom):]
	}
	r.stack.Push(chunk)

	if n == 0 && r.eof {
		return io.EOF
	}

	return nil
}

// readChunk issues one source read, or as many as needed to see the whole BOM on the first pull.
func (r *Reader) readChunk(first bool) (int, error) {
	want := 1
	if first && len(r.bom) > want {
		want = len(r.bom)
	}

	n, empty := 0, 0
	for n < want {
		m, err := r.src.Read(r.scratch[n:])
		n += m
		if err != nil {
			return n, err
		}

		if m == 0 {
			empty++
			if empty >= maxConsecutiveEmptyReads {
				return n, io.ErrNoProgress
			}
		}
	}

	return n, nil
}

// ReadByteContext reads a single byte, pulling from the source when needed.
func (r *Reader) ReadByteContext(ctx context.Context) (byte, error) {
	for !r.stack.HasData() {
		if err := r.pull(ctx); err != nil {
			return 0, err
		}
	}

	return r.stack.ReadByte()
}

// Read fills p, pulling from the source as needed.
// It returns fewer than len(p) bytes only when the source is exhausted,
// and io.EOF only when no byte could be read.
func (r *Reader) Read(ctx context.Context, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if !r.stack.HasData() {
			err := r.pull(ctx)
			if errors.Is(err, io.EOF) {
				if n == 0 {
					return 0, io.EOF
				}
				return n, nil
			}
			if err != nil {
				return n, err
			}
			continue
		}

		m, _ := r.stack.Read(p[n:])
		n += m
	}

	return n, nil
}

// ReadLine reads the next line without its newline and trailing carriage return.
// The last line of the source does not need a newline.
// It returns io.EOF only when nothing is left to read.
func (r *Reader) ReadLine(ctx context.Context) ([]byte, error) {
	var acc []byte
	started := false
	for {
		if !r.stack.HasData() {
			err := r.pull(ctx)
			if errors.Is(err, io.EOF) {
				if started {
					return r.trimCR(acc), nil
				}
				return nil, io.EOF
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		part, more := r.stack.ReadLine()
		if !started && !more {
			return r.trimCR(part), nil
		}
		started = true

		// The newline may straddle the previous part and this one,
		// so search again over the joined bytes.
		joined := len(acc)
		acc = append(acc, part...)
		if !more {
			acc = append(acc, r.newline...)
		}

		from := max(0, joined-len(r.newline)+1)
		from -= from % r.unit
		idx := bytesearch.IndexAligned(acc[from:], r.newline, len(acc)-from, r.unit)
		if idx < 0 {
			continue
		}
		idx += from

		if rest := acc[idx+len(r.newline):]; len(rest) > 0 {
			r.stack.Push(rest)
		}

		return r.trimCR(acc[:idx:idx]), nil
	}
}

func (r *Reader) trimCR(line []byte) []byte {
	if len(r.cr) == 0 || !bytes.HasSuffix(line, r.cr) {
		return line
	}

	end := len(line) - len(r.cr)
	if end%r.unit != 0 {
		return line
	}

	return line[:end:end]
}
