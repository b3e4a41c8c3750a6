package streamform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mazrean/streamform/internal/bytesearch"
	"github.com/valyala/bytebufferpool"
)

// scratch holds the rolling buffers of one file body.
type scratch struct {
	prev, cur, full *bytebufferpool.ByteBuffer
}

func acquireScratch(size int) *scratch {
	s := &scratch{
		prev: bytebufferpool.Get(),
		cur:  bytebufferpool.Get(),
		full: bytebufferpool.Get(),
	}
	s.prev.B = resize(s.prev.B, size)
	s.cur.B = resize(s.cur.B, size)
	s.full.B = resize(s.full.B, 2*size)

	return s
}

func resize(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}

	return b[:n]
}

func (s *scratch) release() {
	bytebufferpool.Put(s.prev)
	bytebufferpool.Put(s.cur)
	bytebufferpool.Put(s.full)
}

// readFile streams a file body to the handler in buffer-sized chunks.
// Every pass joins the previous and the current read so that a boundary split
// across two reads is still found; without a boundary the previous read is
// delivered and the buffers swap.
func (s *session) readFile(ctx context.Context, header Header) error {
	buf := acquireScratch(s.bufferSize)
	defer buf.release()

	prev, cur, full := buf.prev.B, buf.cur.B, buf.full.B
	index := 0

	prevLen, err := s.readBody(ctx, prev)
	if err != nil {
		return err
	}

	for prevLen > 0 {
		curLen, err := s.readBody(ctx, cur)
		if err != nil {
			return err
		}
		exhausted := curLen < len(cur)

		n := copy(full, prev[:prevLen])
		n += copy(full[n:], cur[:curLen])
		window := full[:n]

		pos, length, terminal := s.locateBoundary(window, exhausted)
		if pos >= 0 {
			end := pos - s.newlineSuffixLen(window[:pos])
			if err := s.deliverChunk(header, window[:end], index); err != nil {
				return err
			}

			next := pos + length
			next += s.newlinePrefixLen(window[next:])
			if next < n {
				s.reader.Push(window[next:])
			}
			s.terminal = terminal

			return s.endFile(header)
		}

		if err := s.deliverChunk(header, prev[:prevLen], index); err != nil {
			return err
		}
		index++

		prev, cur = cur, prev
		prevLen = curLen
	}

	return &DecodeError{Reason: fmt.Sprintf("unexpected end of stream in file %q: no boundary found", header.Name())}
}

// locateBoundary finds the first separator or terminator in window.
// A separator ending within the last bytes of the window may be a terminator
// cut short by the read, so it is ignored until more data arrives or the
// source is exhausted. This is a heuristic: a separator followed by data
// that only looks like dashes is still resolved on the next pass.
func (s *session) locateBoundary(window []byte, exhausted bool) (pos, length int, terminal bool) {
	separator, terminator := s.boundary.Separator(), s.boundary.Terminator()

	termPos := bytesearch.Index(window, terminator, len(window))
	sepPos := bytesearch.Index(window, separator, len(window))

	slack := len(terminator) - len(separator) - 1
	if sepPos >= 0 && !exhausted && sepPos+len(separator) >= len(window)-slack {
		sepPos = -1
	}

	switch {
	case sepPos >= 0 && (termPos < 0 || sepPos < termPos):
		return sepPos, len(separator), false
	case termPos >= 0:
		return termPos, len(terminator), true
	default:
		return -1, 0, false
	}
}

func (s *session) newlineSuffixLen(b []byte) int {
	switch {
	case bytes.HasSuffix(b, s.charset.CRLF()):
		return len(s.charset.CRLF())
	case bytes.HasSuffix(b, s.charset.Newline()):
		return len(s.charset.Newline())
	default:
		return 0
	}
}

func (s *session) newlinePrefixLen(b []byte) int {
	switch {
	case bytes.HasPrefix(b, s.charset.CRLF()):
		return len(s.charset.CRLF())
	case bytes.HasPrefix(b, s.charset.Newline()):
		return len(s.charset.Newline())
	default:
		return 0
	}
}

// readBody fills p and reports 0 at the end of the source.
func (s *session) readBody(ctx context.Context, p []byte) (int, error) {
	n, err := s.reader.Read(ctx, p)
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read file body: %w", err)
	}

	return n, nil
}

func (s *session) deliverChunk(header Header, data []byte, index int) error {
	err := s.handler.HandleFileChunk(FileChunk{
		Header: header,
		Data:   data,
		Index:  index,
	})
	if err != nil {
		return fmt.Errorf("failed to handle chunk %d of file %q: %w", index, header.FileName(), err)
	}

	return nil
}

func (s *session) endFile(header Header) error {
	h, ok := s.handler.(FileEndHandler)
	if !ok {
		return nil
	}

	if err := h.HandleFileEnd(header); err != nil {
		return fmt.Errorf("failed to handle end of file %q: %w", header.FileName(), err)
	}

	return nil
}
