// Package rebuffer holds bytes that were read ahead of the parser and pushed
// back so that they are read again before any new data from the source.
package rebuffer

import (
	"io"

	"github.com/mazrean/streamform/internal/bytesearch"
)

type segment struct {
	buf []byte
	off int
}

func (s *segment) remaining() []byte {
	return s.buf[s.off:]
}

// Stack is an ordered collection of pending byte segments.
// The most recently pushed segment is read first.
type Stack struct {
	// segments[len(segments)-1] is the next segment to read.
	segments []*segment
	size     int
	newline  []byte
	unit     int
}

// New creates an empty stack splitting lines on newline.
// unit is the code unit size of the text encoding; a newline only matches at
// offsets that are a multiple of it, counted from the start of the line.
func New(newline []byte, unit int) *Stack {
	if len(newline) == 0 {
		newline = []byte{'\n'}
	}
	if unit <= 0 {
		unit = 1
	}

	return &Stack{
		newline: newline,
		unit:    unit,
	}
}

// Push copies b in front of all pending data.
func (s *Stack) Push(b []byte) {
	if len(b) == 0 {
		return
	}

	buf := make([]byte, len(b))
	copy(buf, b)
	s.segments = append(s.segments, &segment{buf: buf})
	s.size += len(buf)
}

// HasData reports whether any byte can be read without touching the source.
func (s *Stack) HasData() bool {
	return s.size > 0
}

// Len returns the number of pending bytes.
func (s *Stack) Len() int {
	return s.size
}

func (s *Stack) top() *segment {
	return s.segments[len(s.segments)-1]
}

func (s *Stack) consume(seg *segment, n int) {
	seg.off += n
	s.size -= n
	if seg.off >= len(seg.buf) {
		s.segments[len(s.segments)-1] = nil
		s.segments = s.segments[:len(s.segments)-1]
	}
}

// ReadByte reads a single pending byte. It returns io.EOF when the stack is empty.
func (s *Stack) ReadByte() (byte, error) {
	if !s.HasData() {
		return 0, io.EOF
	}

	seg := s.top()
	b := seg.buf[seg.off]
	s.consume(seg, 1)

	return b, nil
}

// Read drains pending bytes into p across segment boundaries.
// It returns io.EOF only when the stack is empty.
func (s *Stack) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !s.HasData() {
		return 0, io.EOF
	}

	n := 0
	for n < len(p) && s.HasData() {
		seg := s.top()
		m := copy(p[n:], seg.remaining())
		s.consume(seg, m)
		n += m
	}

	return n, nil
}

// ReadLine reads up to the next newline of the top segment.
// The newline is consumed but not returned.
// more is true when the segment ran out before a newline was found;
// the caller has to keep reading and concatenating to complete the line.
// On an empty stack ReadLine returns nil, true.
func (s *Stack) ReadLine() (line []byte, more bool) {
	if !s.HasData() {
		return nil, true
	}

	seg := s.top()
	rest := seg.remaining()
	idx := bytesearch.IndexAligned(rest, s.newline, len(rest), s.unit)
	if idx < 0 {
		s.consume(seg, len(rest))
		return rest[:len(rest):len(rest)], true
	}

	line = rest[:idx:idx]
	s.consume(seg, idx+len(s.newline))

	return line, false
}
