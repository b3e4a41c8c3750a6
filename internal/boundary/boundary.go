package boundary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mazrean/streamform/internal/textenc"
)

var (
	// ErrNoBoundary is returned when the stream ends before a boundary line.
	ErrNoBoundary = errors.New("could not determine boundary: the stream is empty or exhausted")
	// ErrInvalidBoundary is returned when the first non-blank line is not a boundary.
	ErrInvalidBoundary = errors.New("content does not start with a valid multipart boundary")
)

const dashes = "--"

// Boundary holds the two encoded markers derived from a boundary token.
// The terminator always starts with the separator.
type Boundary struct {
	token      string
	separator  []byte
	terminator []byte
}

func New(token string, charset *textenc.Charset) Boundary {
	return Boundary{
		token:      token,
		separator:  charset.Encode(dashes + token),
		terminator: charset.Encode(dashes + token + dashes),
	}
}

// Token returns the boundary token without dashes.
func (b Boundary) Token() string {
	return b.token
}

// Separator returns the marker in front of every section.
func (b Boundary) Separator() []byte {
	return b.separator
}

// Terminator returns the marker closing the multipart body.
func (b Boundary) Terminator() []byte {
	return b.terminator
}

// LineReader is the part of the chunked reader Detect needs.
type LineReader interface {
	ReadLine(ctx context.Context) ([]byte, error)
	Push(b []byte)
}

// Detect reads the boundary token from the first non-blank line of r.
// The boundary line is pushed back so that the caller reads it again.
func Detect(ctx context.Context, r LineReader, charset *textenc.Charset) (string, error) {
	var line []byte
	for len(line) == 0 {
		var err error
		line, err = r.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return "", ErrNoBoundary
		}
		if err != nil {
			return "", fmt.Errorf("failed to read boundary line: %w", err)
		}
	}

	text := charset.Decode(line)
	if !strings.HasPrefix(text, dashes) {
		return "", ErrInvalidBoundary
	}

	token := strings.TrimPrefix(text, dashes)
	pushBack := dashes + token + "\n"
	// A closing boundary as the first line means an empty form.
	if strings.HasSuffix(token, dashes) {
		token = strings.TrimSuffix(token, dashes)
		pushBack = dashes + token + dashes + "\n"
	}
	if token == "" {
		return "", ErrInvalidBoundary
	}

	r.Push(charset.Encode(pushBack))

	return token, nil
}
