package streamform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mazrean/streamform/internal/boundary"
	"github.com/mazrean/streamform/internal/chunkreader"
	"github.com/mazrean/streamform/internal/textenc"
)

// session is the state of one decode invocation.
type session struct {
	*parserConfig
	reader   *chunkreader.Reader
	handler  Handler
	boundary boundary.Boundary
	// terminal is set once the closing boundary has been read.
	terminal bool
}

func newSession(r io.Reader, h Handler, c *parserConfig) *session {
	return &session{
		parserConfig: c,
		reader: chunkreader.New(r,
			chunkreader.WithChunkSize(c.bufferSize),
			chunkreader.WithBOM(c.charset.BOM()),
			chunkreader.WithNewline(c.charset.Newline(), c.charset.CR(), c.charset.Unit()),
		),
		handler: h,
	}
}

func (s *session) run(ctx context.Context, token string) error {
	if token == "" {
		detected, err := boundary.Detect(ctx, s.reader, s.charset)
		if errors.Is(err, boundary.ErrNoBoundary) || errors.Is(err, boundary.ErrInvalidBoundary) {
			return &DecodeError{Reason: "boundary detection failed", Err: err}
		}
		if err != nil {
			return err
		}

		s.logger.DebugContext(ctx, "boundary detected", slog.String("boundary", detected))
		token = detected
	}

	s.boundary = boundary.New(token, s.charset)
	if minSize := len(s.boundary.Terminator()) + len(s.charset.CRLF()); s.bufferSize <= minSize {
		return fmt.Errorf("%w: %d bytes, need more than %d", ErrBufferTooSmall, s.bufferSize, minSize)
	}

	if err := s.awaitOpeningBoundary(ctx); err != nil {
		return err
	}

	for !s.terminal {
		if err := s.parseSection(ctx); err != nil {
			return err
		}
	}

	if err := s.handler.HandleStreamClosed(); err != nil {
		return fmt.Errorf("failed to handle stream close: %w", err)
	}

	return nil
}

func (s *session) isSeparator(line []byte) bool {
	return bytes.Equal(line, s.boundary.Separator())
}

func (s *session) isTerminator(line []byte) bool {
	return bytes.Equal(line, s.boundary.Terminator())
}

// awaitOpeningBoundary skips the preamble up to the first boundary line.
func (s *session) awaitOpeningBoundary(ctx context.Context) error {
	for {
		line, err := s.reader.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return &DecodeError{Reason: "could not find the expected boundary"}
		}
		if err != nil {
			return fmt.Errorf("failed to read preamble: %w", err)
		}

		switch {
		case s.isSeparator(line):
			return nil
		case s.isTerminator(line):
			s.logger.DebugContext(ctx, "empty form")
			s.terminal = true
			return nil
		}
	}
}

func (s *session) parseSection(ctx context.Context) error {
	params, err := s.readHeader(ctx)
	if err != nil {
		return err
	}

	kind := classify(params, s.binaryMimeTypes)
	s.logger.DebugContext(ctx, "section classified",
		slog.String("kind", kind.String()),
		slog.String("name", params[keyName]),
	)

	switch kind {
	case sectionFile:
		return s.readFile(ctx, newFileHeader(params))
	case sectionParameter:
		return s.readParameter(ctx, newHeader(params))
	}

	if !s.ignoreInvalidParts {
		return &DecodeError{Reason: "unable to determine the section type: the section is malformed, has none of name, filename or content-type, or contains only blank lines"}
	}

	s.logger.DebugContext(ctx, "skipping invalid section")
	_, err = s.readBodyLines(ctx, false)

	return err
}

// readHeader reads header lines up to the blank line ending them.
func (s *session) readHeader(ctx context.Context) (map[string]string, error) {
	params := make(map[string]string)
	for {
		line, err := s.reader.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return nil, &DecodeError{Reason: "unexpected end of stream while reading section headers"}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read section header: %w", err)
		}

		if len(line) == 0 {
			return params, nil
		}
		if s.isSeparator(line) || s.isTerminator(line) {
			return nil, &DecodeError{Reason: "unexpected end of section"}
		}

		for _, param := range parseHeaderLine(s.charset.Decode(line)) {
			if _, ok := params[param.key]; ok {
				return nil, &DecodeError{Reason: fmt.Sprintf("duplicate field %q in section", param.key)}
			}
			params[param.key] = param.value
		}
	}
}

// readBodyLines reads lines up to the next boundary line.
// The lines are only kept when keep is set.
func (s *session) readBodyLines(ctx context.Context, keep bool) ([][]byte, error) {
	var lines [][]byte
	for {
		line, err := s.reader.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return nil, &DecodeError{Reason: "unexpected end of stream: is there a closing boundary?"}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read section body: %w", err)
		}

		switch {
		case s.isSeparator(line):
			return lines, nil
		case s.isTerminator(line):
			s.terminal = true
			return lines, nil
		}

		if keep {
			lines = append(lines, bytes.Clone(line))
		}
	}
}

func (s *session) readParameter(ctx context.Context, header Header) error {
	raw, err := s.readBodyLines(ctx, true)
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, decodeLine(s.charset, line))
	}

	err = s.handler.HandleParameter(Parameter{
		Header: header,
		Lines:  lines,
		raw:    raw,
	})
	if err != nil {
		return fmt.Errorf("failed to handle parameter %q: %w", header.Name(), err)
	}

	return nil
}

func decodeLine(charset *textenc.Charset, line []byte) string {
	if len(line) == 0 {
		return ""
	}

	return charset.Decode(line)
}
