package boundary_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mazrean/streamform/internal/boundary"
	"github.com/mazrean/streamform/internal/chunkreader"
	"github.com/mazrean/streamform/internal/textenc"
)

func TestNew(t *testing.T) {
	t.Parallel()

	b := boundary.New("abc--", textenc.UTF8)

	if string(b.Separator()) != "--abc--" {
		t.Errorf("unexpected separator: %q", b.Separator())
	}
	if string(b.Terminator()) != "--abc----" {
		t.Errorf("unexpected terminator: %q", b.Terminator())
	}
	if !bytes.HasPrefix(b.Terminator(), b.Separator()) {
		t.Error("terminator must start with the separator")
	}
	if b.Token() != "abc--" {
		t.Errorf("unexpected token: %q", b.Token())
	}
}

func TestNew_UTF16(t *testing.T) {
	t.Parallel()

	charset, err := textenc.Lookup("utf-16le")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := boundary.New("x", charset)
	want := []byte{'-', 0, '-', 0, 'x', 0}
	if !bytes.Equal(b.Separator(), want) {
		t.Errorf("unexpected separator: %x", b.Separator())
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input    string
		token    string
		nextLine string
		err      error
	}{
		"separator": {
			input:    "--boundary\r\nContent-Disposition: form-data\r\n",
			token:    "boundary",
			nextLine: "--boundary",
		},
		"leading blank lines": {
			input:    "\r\n\n\r\n--boundary\n",
			token:    "boundary",
			nextLine: "--boundary",
		},
		"terminator first": {
			input:    "--boundary--\r\n",
			token:    "boundary",
			nextLine: "--boundary--",
		},
		"empty stream": {
			input: "",
			err:   boundary.ErrNoBoundary,
		},
		"only blank lines": {
			input: "\r\n\r\n",
			err:   boundary.ErrNoBoundary,
		},
		"not a boundary": {
			input: "hello\r\n--boundary\r\n",
			err:   boundary.ErrInvalidBoundary,
		},
		"dashes only": {
			input: "----\r\n",
			err:   boundary.ErrInvalidBoundary,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := chunkreader.New(strings.NewReader(tt.input), chunkreader.WithChunkSize(4))
			token, err := boundary.Detect(context.Background(), r, textenc.UTF8)
			if !errors.Is(err, tt.err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil {
				return
			}

			if token != tt.token {
				t.Errorf("unexpected token: %q", token)
			}

			line, err := r.ReadLine(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(line) != tt.nextLine {
				t.Errorf("boundary line was not pushed back: %q", line)
			}
		})
	}
}
