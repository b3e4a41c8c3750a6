package myio

import "io"

type stallReader struct{}

// StallReader returns a reader whose Read always returns 0, nil.
func StallReader() io.Reader {
	return stallReader{}
}

func (stallReader) Read([]byte) (int, error) { return 0, nil }

type hookReader struct {
	io.Reader
	before func()
}

// HookReader returns a reader that calls before ahead of every Read of r.
func HookReader(r io.Reader, before func()) io.Reader {
	return hookReader{Reader: r, before: before}
}

func (h hookReader) Read(p []byte) (int, error) {
	h.before()
	return h.Reader.Read(p)
}
