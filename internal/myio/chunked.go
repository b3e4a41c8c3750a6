package myio

import "io"

type chunkedReader struct {
	r    io.Reader
	size int
}

// ChunkedReader returns a reader that yields at most size bytes per Read.
func ChunkedReader(r io.Reader, size int) io.Reader {
	return &chunkedReader{r: r, size: size}
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(p) > c.size {
		p = p[:c.size]
	}

	return c.r.Read(p)
}
