package main

import (
	"log/slog"

	"github.com/mazrean/streamform"
)

// DecoderFlags are the decoding settings shared by the commands.
type DecoderFlags struct {
	Boundary      string   `help:"Boundary token. Detected from the body when empty."`
	BufferSize    int      `default:"4096" help:"Size of the chunks files are read and written in."`
	Charset       string   `default:"utf-8" help:"Encoding of header lines and parameter values."`
	BinaryType    []string `name:"binary-type" default:"application/octet-stream" help:"Content types always treated as files."`
	IgnoreInvalid bool     `help:"Skip sections that are neither a file nor a parameter."`
}

func (f DecoderFlags) options(logger *slog.Logger) []streamform.ParserOption {
	return []streamform.ParserOption{
		streamform.WithBufferSize(f.BufferSize),
		streamform.WithCharset(f.Charset),
		streamform.WithBinaryMimeTypes(f.BinaryType...),
		streamform.WithIgnoreInvalidParts(f.IgnoreInvalid),
		streamform.WithLogger(logger),
	}
}
