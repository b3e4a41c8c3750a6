package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mazrean/streamform"
)

type DecodeCmd struct {
	File   string `arg:"" optional:"" default:"-" help:"Multipart body to decode; - reads stdin."`
	OutDir string `type:"path" help:"Directory uploaded files are written to. Files are only counted when empty."`
	Format Format `enum:"text,json,yaml" default:"text" help:"Summary format (text, json, yaml)."`

	DecoderFlags `embed:""`
}

func (c *DecodeCmd) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	in := io.Reader(os.Stdin)
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("failed to open body: %w", err)
		}
		defer f.Close()
		in = f
	}

	return c.run(ctx, logger, in, os.Stdout)
}

func (c *DecodeCmd) run(ctx context.Context, logger *slog.Logger, in io.Reader, out io.Writer) error {
	if c.OutDir != "" {
		if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	d := newDumper(c.OutDir, logger)
	decoder := streamform.NewDecoder(c.Boundary, c.options(logger)...)
	if err := d.finish(decoder.DecodeContext(ctx, in, d)); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}

	return render(out, c.Format, d.summary)
}
