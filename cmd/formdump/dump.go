package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mazrean/streamform"
)

type Summary struct {
	Parameters []ParameterSummary `json:"parameters" yaml:"parameters"`
	Files      []FileSummary      `json:"files" yaml:"files"`
}

type ParameterSummary struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type FileSummary struct {
	Name        string `json:"name" yaml:"name"`
	FileName    string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	ContentType string `json:"content_type" yaml:"content_type"`
	Size        int64  `json:"size" yaml:"size"`
	Chunks      int    `json:"chunks" yaml:"chunks"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
}

// dumper summarizes the decoded parts and writes files below outDir when it is set.
type dumper struct {
	outDir  string
	logger  *slog.Logger
	summary Summary
	file    *os.File
}

func newDumper(outDir string, logger *slog.Logger) *dumper {
	return &dumper{
		outDir: outDir,
		logger: logger,
		summary: Summary{
			Parameters: []ParameterSummary{},
			Files:      []FileSummary{},
		},
	}
}

func (d *dumper) HandleParameter(param streamform.Parameter) error {
	d.summary.Parameters = append(d.summary.Parameters, ParameterSummary{
		Name:  param.Name(),
		Value: param.Value(),
	})
	d.logger.Debug("parameter decoded", slog.String("name", param.Name()))

	return nil
}

func (d *dumper) HandleFileChunk(chunk streamform.FileChunk) error {
	if chunk.Index == 0 {
		if err := d.startFile(chunk.Header); err != nil {
			return err
		}
	}

	current := &d.summary.Files[len(d.summary.Files)-1]
	current.Size += int64(len(chunk.Data))
	current.Chunks++

	if d.file == nil {
		return nil
	}
	if _, err := d.file.Write(chunk.Data); err != nil {
		return fmt.Errorf("failed to write %s: %w", current.Path, err)
	}

	return nil
}

func (d *dumper) startFile(header streamform.Header) error {
	summary := FileSummary{
		Name:        header.Name(),
		FileName:    header.FileName(),
		ContentType: header.ContentType(),
	}

	if d.outDir != "" {
		summary.Path = filepath.Join(d.outDir, storedName(len(d.summary.Files), header))
		f, err := os.Create(summary.Path)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		d.file = f
	}

	d.summary.Files = append(d.summary.Files, summary)

	return nil
}

func (d *dumper) HandleFileEnd(header streamform.Header) error {
	current := d.summary.Files[len(d.summary.Files)-1]
	d.logger.Info("file decoded",
		slog.String("name", header.Name()),
		slog.String("file_name", header.FileName()),
		slog.Int64("size", current.Size),
	)

	return d.closeFile()
}

func (d *dumper) HandleStreamClosed() error {
	d.logger.Info("stream closed",
		slog.Int("parameters", len(d.summary.Parameters)),
		slog.Int("files", len(d.summary.Files)),
	)

	return nil
}

func (d *dumper) closeFile() error {
	if d.file == nil {
		return nil
	}

	err := d.file.Close()
	d.file = nil
	if err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	return nil
}

// finish closes a file left open by a failed decode.
func (d *dumper) finish(decodeErr error) error {
	return errors.Join(decodeErr, d.closeFile())
}

// storedName prefixes the base of the uploaded file name with the part index
// so that uploads cannot escape outDir or overwrite each other.
func storedName(index int, header streamform.Header) string {
	name := filepath.Base(strings.ReplaceAll(header.FileName(), `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		name = ""
	}
	if name == "" {
		name = header.Name()
	}
	if name == "" {
		name = "part"
	}

	return fmt.Sprintf("%03d-%s", index, filepath.Base(name))
}
