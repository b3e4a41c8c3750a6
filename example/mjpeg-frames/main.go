package main

import (
	"flag"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mazrean/streamform"
)

// frameWriter writes every part of an MJPEG stream to its own file.
type frameWriter struct {
	dir   string
	count int
	file  *os.File
}

func (fw *frameWriter) HandleFileChunk(chunk streamform.FileChunk) error {
	if chunk.Index == 0 {
		path := filepath.Join(fw.dir, fmt.Sprintf("frame-%06d.jpg", fw.count))
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create frame file: %w", err)
		}
		fw.file = file
		fw.count++
	}

	if _, err := fw.file.Write(chunk.Data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

func (fw *frameWriter) HandleFileEnd(streamform.Header) error {
	if fw.file == nil {
		return nil
	}

	err := fw.file.Close()
	fw.file = nil

	return err
}

func (fw *frameWriter) HandleParameter(streamform.Parameter) error {
	return nil
}

func (fw *frameWriter) HandleStreamClosed() error {
	log.Printf("stream closed after %d frames", fw.count)
	return nil
}

func main() {
	url := flag.String("url", "http://localhost:8081/stream.mjpg", "MJPEG stream URL")
	dir := flag.String("dir", "frames", "output directory")
	flag.Parse()

	err := os.MkdirAll(*dir, 0755)
	if err != nil {
		panic(err)
	}

	res, err := http.Get(*url)
	if err != nil {
		panic(err)
	}
	defer res.Body.Close()

	var boundary string
	if _, params, err := mime.ParseMediaType(res.Header.Get("Content-Type")); err == nil {
		boundary = params["boundary"]
	}

	fw := &frameWriter{dir: *dir}
	err = streamform.NewDecoder(boundary, streamform.WithBufferSize(64*1024)).Decode(res.Body, fw)
	if err != nil {
		panic(err)
	}
}
