package streamform_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/mazrean/streamform"
)

func ExampleNewParser() {
	buf := strings.NewReader(`
--boundary
Content-Disposition: form-data; name="field"

value
--boundary
Content-Disposition: form-data; name="stream"; filename="file.txt"
Content-Type: text/plain

large file contents
--boundary--`)

	parser := streamform.NewParser("boundary")

	err := parser.Register("stream", func(r io.Reader, header streamform.Header) error {
		fmt.Println("---stream---")
		fmt.Printf("file name: %s\n", header.FileName())
		fmt.Printf("Content-Type: %s\n", header.ContentType())
		fmt.Println()

		_, err := io.Copy(os.Stdout, r)
		if err != nil {
			return fmt.Errorf("failed to copy: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	err = parser.Parse(buf)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("\n\n")
	fmt.Println("---field---")
	content, _, _ := parser.Value("field")
	fmt.Println(content)

	// Output:
	// ---stream---
	// file name: file.txt
	// Content-Type: text/plain
	//
	// large file contents
	//
	// ---field---
	// value
}

func ExampleDecoder() {
	body := strings.NewReader("--B\r\n" +
		"Content-Disposition: form-data; name=\"title\"\r\n" +
		"\r\n" +
		"hello\r\n" +
		"--B\r\n" +
		"Content-Disposition: form-data; name=\"doc\"; filename=\"doc.txt\"\r\n" +
		"\r\n" +
		"0123456789abcdef\r\n" +
		"--B--\r\n")

	decoder := streamform.NewDecoder("", streamform.WithBufferSize(10))

	err := decoder.Decode(body, streamform.HandlerFuncs{
		Parameter: func(param streamform.Parameter) error {
			fmt.Printf("parameter %s=%s\n", param.Name(), param.Value())
			return nil
		},
		FileChunk: func(chunk streamform.FileChunk) error {
			fmt.Printf("file %s chunk %d: %s\n", chunk.Header.FileName(), chunk.Index, chunk.Data)
			return nil
		},
		StreamClosed: func() error {
			fmt.Println("closed")
			return nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	// Output:
	// parameter title=hello
	// file doc.txt chunk 0: 0123456789
	// file doc.txt chunk 1: abcdef
	// closed
}

const boundary = "boundary"

func sampleForm(fileSize streamform.DataSize, boundary string, reverse bool) (io.Reader, error) {
	b := bytes.NewBuffer(nil)

	mw := multipart.NewWriter(b)
	defer mw.Close()

	if err := mw.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("failed to set boundary: %w", err)
	}

	if !reverse {
		if err := mw.WriteField("field", "value"); err != nil {
			return nil, fmt.Errorf("failed to write field: %w", err)
		}
	}

	mh := make(textproto.MIMEHeader)
	mh.Set("Content-Disposition", `form-data; name="stream"; filename="file.txt"`)
	mh.Set("Content-Type", "text/plain")
	w, err := mw.CreatePart(mh)
	if err != nil {
		return nil, fmt.Errorf("failed to create part: %w", err)
	}
	_, err = io.CopyN(w, strings.NewReader(strings.Repeat("a", int(fileSize))), int64(fileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to copy: %w", err)
	}

	if reverse {
		if err := mw.WriteField("field", "value"); err != nil {
			return nil, fmt.Errorf("failed to write field: %w", err)
		}
	}

	return b, nil
}

func TestParser_RequiredPart(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fileSize streamform.DataSize
		reverse  bool
		options  []streamform.ParserOption
	}{
		"field first":            {fileSize: 10 * streamform.KB},
		"stream first in memory": {fileSize: 10 * streamform.KB, reverse: true},
		"stream first spilled":   {fileSize: 10 * streamform.KB, reverse: true, options: []streamform.ParserOption{streamform.WithMaxMemFileSize(streamform.KB)}},
		"small buffer":           {fileSize: 3 * streamform.KB, options: []streamform.ParserOption{streamform.WithBufferSize(64)}},
		"small buffer and spill": {fileSize: 3 * streamform.KB, reverse: true, options: []streamform.ParserOption{streamform.WithBufferSize(64), streamform.WithMaxMemFileSize(100)}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r, err := sampleForm(tt.fileSize, boundary, tt.reverse)
			if err != nil {
				t.Fatal(err)
			}

			parser := streamform.NewParser(boundary, tt.options...)

			called := false
			err = parser.Register("stream", func(r io.Reader, header streamform.Header) error {
				called = true

				value, _, ok := parser.Value("field")
				if !ok || value != "value" {
					t.Errorf("required field not parsed: %q", value)
				}
				if header.FileName() != "file.txt" {
					t.Errorf("unexpected file name: %s", header.FileName())
				}

				n, err := io.Copy(io.Discard, r)
				if err != nil {
					return fmt.Errorf("failed to copy: %w", err)
				}
				if streamform.DataSize(n) != tt.fileSize {
					t.Errorf("read %d bytes, want %d", n, tt.fileSize)
				}

				return nil
			}, streamform.WithRequiredPart("field"))
			if err != nil {
				t.Fatal(err)
			}

			if err := parser.Parse(r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !called {
				t.Error("hook was not called")
			}
		})
	}
}

func TestParser_HookStopsEarly(t *testing.T) {
	t.Parallel()

	r, err := sampleForm(64*streamform.KB, boundary, true)
	if err != nil {
		t.Fatal(err)
	}

	parser := streamform.NewParser(boundary, streamform.WithBufferSize(512))
	err = parser.Register("stream", func(r io.Reader, _ streamform.Header) error {
		_, err := io.CopyN(io.Discard, r, 10)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := parser.Parse(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if value, _, ok := parser.Value("field"); !ok || value != "value" {
		t.Errorf("field after stream not parsed: %q", value)
	}
}

func TestParser_HookError(t *testing.T) {
	t.Parallel()

	errHook := errors.New("hook error")

	r, err := sampleForm(16*streamform.KB, boundary, false)
	if err != nil {
		t.Fatal(err)
	}

	parser := streamform.NewParser(boundary)
	err = parser.Register("stream", func(io.Reader, streamform.Header) error {
		return errHook
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := parser.Parse(r); !errors.Is(err, errHook) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParser_Register(t *testing.T) {
	t.Parallel()

	parser := streamform.NewParser(boundary)
	hook := func(io.Reader, streamform.Header) error { return nil }

	if err := parser.Register("stream", hook); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var dupErr streamform.DuplicateHookNameError
	if err := parser.Register("stream", hook); !errors.As(err, &dupErr) || dupErr.Name != "stream" {
		t.Errorf("unexpected error: %v", err)
	}

	if err := parser.Register("other", nil); !errors.Is(err, streamform.ErrNilHook) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParser_Values(t *testing.T) {
	t.Parallel()

	form := "--B\r\n" +
		"Content-Disposition: form-data; name=\"tag\"\r\n" +
		"\r\n" +
		"a\r\n" +
		"--B\r\n" +
		"Content-Disposition: form-data; name=\"tag\"\r\n" +
		"\r\n" +
		"b\r\n" +
		"--B\r\n" +
		"Content-Type: image/jpeg\r\n" +
		"\r\n" +
		"jpeg\r\n" +
		"--B--\r\n"

	parser := streamform.NewParser("")
	if err := parser.Parse(strings.NewReader(form)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values, ok := parser.Values("tag")
	if !ok || len(values) != 2 {
		t.Fatalf("unexpected values: %v", values)
	}
	for i, want := range []string{"a", "b"} {
		if got, _ := values[i].Unwrap(); got != want {
			t.Errorf("value %d = %q, want %q", i, got, want)
		}
		if values[i].IsFile() {
			t.Errorf("value %d marked as file", i)
		}
	}

	frames := parser.ValueMap()[""]
	if len(frames) != 1 || !frames[0].IsFile() {
		t.Fatalf("unexpected nameless parts: %v", frames)
	}
	raw, header := frames[0].UnwrapRaw()
	if string(raw) != "jpeg" || header.ContentType() != "image/jpeg" {
		t.Errorf("unexpected frame: %q %s", raw, header.ContentType())
	}
	content, err := io.ReadAll(frames[0].Reader())
	if err != nil || string(content) != "jpeg" {
		t.Errorf("unexpected reader content: %q, %v", content, err)
	}

	if _, _, ok := parser.ValueRaw("missing"); ok {
		t.Error("missing value found")
	}
}

// TestDecoder_MatchesStdMultipart checks the decoded parts against the ones
// mime/multipart reads from the same body.
func TestDecoder_MatchesStdMultipart(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{"title": "Hello, 世界", "note": "line1\r\nline2"}
	for _, name := range []string{"title", "note"} {
		if err := mw.WriteField(name, fields[name]); err != nil {
			t.Fatal(err)
		}
	}
	fileContent := bytes.Repeat([]byte("\r\n--"+mw.Boundary()[:10]+"\x00é"), 300)
	w, err := mw.CreateFormFile("upload", "data.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(fileContent); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	for _, bufferSize := range []int{len(mw.Boundary()) + 7, 100, 4096} {
		t.Run(fmt.Sprint(bufferSize), func(t *testing.T) {
			t.Parallel()

			var (
				got  = map[string]string{}
				file bytes.Buffer
			)
			err := streamform.NewDecoder(mw.Boundary(), streamform.WithBufferSize(bufferSize)).Decode(
				bytes.NewReader(body.Bytes()),
				streamform.HandlerFuncs{
					Parameter: func(param streamform.Parameter) error {
						got[param.Name()] = strings.Join(param.Lines, "\r\n")
						return nil
					},
					FileChunk: func(chunk streamform.FileChunk) error {
						if chunk.Header.ContentType() != "application/octet-stream" {
							t.Errorf("unexpected content type: %s", chunk.Header.ContentType())
						}
						file.Write(chunk.Data)
						return nil
					},
				},
			)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for name, want := range fields {
				if got[name] != want {
					t.Errorf("%s = %q, want %q", name, got[name], want)
				}
			}
			if !bytes.Equal(file.Bytes(), fileContent) {
				t.Errorf("file mismatch: %d bytes, want %d", file.Len(), len(fileContent))
			}
		})
	}
}

func BenchmarkStreamform(b *testing.B) {
	b.Run("1MB", func(b *testing.B) {
		benchmarkStreamform(b, 1*streamform.MB, false)
	})
	b.Run("10MB", func(b *testing.B) {
		benchmarkStreamform(b, 10*streamform.MB, false)
	})
	b.Run("100MB", func(b *testing.B) {
		benchmarkStreamform(b, 100*streamform.MB, false)
	})

	b.Run("1MB Reverse", func(b *testing.B) {
		benchmarkStreamform(b, 1*streamform.MB, true)
	})
	b.Run("10MB Reverse", func(b *testing.B) {
		benchmarkStreamform(b, 10*streamform.MB, true)
	})
	b.Run("100MB Reverse", func(b *testing.B) {
		benchmarkStreamform(b, 100*streamform.MB, true)
	})
}

func benchmarkStreamform(b *testing.B, fileSize streamform.DataSize, reverse bool) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		r, err := sampleForm(fileSize, boundary, reverse)
		if err != nil {
			b.Fatal(err)
		}
		b.StartTimer()

		parser := streamform.NewParser(boundary)

		err = parser.Register("stream", func(r io.Reader, header streamform.Header) error {
			_, _, _ = parser.Value("field")

			_, err := io.Copy(io.Discard, r)
			if err != nil {
				return fmt.Errorf("failed to copy: %w", err)
			}

			return nil
		}, streamform.WithRequiredPart("field"))
		if err != nil {
			b.Fatal(err)
		}

		err = parser.Parse(r)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecoder(b *testing.B) {
	for _, size := range []streamform.DataSize{streamform.MB, 10 * streamform.MB} {
		b.Run(fmt.Sprintf("%dMB", size/streamform.MB), func(b *testing.B) {
			r, err := sampleForm(size, boundary, false)
			if err != nil {
				b.Fatal(err)
			}
			body, err := io.ReadAll(r)
			if err != nil {
				b.Fatal(err)
			}

			decoder := streamform.NewDecoder(boundary)
			b.SetBytes(int64(len(body)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := decoder.Decode(bytes.NewReader(body), streamform.HandlerFuncs{}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkStdMultipart_ReadForm(b *testing.B) {
	// default value in http package
	const maxMemory = 32 * streamform.MB

	b.Run("1MB", func(b *testing.B) {
		benchmarkStdMultipart_ReadForm(b, 1*streamform.MB, maxMemory)
	})
	b.Run("10MB", func(b *testing.B) {
		benchmarkStdMultipart_ReadForm(b, 10*streamform.MB, maxMemory)
	})
	b.Run("100MB", func(b *testing.B) {
		benchmarkStdMultipart_ReadForm(b, 100*streamform.MB, maxMemory)
	})
}

func benchmarkStdMultipart_ReadForm(b *testing.B, fileSize streamform.DataSize, maxMemory streamform.DataSize) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		r, err := sampleForm(fileSize, boundary, false)
		if err != nil {
			b.Fatal(err)
		}
		b.StartTimer()

		func() {
			mr := multipart.NewReader(r, boundary)
			form, err := mr.ReadForm(int64(maxMemory))
			if err != nil {
				b.Fatal(err)
			}
			defer form.RemoveAll()

			f, err := form.File["stream"][0].Open()
			if err != nil {
				b.Fatal(err)
			}
			defer f.Close()

			_, err = io.Copy(io.Discard, f)
			if err != nil {
				b.Fatal(err)
			}

			_ = form.Value["field"][0]
		}()
	}
}
