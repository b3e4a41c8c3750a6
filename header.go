package streamform

import (
	"maps"
	"net/url"
	"strings"

	"github.com/mazrean/streamform/internal/textenc"
)

const (
	keyName               = "name"
	keyFileName           = "filename"
	keyFileNameExt        = "filename*"
	keyContentType        = "content-type"
	keyContentDisposition = "content-disposition"

	defaultFileContentType = "text/plain"
	defaultDisposition     = "form-data"
)

// Header is the set of parameters found in the header lines of one section.
// Keys are lower-cased: "Content-Disposition: form-data; name=\"a\"" yields
// content-disposition=form-data and name=a.
type Header struct {
	params map[string]string
	isFile bool
}

func newHeader(params map[string]string) Header {
	if params == nil {
		params = map[string]string{}
	}

	return Header{params: params}
}

// newFileHeader fills in the content type and disposition every file carries.
func newFileHeader(params map[string]string) Header {
	h := newHeader(params)
	h.isFile = true
	if _, ok := h.params[keyContentType]; !ok {
		h.params[keyContentType] = defaultFileContentType
	}
	if _, ok := h.params[keyContentDisposition]; !ok {
		h.params[keyContentDisposition] = defaultDisposition
	}

	return h
}

// IsFile reports whether the section was classified as a file.
func (h Header) IsFile() bool {
	return h.isFile
}

// Get returns the value associated with the given key, case-insensitively.
// If there are no values associated with the key, Get returns "".
func (h Header) Get(key string) string {
	return h.params[strings.ToLower(key)]
}

// Lookup is like Get but reports whether the key is present.
func (h Header) Lookup(key string) (string, bool) {
	v, ok := h.params[strings.ToLower(key)]
	return v, ok
}

// Name returns the value of the "name" parameter.
// If there are no values associated with the key, Name returns "".
func (h Header) Name() string {
	return h.params[keyName]
}

// FileName returns the file name of the section.
// An RFC 5987 "filename*" parameter takes precedence over "filename".
func (h Header) FileName() string {
	if ext, ok := h.params[keyFileNameExt]; ok {
		if name, ok := decodeExtValue(ext); ok {
			return name
		}
	}

	return h.params[keyFileName]
}

// ContentType returns the value of the "Content-Type" header field.
// Files without one report "text/plain"; other sections report "".
func (h Header) ContentType() string {
	return h.params[keyContentType]
}

// ContentDisposition returns the disposition type, usually "form-data".
func (h Header) ContentDisposition() string {
	return h.params[keyContentDisposition]
}

// Params returns the parameters other than name, file name, content type and disposition.
func (h Header) Params() map[string]string {
	params := maps.Clone(h.params)
	for _, key := range []string{keyName, keyFileName, keyFileNameExt, keyContentType, keyContentDisposition} {
		delete(params, key)
	}

	return params
}

type headerParam struct {
	key   string
	value string
}

// parseHeaderLine splits a header line into its parameters.
// Clauses are separated by ';' outside of double quotes, and each clause is
// split on its first ':' or '='. Clauses without either are dropped.
func parseHeaderLine(line string) []headerParam {
	var params []headerParam
	for _, clause := range splitClauses(line) {
		idx := strings.IndexAny(clause, ":=")
		if idx < 0 {
			continue
		}

		key := strings.ToLower(unquote(clause[:idx]))
		if key == "" {
			continue
		}
		params = append(params, headerParam{
			key:   key,
			value: unquote(clause[idx+1:]),
		})
	}

	return params
}

func splitClauses(line string) []string {
	var clauses []string
	inQuotes := false
	start := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ';':
			if !inQuotes {
				clauses = append(clauses, line[start:i])
				start = i + 1
			}
		}
	}

	return append(clauses, line[start:])
}

func unquote(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), `"`, "")
}

// decodeExtValue decodes an RFC 5987 ext-value: charset'language'percent-encoded.
func decodeExtValue(v string) (string, bool) {
	charset, rest, ok := strings.Cut(v, "'")
	if !ok {
		return "", false
	}
	_, encoded, ok := strings.Cut(rest, "'")
	if !ok {
		return "", false
	}

	raw, err := url.PathUnescape(encoded)
	if err != nil {
		return "", false
	}

	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return raw, true
	}

	c, err := textenc.Lookup(charset)
	if err != nil {
		return "", false
	}

	return c.Decode([]byte(raw)), true
}

type sectionKind int

const (
	sectionInvalid sectionKind = iota
	sectionFile
	sectionParameter
)

func (k sectionKind) String() string {
	switch k {
	case sectionFile:
		return "file"
	case sectionParameter:
		return "parameter"
	default:
		return "invalid"
	}
}

// classify decides how the body of a section is decoded.
// A section without a name is a file so that nameless multipart streams
// such as MJPEG are delivered as files.
func classify(params map[string]string, binaryMimeTypes map[string]struct{}) sectionKind {
	if len(params) == 0 {
		return sectionInvalid
	}

	_, hasFileName := params[keyFileName]
	_, hasFileNameExt := params[keyFileNameExt]
	_, hasName := params[keyName]

	isBinary := false
	if contentType, ok := params[keyContentType]; ok {
		_, isBinary = binaryMimeTypes[strings.ToLower(contentType)]
	}

	switch {
	case hasFileName, hasFileNameExt, isBinary, !hasName:
		return sectionFile
	case hasName:
		return sectionParameter
	default:
		return sectionInvalid
	}
}
