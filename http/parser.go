package httpform

import (
	"context"
	"io"
	"mime"
	"net/http"

	"github.com/mazrean/streamform"
)

// Parser is a streamform.Parser bound to the body of a request.
type Parser struct {
	*streamform.Parser
	ctx    context.Context
	reader io.Reader
}

func NewParser(req *http.Request, options ...streamform.ParserOption) (*Parser, error) {
	boundary, err := Boundary(req.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	return &Parser{
		Parser: streamform.NewParser(boundary, options...),
		ctx:    req.Context(),
		reader: req.Body,
	}, nil
}

// Parse parses the request body, stopping once the request context is done.
func (p *Parser) Parse() error {
	return p.Parser.ParseContext(p.ctx, p.reader)
}

// Decode streams the parts of the request body to h.
func Decode(req *http.Request, h streamform.Handler, options ...streamform.ParserOption) error {
	boundary, err := Boundary(req.Header.Get("Content-Type"))
	if err != nil {
		return err
	}

	return streamform.NewDecoder(boundary, options...).DecodeContext(req.Context(), req.Body, h)
}

// Boundary returns the boundary parameter of a multipart/form-data content type.
// It returns "" when the parameter is missing, leaving the boundary to be
// detected from the body.
func Boundary(contentType string) (string, error) {
	d, params, err := mime.ParseMediaType(contentType)
	if err != nil || d != "multipart/form-data" {
		return "", http.ErrNotMultipart
	}

	return params["boundary"], nil
}
