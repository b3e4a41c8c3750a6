package echoform

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/mazrean/streamform"
	httpform "github.com/mazrean/streamform/http"
)

// Parser is a streamform.Parser bound to the body of an echo request.
type Parser struct {
	*streamform.Parser
	ctx    context.Context
	reader io.Reader
}

func NewParser(c echo.Context, options ...streamform.ParserOption) (*Parser, error) {
	boundary, err := httpform.Boundary(c.Request().Header.Get(echo.HeaderContentType))
	if err != nil {
		return nil, err
	}

	return &Parser{
		Parser: streamform.NewParser(boundary, options...),
		ctx:    c.Request().Context(),
		reader: c.Request().Body,
	}, nil
}

// Parse parses the request body, stopping once the request context is done.
func (p *Parser) Parse() error {
	return p.Parser.ParseContext(p.ctx, p.reader)
}

// Decode streams the parts of the request body to h.
func Decode(c echo.Context, h streamform.Handler, options ...streamform.ParserOption) error {
	return httpform.Decode(c.Request(), h, options...)
}
