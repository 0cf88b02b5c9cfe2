package fetcher

import (
	"encoding/xml"
	"io"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html/charset"
)

// Parse reads an XML document into a node tree. HTML entities such as &nbsp;
// are accepted since many feeds use them unescaped.
func Parse(r io.Reader) (*xmlquery.Node, error) {
	return xmlquery.ParseWithOptions(r, xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict:        false,
			Entity:        xml.HTMLEntity,
			CharsetReader: charset.NewReaderLabel,
		},
	})
}
