package loader

import (
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// textEncoding is one entry of the production feed's encoding ladder.
// Strict encodings pass bytes through and reject invalid UTF-8 afterwards.
type textEncoding struct {
	name   string
	enc    encoding.Encoding
	strict bool
}

// ProductionEncodings is the order in which the production feed is decoded.
var ProductionEncodings = []string{"latin-1", "cp1252", "utf-8-sig", "utf-16", "utf-8"}

var encodings = map[string]textEncoding{
	"latin-1":   {name: "latin-1", enc: charmap.ISO8859_1},
	"cp1252":    {name: "cp1252", enc: charmap.Windows1252},
	"utf-8-sig": {name: "utf-8-sig", enc: unicode.UTF8BOM, strict: true},
	"utf-16":    {name: "utf-16", enc: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
	"utf-8":     {name: "utf-8", strict: true},
}

func lookupEncoding(name string) (textEncoding, error) {
	e, ok := encodings[name]
	if !ok {
		return textEncoding{}, fmt.Errorf("unsupported encoding %q", name)
	}
	return e, nil
}

// reader decodes r into UTF-8.
func (e textEncoding) reader(r io.Reader) io.Reader {
	if e.enc == nil {
		return r
	}
	if e.strict {
		// UTF8BOM only strips the mark; validation happens on the records.
		return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	}
	return e.enc.NewDecoder().Reader(r)
}

// validate rejects records holding invalid UTF-8 for strict encodings.
func (e textEncoding) validate(header []string, records [][]string) error {
	if !e.strict {
		return nil
	}
	for _, h := range header {
		if !utf8.ValidString(h) {
			return fmt.Errorf("header is not valid %s", e.name)
		}
	}
	for i, rec := range records {
		for _, v := range rec {
			if !utf8.ValidString(v) {
				return fmt.Errorf("record %d is not valid %s", i+1, e.name)
			}
		}
	}
	return nil
}

// utf8Reader strips a leading byte order mark from UTF-8 input.
func utf8Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}
