package svg

import (
	"bytes"
	"errors"
	"regexp"
)

var (
	scriptTagPattern   = regexp.MustCompile(`(?is)<\s*script[\s>].*?<\s*/\s*script\s*>`)
	eventAttrPattern   = regexp.MustCompile(`(?is)\son[a-z]+\s*=\s*("[^"]*"|'[^']*')`)
	foreignObjPattern  = regexp.MustCompile(`(?is)<\s*foreignObject[\s>].*?<\s*/\s*foreignObject\s*>`)
)

var ErrNotSVG = errors.New("not an svg document")

// Sanitize strips active content from an SVG document before it is
// stored. Scripts, inline event handlers and foreignObject subtrees are
// removed; everything else passes through untouched.
func Sanitize(input []byte) ([]byte, error) {
	if !bytes.Contains(bytes.ToLower(input), []byte("<svg")) {
		return nil, ErrNotSVG
	}

	clean := scriptTagPattern.ReplaceAll(input, nil)
	clean = foreignObjPattern.ReplaceAll(clean, nil)
	clean = eventAttrPattern.ReplaceAll(clean, nil)

	return clean, nil
}
