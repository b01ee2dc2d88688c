package protocol

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// extractXMLValue returns the text content of the first element whose tag
// name matches rule. The rule may carry a namespace prefix ("ns:tag");
// matching is against the local name either way. A well-formed document
// with no matching element returns found=false with no error.
func extractXMLValue(data []byte, rule string) (string, bool, error) {
	local := rule
	if idx := strings.LastIndex(rule, ":"); idx >= 0 {
		local = rule[idx+1:]
	}

	dec := xml.NewDecoder(strings.NewReader(string(data)))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, eris.Wrap(err, "xml: read token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != local {
			continue
		}

		var text strings.Builder
		depth := 1
		for depth > 0 {
			tok, err := dec.Token()
			if err != nil {
				return "", false, eris.Wrap(err, "xml: element truncated")
			}
			switch t := tok.(type) {
			case xml.StartElement:
				depth++
			case xml.EndElement:
				depth--
			case xml.CharData:
				if depth == 1 {
					text.Write(t)
				}
			}
		}
		return strings.TrimSpace(text.String()), true, nil
	}
}
