package tdf

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrSchemaViolation      = errors.New("schema violation")
	ErrMissingRequiredField = errors.New("missing required field")
)

const textKey = "#text"

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Schema lists "parent/child" element pairs whose child may repeat. Those
// children are always stored as lists, whatever their count in a given file.
type Schema map[string]bool

func (s Schema) repeatable(parent, child string) bool {
	return s[parent+"/"+child]
}

type frame struct {
	name     string
	value    Value
	text     strings.Builder
	hasAttrs bool
	hasKids  bool
}

// ParseTree converts an XML document into a Value tree. The result is an object
// holding a single field named after the root element.
func ParseTree(data []byte, schema Schema) (Value, error) {
	decoded, err := decodeInput(data)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(bytes.TrimSpace(decoded)) == 0 {
		return Value{}, fmt.Errorf("%w: empty document", ErrMalformedInput)
	}

	dec := xml.NewDecoder(bytes.NewReader(decoded))
	// Input has already been transcoded to UTF-8, whatever the declaration says.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }

	doc := newObject()
	var stack []*frame
	seenRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && seenRoot {
				return Value{}, fmt.Errorf("%w: multiple root elements", ErrMalformedInput)
			}
			seenRoot = true
			f := &frame{name: t.Name.Local, value: newObject()}
			for _, attr := range t.Attr {
				f.value.set(attr.Name.Local, stringValue(attr.Value))
				f.hasAttrs = true
			}
			if len(stack) > 0 {
				stack[len(stack)-1].hasKids = true
			}
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			v := f.finish(schema)
			if len(stack) == 0 {
				doc.set(f.name, v)
			} else {
				stack[len(stack)-1].value.set(f.name, v)
			}
		}
	}

	if !seenRoot {
		return Value{}, fmt.Errorf("%w: no root element", ErrMalformedInput)
	}
	return doc, nil
}

func (f *frame) finish(schema Schema) Value {
	text := strings.TrimSpace(f.text.String())
	if !f.hasAttrs && !f.hasKids {
		return stringValue(text)
	}
	if text != "" {
		f.value.set(textKey, stringValue(text))
	}
	for _, k := range f.value.keys {
		child := f.value.fields[k]
		if child.kind != KindList && schema.repeatable(f.name, k) {
			f.value.fields[k] = listOf(child)
		}
	}
	return f.value
}

// decodeInput returns the document as UTF-8. TOM runs on Windows and files
// may carry a BOM, be UTF-16, or use the ANSI code page.
func decodeInput(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8), bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		return out, err
	case utf8.Valid(data):
		return data, nil
	default:
		out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		return out, err
	}
}
