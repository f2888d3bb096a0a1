// Package schema turns submitted JSON objects into ordered documents and
// derives the column set an index freezes on its first write.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

// Field is one top-level key/value pair of a document, with the value
// already rendered as text.
type Field struct {
	Name  string
	Value string
}

// Document is an ordered set of fields. Order is the key encounter order of
// the submitted JSON object.
type Document []Field

// NewDocument builds a document from alternating name/value pairs.
// It panics on an odd argument count; intended for tests and literals.
func NewDocument(pairs ...string) Document {
	if len(pairs)%2 != 0 {
		panic("schema.NewDocument: odd number of arguments")
	}
	doc := make(Document, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		doc = doc.Set(pairs[i], pairs[i+1])
	}
	return doc
}

// Get returns the value of field name.
func (d Document) Get(name string) (string, bool) {
	for _, f := range d {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing field in place, or appends a new one.
func (d Document) Set(name, value string) Document {
	for i := range d {
		if d[i].Name == name {
			d[i].Value = value
			return d
		}
	}
	return append(d, Field{Name: name, Value: value})
}

// Names returns the field names in document order.
func (d Document) Names() []string {
	names := make([]string, len(d))
	for i, f := range d {
		names[i] = f.Name
	}
	return names
}

// Map returns the document as a plain map. Order is lost.
func (d Document) Map() map[string]string {
	m := make(map[string]string, len(d))
	for _, f := range d {
		m[f.Name] = f.Value
	}
	return m
}

// ParseDocument decodes a JSON object into a Document, keeping key order.
// Scalars are rendered as text: strings verbatim, numbers and booleans as
// their JSON literal, null as the empty string, and nested objects or arrays
// as compact JSON. A repeated key keeps its first position and its last value.
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, serrors.ValidationError("document is not valid JSON", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, serrors.ValidationError("document must be a JSON object", nil)
	}

	doc := Document{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, serrors.ValidationError("malformed document key", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, serrors.ValidationError("malformed document key", nil)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, serrors.ValidationError(fmt.Sprintf("malformed value for field %q", key), err)
		}
		value, err := renderValue(raw)
		if err != nil {
			return nil, serrors.ValidationError(fmt.Sprintf("malformed value for field %q", key), err)
		}
		doc = doc.Set(key, value)
	}

	// Closing brace, then nothing but whitespace.
	if _, err := dec.Token(); err != nil {
		return nil, serrors.ValidationError("document is not valid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, serrors.ValidationError("trailing data after document", nil)
	}

	return doc, nil
}

// FromValue converts an already-decoded JSON object (as produced by
// encoding/json into map[string]any) into a Document. Key order of a Go map
// is not defined, so names are sorted to keep inference deterministic.
// Prefer ParseDocument when the raw bytes are available.
func FromValue(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, serrors.ValidationError("document is not JSON-encodable", err)
	}
	// encoding/json marshals map keys sorted.
	return ParseDocument(raw)
}

func renderValue(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	case 'n':
		return "", nil
	default:
		return strings.TrimSpace(string(trimmed)), nil
	}
}
