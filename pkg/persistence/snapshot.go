package persistence

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sanonone/jsonkv/pkg/core"
)

// ErrCorruptDocument indicates that a store file exists but does not hold a
// single JSON object mapping keys to values.
var ErrCorruptDocument = errors.New("store document is corrupt")

// indent matches the layout of a two-space pretty-printed JSON document.
const indent = "  "

// EncodeKeyspace writes the whole keyspace as one JSON object.
//
// Layout:
//
//	{
//	  "alice": {
//	    "score": 5
//	  },
//	  "bob": "not-an-object-is-fine-too"
//	}
//
// Keys are emitted in ascending order so the file is stable and diffable.
func EncodeKeyspace(w io.Writer, ks *core.Keyspace) error {
	bw := bufio.NewWriter(w)

	if ks.Len() == 0 {
		bw.WriteString("{}\n")
		return bw.Flush()
	}

	var (
		encodeErr error
		first     = true
		pretty    bytes.Buffer
	)

	bw.WriteString("{\n")
	ks.Range(func(key string, value json.RawMessage) bool {
		name, err := json.Marshal(key)
		if err != nil {
			encodeErr = fmt.Errorf("failed to encode key %q: %w", key, err)
			return false
		}

		pretty.Reset()
		if err := json.Indent(&pretty, value, indent, indent); err != nil {
			encodeErr = fmt.Errorf("failed to encode value for key %q: %w", key, err)
			return false
		}

		if !first {
			bw.WriteString(",\n")
		}
		first = false

		bw.WriteString(indent)
		bw.Write(name)
		bw.WriteString(": ")
		bw.Write(pretty.Bytes())
		return true
	})
	if encodeErr != nil {
		return encodeErr
	}
	bw.WriteString("\n}\n")

	// bufio.Writer errors are sticky: a failed intermediate write surfaces here.
	return bw.Flush()
}

// DecodeKeyspace parses a document written by EncodeKeyspace (or any JSON
// object). Any deviation from "exactly one JSON object" is reported as
// ErrCorruptDocument. When a key appears twice the last value wins.
func DecodeKeyspace(r io.Reader) (*core.Keyspace, error) {
	dec := json.NewDecoder(bufio.NewReader(r))

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty document", ErrCorruptDocument)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrCorruptDocument)
	}

	ks := core.NewKeyspace()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrCorruptDocument, tok)
		}
		if err := core.ValidateKey(key); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: value for key %q: %v", ErrCorruptDocument, key, err)
		}
		value, err := core.ParseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: value for key %q: %v", ErrCorruptDocument, key, err)
		}
		ks.Set(key, value)
	}

	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrCorruptDocument)
	}

	return ks, nil
}
