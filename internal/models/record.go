package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jocarsa/jocarsa-lavender/internal/textnorm"
)

// Field is one key/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is an ordered key/value payload. Submission payloads are keyed by
// the field title as it was spelled when the submission was captured.
// JSON and YAML encodings preserve key order.
type Record []Field

// Get returns the value stored under exactly key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Lookup finds the value for a schema title. An exact key wins; otherwise
// the first key that normalizes to the same text as title is used.
func (r Record) Lookup(title string) (any, bool) {
	i := r.Index(title)
	if i < 0 {
		return nil, false
	}
	return r[i].Value, true
}

// Index returns the position Lookup reads title from, or -1.
func (r Record) Index(title string) int {
	for i, f := range r {
		if f.Key == title {
			return i
		}
	}
	want := textnorm.Normalize(title)
	if want == "" {
		return -1
	}
	for i, f := range r {
		if textnorm.Normalize(f.Key) == want {
			return i
		}
	}
	return -1
}

// Set replaces the value of key in place or appends a new pair.
func (r *Record) Set(key string, value any) {
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Key: key, Value: value})
}

// Keys returns the keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// Map returns an unordered copy.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Key] = f.Value
	}
	return m
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("record: marshal %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	out := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		key, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record: value for %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	*r = out
	return nil
}

func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*r = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("record: line %d: expected mapping", node.Line)
	}
	out := Record{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v any
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("record: value for %q: %w", node.Content[i].Value, err)
		}
		out.Set(node.Content[i].Value, v)
	}
	*r = out
	return nil
}

// Scan decodes the JSON text stored in the submissions.data column. Rows
// holding something other than an object decode to an empty record.
func (r *Record) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("record: cannot scan %T", src)
	}
	if err := r.UnmarshalJSON(data); err != nil {
		*r = Record{}
	}
	return nil
}

func (r Record) Value() (driver.Value, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
