package serpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Field is one top-level member of a SerpAPI JSON object.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Response is a decoded SerpAPI answer. The top-level members are kept in
// the order SerpAPI sent them; nested values stay raw.
type Response struct {
	Fields []Field
	Raw    []byte
	// Cached is set when the response was served from the local cache.
	Cached bool

	index map[string]int
}

// ParseResponse decodes a JSON object without losing member order. A
// repeated key keeps its first position and its last value.
func ParseResponse(data []byte) (*Response, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("invalid JSON response: expected an object")
	}

	resp := &Response{Raw: data, index: make(map[string]int)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON response: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("invalid JSON response: expected an object key")
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid JSON response: %w", err)
		}

		if i, seen := resp.index[key]; seen {
			resp.Fields[i].Value = value
			continue
		}
		resp.index[key] = len(resp.Fields)
		resp.Fields = append(resp.Fields, Field{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid JSON response: trailing data after object")
	}

	return resp, nil
}

// Keys returns the top-level keys in response order.
func (r *Response) Keys() []string {
	keys := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the raw value stored under key.
func (r *Response) Get(key string) (json.RawMessage, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.Fields[i].Value, true
}

// Has reports whether key is present, whatever its value.
func (r *Response) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Truthy reports whether key holds a non-empty value: not null, false, 0,
// "", [] or {}.
func (r *Response) Truthy(key string) bool {
	v, ok := r.Get(key)
	if !ok {
		return false
	}
	return IsTruthy(v)
}

// Array returns the elements of the array stored under key. ok is false
// when the key is missing or does not hold an array.
func (r *Response) Array(key string) (items []json.RawMessage, ok bool) {
	v, found := r.Get(key)
	if !found {
		return nil, false
	}
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, false
	}
	return items, true
}

// ErrorMessage returns SerpAPI's "error" member as text, or "" when the
// response has none.
func (r *Response) ErrorMessage() string {
	v, ok := r.Get("error")
	if !ok {
		return ""
	}
	var msg string
	if err := json.Unmarshal(v, &msg); err == nil {
		return msg
	}
	return string(v)
}

// Indented renders the whole payload with two-space indentation.
func (r *Response) Indented() (string, error) {
	return Indent(r.Raw)
}

// IsTruthy applies JSON truthiness: null, false, 0, "", [] and {} are false.
func IsTruthy(v json.RawMessage) bool {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case 'n', 'f':
		return false
	case 't':
		return true
	case '"':
		return len(trimmed) > 2
	case '[', '{':
		var generic interface{}
		if err := json.Unmarshal(trimmed, &generic); err != nil {
			return false
		}
		switch g := generic.(type) {
		case []interface{}:
			return len(g) > 0
		case map[string]interface{}:
			return len(g) > 0
		}
		return false
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return false
		}
		return n != 0
	}
}

// Indent re-indents a JSON document with two spaces per level.
func Indent(data []byte) (string, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

// EncodeArray joins raw elements into a JSON array.
func EncodeArray(items []json.RawMessage) json.RawMessage {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(item)
	}
	b.WriteByte(']')
	return b.Bytes()
}

// EncodeObject writes fields as a JSON object in the given order. Values
// that are not json.RawMessage are marshalled.
func EncodeObject(fields ...ObjectField) (json.RawMessage, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := marshal(f.Key)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')

		var value []byte
		if raw, ok := f.Value.(json.RawMessage); ok {
			value = raw
		} else if value, err = marshal(f.Value); err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", f.Key, err)
		}
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// marshal is json.Marshal without HTML escaping, so URLs in error messages
// stay readable.
func marshal(v interface{}) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}

// ObjectField is a key/value pair for EncodeObject.
type ObjectField struct {
	Key   string
	Value interface{}
}
