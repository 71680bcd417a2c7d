package instagram

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Body is a decoded upstream JSON object, kept as raw members so each
// stream can decode only the part it needs
type Body map[string]json.RawMessage

// DecodeBody parses raw as a JSON object
func DecodeBody(raw []byte) (Body, error) {
	var b Body
	if err := json.Unmarshal(raw, &b); err != nil {
		return Body{}, err
	}
	if b == nil {
		return Body{}, nil
	}
	return b, nil
}

// Empty reports whether the body carries no members
func (b Body) Empty() bool {
	return len(b) == 0
}

// Into decodes member key into target, reporting success
func (b Body) Into(key string, target interface{}) bool {
	raw, ok := b[key]
	if !ok || isNull(raw) {
		return false
	}
	return json.Unmarshal(raw, target) == nil
}

// Object returns member key decoded as a Body, or an empty Body
func (b Body) Object(key string) Body {
	var inner Body
	if !b.Into(key, &inner) || inner == nil {
		return Body{}
	}
	return inner
}

// Data returns the "data" object every upstream payload is wrapped in
func (b Body) Data() Body {
	return b.Object("data")
}

// String returns member key as a string. Numbers are formatted; null,
// booleans and missing members yield "".
func (b Body) String(key string) string {
	raw, ok := b[key]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// Cursor returns the next-page cursor, "" when the stream is exhausted
func (b Body) Cursor() string {
	return b.String("end_cursor")
}

// Len returns the element count of member key when it is an array, or its
// member count when it is an object
func (b Body) Len(key string) int {
	raw, ok := b[key]
	if !ok {
		return 0
	}
	return rawLen(raw)
}

func rawLen(raw json.RawMessage) int {
	var arr []json.RawMessage
	if json.Unmarshal(raw, &arr) == nil {
		return len(arr)
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil {
		return len(obj)
	}
	return 0
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
