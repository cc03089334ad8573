package database

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is the uniform outcome of one operation. Either Error is set or
// some subset of the success fields is; never both.
type Result struct {
	Message string
	Row     *Record
	Rows    []*Record
	Tables  []string
	Schema  []*Record
	Error   string
}

// IsError reports whether the result is an error payload.
func (r Result) IsError() bool {
	return r.Error != ""
}

// MarshalJSON writes {"error": ...} for failures and otherwise the populated
// success fields in a fixed order. Empty but non-nil slices are written as [].
func (r Result) MarshalJSON() ([]byte, error) {
	if r.IsError() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteByte('"')
		buf.WriteString(key)
		buf.WriteString(`":`)
		buf.Write(b)
		return nil
	}

	if r.Message != "" {
		if err := field("message", r.Message); err != nil {
			return nil, err
		}
	}
	if r.Row != nil {
		if err := field("row", r.Row); err != nil {
			return nil, err
		}
	}
	if r.Rows != nil {
		if err := field("rows", r.Rows); err != nil {
			return nil, err
		}
	}
	if r.Tables != nil {
		if err := field("tables", r.Tables); err != nil {
			return nil, err
		}
	}
	if r.Schema != nil {
		if err := field("schema", r.Schema); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a payload produced by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var wire struct {
		Message string    `json:"message"`
		Row     *Record   `json:"row"`
		Rows    []*Record `json:"rows"`
		Tables  []string  `json:"tables"`
		Schema  []*Record `json:"schema"`
		Error   string    `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = Result(wire)
	return nil
}

// String returns the JSON encoding. A value that cannot be encoded is
// reported as an error payload.
func (r Result) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(Result{Error: "Result encoding failed: " + err.Error()})
	}
	return string(b)
}
