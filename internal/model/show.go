package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names one of the boolean status flags carried by a show.
type Field string

const (
	FieldIntervalDone Field = "intervalDone" // interval already played
	FieldSold         Field = "sold"         // show sold out
	FieldReady        Field = "ready"        // show ready to start
)

// Fields lists every flag a client may toggle.
var Fields = []Field{FieldIntervalDone, FieldSold, FieldReady}

// Valid reports whether f is one of the known status flags.
func (f Field) Valid() bool {
	switch f {
	case FieldIntervalDone, FieldSold, FieldReady:
		return true
	}
	return false
}

// Show is a schedulable event with three independent status flags.
// Only ID is interpreted by the server; every other attribute supplied
// by the client is kept in Extra and written back verbatim.
//
// Fields:
//
//	ID           – lookup key, compared by strict string equality.
//	IntervalDone – nil until first set.
//	Sold         – nil until first set.
//	Ready        – nil until first set.
//	Extra        – any other JSON member, including a non-string "id".
type Show struct {
	ID           string
	IntervalDone *bool
	Sold         *bool
	Ready        *bool
	Extra        map[string]json.RawMessage
}

// Flag returns the current value of field f, or nil when it was never set.
func (s *Show) Flag(f Field) *bool {
	switch f {
	case FieldIntervalDone:
		return s.IntervalDone
	case FieldSold:
		return s.Sold
	case FieldReady:
		return s.Ready
	}
	return nil
}

// SetFlag sets field f to v. Unknown fields are ignored.
func (s *Show) SetFlag(f Field, v bool) {
	b := v
	switch f {
	case FieldIntervalDone:
		s.IntervalDone = &b
	case FieldSold:
		s.Sold = &b
	case FieldReady:
		s.Ready = &b
	}
	// a flag that previously held a non-boolean value lives in Extra
	delete(s.Extra, string(f))
}

// MarshalJSON writes the show as one flat JSON object with its keys in
// sorted order. Unknown member values are written as received.
func (s Show) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+4)
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.ID != "" {
		raw, err := json.Marshal(s.ID)
		if err != nil {
			return nil, err
		}
		out["id"] = raw
	}
	for _, f := range Fields {
		if p := s.Flag(f); p != nil {
			if *p {
				out[string(f)] = json.RawMessage("true")
			} else {
				out[string(f)] = json.RawMessage("false")
			}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any JSON object. Members that do not fit the
// typed fields are preserved in Extra.
func (s *Show) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("show must be a JSON object")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Show{Extra: map[string]json.RawMessage{}}
	for k, v := range raw {
		switch k {
		case "id":
			var id string
			if err := json.Unmarshal(v, &id); err == nil && id != "" {
				s.ID = id
				continue
			}
		case string(FieldIntervalDone), string(FieldSold), string(FieldReady):
			var b bool
			if string(v) != "null" && json.Unmarshal(v, &b) == nil {
				s.SetFlag(Field(k), b)
				continue
			}
		}
		s.Extra[k] = v
	}
	return nil
}
