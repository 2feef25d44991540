// Package pdf implements the subset of PDF parsing the print pipeline needs:
// object model, tokenizer, xref resolution, page tree and content streams.
package pdf

import (
	"fmt"
	"strconv"
	"strings"
)

// Object is any value that can appear in a PDF file body.
type Object interface {
	String() string
}

// Null is the PDF null object.
type Null struct{}

func (Null) String() string { return "null" }

// Boolean is a PDF boolean.
type Boolean bool

func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Integer is a PDF integer.
type Integer int64

func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }

// Real is a PDF real number.
type Real float64

func (r Real) String() string { return strconv.FormatFloat(float64(r), 'f', -1, 64) }

// String is a PDF string. Value holds the raw, unescaped bytes.
type String struct {
	Value []byte
	Hex   bool
}

func (s String) String() string {
	if s.Hex {
		return fmt.Sprintf("<%X>", s.Value)
	}
	return "(" + string(s.Value) + ")"
}

// Name is a PDF name object, stored without the leading slash.
type Name string

func (n Name) String() string { return "/" + string(n) }

// Array is a PDF array.
type Array []Object

func (a Array) String() string {
	parts := make([]string, len(a))
	for i, obj := range a {
		parts[i] = obj.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Dictionary is a PDF dictionary keyed by name.
type Dictionary map[Name]Object

func (d Dictionary) String() string {
	var parts []string
	for k, v := range d {
		parts = append(parts, k.String()+" "+v.String())
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Get returns the raw value for key, or nil when absent.
func (d Dictionary) Get(key string) Object {
	return d[Name(key)]
}

// GetName returns the name value for key.
func (d Dictionary) GetName(key string) (Name, bool) {
	if n, ok := d.Get(key).(Name); ok {
		return n, true
	}
	return "", false
}

// GetInt returns the integer value for key, accepting reals with truncation.
func (d Dictionary) GetInt(key string) (int64, bool) {
	switch v := d.Get(key).(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// GetFloat returns the numeric value for key as a float64.
func (d Dictionary) GetFloat(key string) (float64, bool) {
	switch v := d.Get(key).(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// GetArray returns the array value for key.
func (d Dictionary) GetArray(key string) (Array, bool) {
	if a, ok := d.Get(key).(Array); ok {
		return a, true
	}
	return nil, false
}

// GetDict returns the dictionary value for key.
func (d Dictionary) GetDict(key string) (Dictionary, bool) {
	if sub, ok := d.Get(key).(Dictionary); ok {
		return sub, true
	}
	return nil, false
}

// Stream is a PDF stream: a dictionary plus raw (still encoded) data.
type Stream struct {
	Dictionary Dictionary
	Data       []byte
}

func (s Stream) String() string { return s.Dictionary.String() + " stream" }

// Reference is an indirect object reference.
type Reference struct {
	Number     int
	Generation int
}

func (r Reference) String() string { return fmt.Sprintf("%d %d R", r.Number, r.Generation) }

// ToFloat converts a numeric object to float64, returning 0 for anything else.
func ToFloat(obj Object) float64 {
	switch v := obj.(type) {
	case Integer:
		return float64(v)
	case Real:
		return float64(v)
	}
	return 0
}
