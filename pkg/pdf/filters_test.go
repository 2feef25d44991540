package pdf

import (
	"bytes"
	"compress/zlib"
	"testing"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("compress: %v", err)
	}
	return buf.Bytes()
}

// TestFlateDecode tests plain zlib inflation
func TestFlateDecode(t *testing.T) {
	plain := []byte("a moderately repetitive payload payload payload")
	s := Stream{
		Dictionary: Dictionary{"Filter": Name("FlateDecode")},
		Data:       deflate(t, plain),
	}
	out, err := s.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Errorf("got %q, want %q", out, plain)
	}
}

// TestFlateDecodePredictor tests the PNG row predictor (Sub and Up rows)
func TestFlateDecodePredictor(t *testing.T) {
	// Two 4-byte rows: Sub row decodes to 1,2,3,4; Up row adds to 2,3,4,5.
	raw := []byte{
		1, 1, 1, 1, 1,
		2, 1, 1, 1, 1,
	}
	s := Stream{
		Dictionary: Dictionary{
			"Filter": Name("FlateDecode"),
			"DecodeParms": Dictionary{
				"Predictor": Integer(12),
				"Columns":   Integer(4),
			},
		},
		Data: deflate(t, raw),
	}
	out, err := s.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []byte{1, 2, 3, 4, 2, 3, 4, 5}
	if !bytes.Equal(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

// TestASCIIHexDecode tests hex decoding including the odd-digit rule
func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		input string
		want  []byte
	}{
		{"48656C6C6F>", []byte("Hello")},
		{"48 65 6c 6c 6f>", []byte("Hello")},
		{"7>", []byte{0x70}},
	}
	for _, tt := range tests {
		s := Stream{
			Dictionary: Dictionary{"Filter": Name("ASCIIHexDecode")},
			Data:       []byte(tt.input),
		}
		out, err := s.Decode()
		if err != nil {
			t.Fatalf("%q: %v", tt.input, err)
		}
		if !bytes.Equal(out, tt.want) {
			t.Errorf("%q: got % x, want % x", tt.input, out, tt.want)
		}
	}
}

// TestASCII85Decode tests base-85 decoding with the z shortcut
func TestASCII85Decode(t *testing.T) {
	s := Stream{
		Dictionary: Dictionary{"Filter": Name("ASCII85Decode")},
		Data:       []byte("87cUR~>"),
	}
	out, err := s.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out) != "Hell" {
		t.Errorf("got %q, want %q", out, "Hell")
	}

	s.Data = []byte("z~>")
	out, err = s.Decode()
	if err != nil {
		t.Fatalf("decode z: %v", err)
	}
	if !bytes.Equal(out, []byte{0, 0, 0, 0}) {
		t.Errorf("z: got % x", out)
	}
}

// TestRunLengthDecode tests literal and repeat runs
func TestRunLengthDecode(t *testing.T) {
	s := Stream{
		Dictionary: Dictionary{"Filter": Name("RunLengthDecode")},
		Data:       []byte{2, 'a', 'b', 'c', 254, 'x', 128},
	}
	out, err := s.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out) != "abcxxx" {
		t.Errorf("got %q, want %q", out, "abcxxx")
	}
}

// TestFilterChain tests that filter arrays apply in order
func TestFilterChain(t *testing.T) {
	plain := []byte("chained")
	s := Stream{
		Dictionary: Dictionary{
			"Filter": Array{Name("ASCIIHexDecode"), Name("RunLengthDecode")},
		},
		// Hex encoding of {6, 'c','h','a','i','n','e','d', 128}
		Data: []byte("06636861696E656480>"),
	}
	out, err := s.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Errorf("got %q, want %q", out, plain)
	}
}

// TestUnsupportedFilter tests the error path
func TestUnsupportedFilter(t *testing.T) {
	s := Stream{
		Dictionary: Dictionary{"Filter": Name("CCITTFaxDecode")},
		Data:       []byte{0},
	}
	if _, err := s.Decode(); err == nil {
		t.Error("Expected error for unsupported filter")
	}
}
