package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Decode returns the stream data with all filters applied.
//
// DCTDecode and JPXDecode data is returned as-is; the consumer decides how to
// decode the image payload.
func (s Stream) Decode() ([]byte, error) {
	data := s.Data

	filterObj := s.Dictionary.Get("Filter")
	if filterObj == nil {
		return data, nil
	}

	var filters []Name
	switch f := filterObj.(type) {
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			if n, ok := item.(Name); ok {
				filters = append(filters, n)
			}
		}
	}

	params := s.decodeParams(len(filters))

	for i, filter := range filters {
		var err error
		data, err = applyFilter(data, filter, params[i])
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", filter, err)
		}
	}
	return data, nil
}

// decodeParams returns one parameter dictionary per filter, nil-padded.
func (s Stream) decodeParams(n int) []Dictionary {
	out := make([]Dictionary, n)
	switch p := s.Dictionary.Get("DecodeParms").(type) {
	case Dictionary:
		if n > 0 {
			out[0] = p
		}
	case Array:
		for i := 0; i < n && i < len(p); i++ {
			if d, ok := p[i].(Dictionary); ok {
				out[i] = d
			}
		}
	}
	return out
}

func applyFilter(data []byte, filter Name, params Dictionary) ([]byte, error) {
	switch filter {
	case "FlateDecode", "Fl":
		return flateDecode(data, params)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	case "RunLengthDecode", "RL":
		return runLengthDecode(data)
	case "DCTDecode", "DCT", "JPXDecode":
		// Image payloads, decoded downstream.
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported filter: %s", filter)
	}
}

func flateDecode(data []byte, params Dictionary) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil && len(decoded) == 0 {
		return nil, err
	}

	if predictor, ok := params.GetInt("Predictor"); ok && predictor > 1 {
		return applyPredictor(decoded, params)
	}
	return decoded, nil
}

// applyPredictor undoes the PNG row predictor used by xref and image streams.
func applyPredictor(data []byte, params Dictionary) ([]byte, error) {
	predictor, _ := params.GetInt("Predictor")
	if predictor < 10 {
		// TIFF predictor 2 is vanishingly rare in practice.
		return data, nil
	}

	columns, ok := params.GetInt("Columns")
	if !ok {
		columns = 1
	}
	colors, ok := params.GetInt("Colors")
	if !ok {
		colors = 1
	}
	bpc, ok := params.GetInt("BitsPerComponent")
	if !ok {
		bpc = 8
	}

	pixelBytes := int((colors*bpc + 7) / 8)
	rowBytes := int((columns*colors*bpc + 7) / 8)
	if rowBytes <= 0 || len(data)%(rowBytes+1) != 0 {
		return data, nil
	}

	rows := len(data) / (rowBytes + 1)
	out := make([]byte, rows*rowBytes)
	prev := make([]byte, rowBytes)

	for row := 0; row < rows; row++ {
		src := data[row*(rowBytes+1):]
		dst := out[row*rowBytes : (row+1)*rowBytes]
		tag := src[0]
		line := src[1 : 1+rowBytes]

		switch tag {
		case 0:
			copy(dst, line)
		case 1: // Sub
			for i := range line {
				left := byte(0)
				if i >= pixelBytes {
					left = dst[i-pixelBytes]
				}
				dst[i] = line[i] + left
			}
		case 2: // Up
			for i := range line {
				dst[i] = line[i] + prev[i]
			}
		case 3: // Average
			for i := range line {
				left := byte(0)
				if i >= pixelBytes {
					left = dst[i-pixelBytes]
				}
				dst[i] = line[i] + byte((int(left)+int(prev[i]))/2)
			}
		case 4: // Paeth
			for i := range line {
				var left, upLeft byte
				if i >= pixelBytes {
					left = dst[i-pixelBytes]
					upLeft = prev[i-pixelBytes]
				}
				dst[i] = line[i] + paeth(left, prev[i], upLeft)
			}
		default:
			copy(dst, line)
		}
		copy(prev, dst)
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var out []byte
	var nibble byte
	var pending bool

	for _, b := range data {
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		var v byte
		switch {
		case b >= '0' && b <= '9':
			v = b - '0'
		case b >= 'A' && b <= 'F':
			v = b - 'A' + 10
		case b >= 'a' && b <= 'f':
			v = b - 'a' + 10
		default:
			return nil, fmt.Errorf("invalid hex character %q", b)
		}
		if pending {
			out = append(out, nibble<<4|v)
			pending = false
		} else {
			nibble = v
			pending = true
		}
	}
	if pending {
		out = append(out, nibble<<4)
	}
	return out, nil
}

func ascii85Decode(data []byte) ([]byte, error) {
	var out []byte
	var tuple uint32
	var count int

	for _, b := range data {
		if b == '~' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		if b == 'z' && count == 0 {
			out = append(out, 0, 0, 0, 0)
			continue
		}
		if b < '!' || b > 'u' {
			return nil, fmt.Errorf("invalid ascii85 character %q", b)
		}
		tuple = tuple*85 + uint32(b-'!')
		count++
		if count == 5 {
			out = append(out, byte(tuple>>24), byte(tuple>>16), byte(tuple>>8), byte(tuple))
			tuple, count = 0, 0
		}
	}
	if count > 0 {
		for i := count; i < 5; i++ {
			tuple = tuple*85 + 84
		}
		for i := 0; i < count-1; i++ {
			out = append(out, byte(tuple>>(24-i*8)))
		}
	}
	return out, nil
}

func runLengthDecode(data []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, fmt.Errorf("truncated run-length data")
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("truncated run-length data")
			}
			out = append(out, bytes.Repeat(data[i:i+1], 257-n)...)
			i++
		}
	}
	return out, nil
}
