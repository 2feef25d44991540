package winspool

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// dmFields bits marking which DevMode members the record sets.
const (
	DMOrientation   uint32 = 0x00000001
	DMPaperSize     uint32 = 0x00000002
	DMPaperLength   uint32 = 0x00000004
	DMPaperWidth    uint32 = 0x00000008
	DMScale         uint32 = 0x00000010
	DMCopies        uint32 = 0x00000100
	DMDefaultSource uint32 = 0x00000200
	DMPrintQuality  uint32 = 0x00000400
	DMColor         uint32 = 0x00000800
	DMDuplex        uint32 = 0x00001000
	DMYResolution   uint32 = 0x00002000
	DMTTOption      uint32 = 0x00004000
	DMCollate       uint32 = 0x00008000
)

// Orientation values (dmOrientation).
const (
	OrientPortrait  int16 = 1
	OrientLandscape int16 = 2
)

// Duplex values (dmDuplex).
const (
	DupSimplex    int16 = 1
	DupVertical   int16 = 2 // long edge
	DupHorizontal int16 = 3 // short edge
)

// Color values (dmColor).
const (
	ColorMonochrome int16 = 1
	ColorColor      int16 = 2
)

// Collate values (dmCollate).
const (
	CollateFalse int16 = 0
	CollateTrue  int16 = 1
)

// devModeSize is the fixed size of the public DEVMODEW layout in bytes.
// Driver-private data follows as dmDriverExtra bytes.
const devModeSize = 220

const deviceNameSlots = 32
const formNameSlots = 32

// DevMode mirrors the driver's DEVMODEW configuration record: a fixed binary
// layout plus an opaque driver-private tail. Records are obtained from the
// driver, mutated field by field with the matching Fields bit set, and
// submitted back for validation. Extra must be carried through unchanged or
// drivers reject the record.
type DevMode struct {
	DeviceName    string
	SpecVersion   uint16
	DriverVersion uint16
	DriverExtra   uint16
	Fields        uint32

	Orientation   int16
	PaperSize     int16
	PaperLength   int16
	PaperWidth    int16
	Scale         int16
	Copies        int16
	DefaultSource int16
	PrintQuality  int16
	Color         int16
	Duplex        int16
	YResolution   int16
	TTOption      int16
	Collate       int16

	FormName   string
	LogPixels  uint16
	BitsPerPel uint32
	PelsWidth  uint32
	PelsHeight uint32

	// Extra is the driver-private tail (dmDriverExtra bytes).
	Extra []byte
}

// Size returns the total marshaled length including the driver-private tail.
func (d *DevMode) Size() int { return devModeSize + len(d.Extra) }

// MarshalBinary encodes the record in the driver's little-endian layout.
func (d *DevMode) MarshalBinary() ([]byte, error) {
	buf := make([]byte, devModeSize+len(d.Extra))
	putUTF16(buf[0:], d.DeviceName, deviceNameSlots)
	le := binary.LittleEndian
	le.PutUint16(buf[64:], d.SpecVersion)
	le.PutUint16(buf[66:], d.DriverVersion)
	le.PutUint16(buf[68:], devModeSize)
	le.PutUint16(buf[70:], uint16(len(d.Extra)))
	le.PutUint32(buf[72:], d.Fields)
	le.PutUint16(buf[76:], uint16(d.Orientation))
	le.PutUint16(buf[78:], uint16(d.PaperSize))
	le.PutUint16(buf[80:], uint16(d.PaperLength))
	le.PutUint16(buf[82:], uint16(d.PaperWidth))
	le.PutUint16(buf[84:], uint16(d.Scale))
	le.PutUint16(buf[86:], uint16(d.Copies))
	le.PutUint16(buf[88:], uint16(d.DefaultSource))
	le.PutUint16(buf[90:], uint16(d.PrintQuality))
	le.PutUint16(buf[92:], uint16(d.Color))
	le.PutUint16(buf[94:], uint16(d.Duplex))
	le.PutUint16(buf[96:], uint16(d.YResolution))
	le.PutUint16(buf[98:], uint16(d.TTOption))
	le.PutUint16(buf[100:], uint16(d.Collate))
	putUTF16(buf[102:], d.FormName, formNameSlots)
	le.PutUint16(buf[166:], d.LogPixels)
	le.PutUint32(buf[168:], d.BitsPerPel)
	le.PutUint32(buf[172:], d.PelsWidth)
	le.PutUint32(buf[176:], d.PelsHeight)
	copy(buf[devModeSize:], d.Extra)
	return buf, nil
}

// UnmarshalBinary decodes a record produced by the driver. Short buffers are
// rejected; dmDriverExtra bytes past the fixed layout are preserved in Extra.
func (d *DevMode) UnmarshalBinary(data []byte) error {
	if len(data) < devModeSize {
		return fmt.Errorf("winspool: devmode too short: %d bytes", len(data))
	}
	le := binary.LittleEndian
	d.DeviceName = getUTF16(data[0:], deviceNameSlots)
	d.SpecVersion = le.Uint16(data[64:])
	d.DriverVersion = le.Uint16(data[66:])
	size := int(le.Uint16(data[68:]))
	if size < devModeSize {
		size = devModeSize
	}
	d.DriverExtra = le.Uint16(data[70:])
	d.Fields = le.Uint32(data[72:])
	d.Orientation = int16(le.Uint16(data[76:]))
	d.PaperSize = int16(le.Uint16(data[78:]))
	d.PaperLength = int16(le.Uint16(data[80:]))
	d.PaperWidth = int16(le.Uint16(data[82:]))
	d.Scale = int16(le.Uint16(data[84:]))
	d.Copies = int16(le.Uint16(data[86:]))
	d.DefaultSource = int16(le.Uint16(data[88:]))
	d.PrintQuality = int16(le.Uint16(data[90:]))
	d.Color = int16(le.Uint16(data[92:]))
	d.Duplex = int16(le.Uint16(data[94:]))
	d.YResolution = int16(le.Uint16(data[96:]))
	d.TTOption = int16(le.Uint16(data[98:]))
	d.Collate = int16(le.Uint16(data[100:]))
	d.FormName = getUTF16(data[102:], formNameSlots)
	d.LogPixels = le.Uint16(data[166:])
	d.BitsPerPel = le.Uint32(data[168:])
	d.PelsWidth = le.Uint32(data[172:])
	d.PelsHeight = le.Uint32(data[176:])

	extra := int(d.DriverExtra)
	if size+extra > len(data) {
		extra = len(data) - size
	}
	if extra > 0 {
		d.Extra = append([]byte(nil), data[size:size+extra]...)
	} else {
		d.Extra = nil
	}
	return nil
}

// Clone returns a deep copy, including the driver-private tail.
func (d *DevMode) Clone() *DevMode {
	c := *d
	if d.Extra != nil {
		c.Extra = append([]byte(nil), d.Extra...)
	}
	return &c
}

func putUTF16(dst []byte, s string, slots int) {
	units := utf16.Encode([]rune(s))
	if len(units) > slots-1 {
		units = units[:slots-1]
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(dst[i*2:], u)
	}
	// remaining slots stay zero
}

func getUTF16(src []byte, slots int) string {
	units := make([]uint16, 0, slots)
	for i := 0; i < slots; i++ {
		u := binary.LittleEndian.Uint16(src[i*2:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}
