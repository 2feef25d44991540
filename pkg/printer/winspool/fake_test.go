package winspool

import (
	"errors"
	"fmt"
)

// fakeAPI is an in-memory spooler that records the protocol it is driven
// through. Zero-value behavior is a healthy single-printer system.
type fakeAPI struct {
	printers       []PrinterInfo
	defaultPrinter string

	devModeSize int
	current     *DevMode
	// validate transforms a submitted record; nil echoes a clone back.
	validate func(*DevMode) (*DevMode, error)

	metrics map[DeviceCapsIndex]int

	// failure injection
	startDocResult  int
	startPageFail   bool
	endPageFailOn   int // fail the Nth EndPage (1-based); 0 never
	drawFail        bool
	lastError       uint32
	dialogReply     *DialogReply
	dialogErr       error

	// recorded activity
	calls       []string
	openCount   int
	closeCount  int
	deletedDCs  []DC
	freedGlobal []HGlobal
	endPages    int
	drawnSizes  [][2]int
}

func newFakeAPI() *fakeAPI {
	dm := &DevMode{DeviceName: "Office Laser", SpecVersion: 0x0401, Copies: 1}
	return &fakeAPI{
		printers: []PrinterInfo{
			{Name: "Office Laser", Port: "USB001", Location: "2F copy room"},
		},
		defaultPrinter: "Office Laser",
		devModeSize:    devModeSize,
		current:        dm,
		metrics: map[DeviceCapsIndex]int{
			HorzRes:    850,
			VertRes:    1100,
			LogPixelsX: 1000,
			LogPixelsY: 1000,
		},
		startDocResult: 1,
	}
}

func (f *fakeAPI) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeAPI) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) OpenPrinter(name string) (PrinterHandle, error) {
	f.record("OpenPrinter")
	f.openCount++
	return PrinterHandle(7), nil
}

func (f *fakeAPI) ClosePrinter(h PrinterHandle) error {
	f.record("ClosePrinter")
	f.closeCount++
	return nil
}

func (f *fakeAPI) DevModeSize(h PrinterHandle, device string) (int, error) {
	if f.devModeSize <= 0 {
		return 0, errors.New("driver rejected query")
	}
	return f.devModeSize, nil
}

func (f *fakeAPI) CurrentDevMode(h PrinterHandle, device string) (*DevMode, error) {
	return f.current.Clone(), nil
}

func (f *fakeAPI) ValidateDevMode(h PrinterHandle, device string, dm *DevMode) (*DevMode, error) {
	if f.validate != nil {
		return f.validate(dm)
	}
	return dm.Clone(), nil
}

func (f *fakeAPI) CreateDC(device string, dm *DevMode) (DC, error) {
	f.record("CreateDC")
	return DC(100), nil
}

func (f *fakeAPI) DeleteDC(dc DC) error {
	f.record("DeleteDC")
	f.deletedDCs = append(f.deletedDCs, dc)
	return nil
}

func (f *fakeAPI) DeviceCaps(dc DC, index DeviceCapsIndex) int {
	return f.metrics[index]
}

func (f *fakeAPI) StartDoc(dc DC, docName string) (int, error) {
	f.record("StartDoc")
	return f.startDocResult, nil
}

func (f *fakeAPI) StartPage(dc DC) (int, error) {
	f.record("StartPage")
	if f.startPageFail {
		return 0, nil
	}
	return 1, nil
}

func (f *fakeAPI) EndPage(dc DC) (int, error) {
	f.record("EndPage")
	f.endPages++
	if f.endPageFailOn > 0 && f.endPages == f.endPageFailOn {
		return 0, nil
	}
	return 1, nil
}

func (f *fakeAPI) EndDoc(dc DC) (int, error) {
	f.record("EndDoc")
	return 1, nil
}

func (f *fakeAPI) StretchDIBits(dc DC, dstX, dstY, dstW, dstH, srcW, srcH, ppmX, ppmY int, bits []byte) (int, error) {
	f.record("StretchDIBits")
	f.drawnSizes = append(f.drawnSizes, [2]int{dstW, dstH})
	if f.drawFail {
		// GDI_ERROR as a signed scan-line count.
		return -1, nil
	}
	return srcH, nil
}

func (f *fakeAPI) LastError() uint32 { return f.lastError }

func (f *fakeAPI) Printers() ([]PrinterInfo, error) {
	out := make([]PrinterInfo, len(f.printers))
	copy(out, f.printers)
	for i := range out {
		out[i].Default = out[i].Name == f.defaultPrinter
	}
	return out, nil
}

func (f *fakeAPI) DefaultPrinter() (string, error) { return f.defaultPrinter, nil }

func (f *fakeAPI) CapsInt(device string, cap Capability) (int, error) {
	switch cap {
	case CapMaxCopies:
		return 99, nil
	case CapDuplex:
		return 1, nil
	case CapColorDevice:
		return 0, nil
	case CapCollate:
		return 1, nil
	}
	return 0, errors.New("unsupported capability")
}

func (f *fakeAPI) CapsWords(device string, cap Capability) ([]uint16, error) {
	switch cap {
	case CapPapers:
		return []uint16{1, 5, 9}, nil
	case CapBins:
		return []uint16{1, 4, 7}, nil
	}
	return nil, errors.New("unsupported capability")
}

func (f *fakeAPI) Resolutions(device string) ([]int, error) {
	return []int{300, 600}, nil
}

func (f *fakeAPI) ShowPrintDialog(req *DialogRequest) (*DialogReply, error) {
	f.record("ShowPrintDialog")
	if f.dialogErr != nil {
		return f.dialogReply, f.dialogErr
	}
	return f.dialogReply, nil
}

func (f *fakeAPI) GlobalFree(h HGlobal) {
	if h != 0 {
		f.freedGlobal = append(f.freedGlobal, h)
	}
}
