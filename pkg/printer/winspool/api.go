package winspool

// PrinterHandle is an open spooler handle (HANDLE from OpenPrinter).
type PrinterHandle uintptr

// DC is a GDI device context handle (HDC).
type DC uintptr

// HGlobal is a movable global memory handle returned by the print dialog.
type HGlobal uintptr

// DeviceCapsIndex selects a GetDeviceCaps query on an open device context.
type DeviceCapsIndex int

const (
	HorzRes         DeviceCapsIndex = 8   // printable width, device pixels
	VertRes         DeviceCapsIndex = 10  // printable height, device pixels
	LogPixelsX      DeviceCapsIndex = 88  // device DPI, horizontal
	LogPixelsY      DeviceCapsIndex = 90  // device DPI, vertical
	PhysicalWidth   DeviceCapsIndex = 110 // full page width, device pixels
	PhysicalHeight  DeviceCapsIndex = 111
	PhysicalOffsetX DeviceCapsIndex = 112 // unprintable left margin
	PhysicalOffsetY DeviceCapsIndex = 113
)

// Capability selects a DeviceCapabilities driver query.
type Capability uint16

const (
	CapPapers      Capability = 2  // supported paper codes
	CapBins        Capability = 6  // supported input bins
	CapDuplex      Capability = 7  // nonzero when duplex-capable
	CapResolutions Capability = 13 // supported resolutions
	CapMaxCopies   Capability = 18
	CapCollate     Capability = 22 // nonzero when hardware-collate-capable
	CapColorDevice Capability = 32
)

// PrinterInfo describes one installed printer as the spooler reports it.
type PrinterInfo struct {
	Name     string
	Driver   string
	Port     string
	Location string
	Comment  string
	Status   uint32
	Default  bool
}

// DialogRequest pre-populates the system print dialog.
type DialogRequest struct {
	// Device pre-selects a printer when non-empty.
	Device string
	// Copies is the initial copy count shown; values below 1 display as 1.
	Copies int
	// FromPage/ToPage seed the page-range controls; MinPage/MaxPage bound them.
	FromPage, ToPage int
	MinPage, MaxPage int
}

// DialogReply is the raw outcome of the system print dialog. The caller owns
// every handle it carries: DC (when non-zero) and the two global memory
// blocks must be released on every path, including cancellation.
type DialogReply struct {
	Cancelled bool
	Device    string
	DC        DC
	DevMode   *DevMode
	// DevModeMem and DevNamesMem are the dialog's global allocations backing
	// DevMode and the device name; freed with GlobalFree.
	DevModeMem  HGlobal
	DevNamesMem HGlobal
	Copies      int
	// LimitPages is set when the user restricted output to FromPage..ToPage.
	LimitPages bool
	FromPage   int
	ToPage     int
}

// API is the boundary to the platform spooler and GDI. The windows build
// implements it over winspool.drv/gdi32/comdlg32; tests substitute a fake
// that records the protocol.
type API interface {
	// OpenPrinter opens a handle to the named device.
	OpenPrinter(name string) (PrinterHandle, error)
	ClosePrinter(h PrinterHandle) error

	// DevModeSize returns the byte size of the configuration record the
	// driver expects, or 0 when the driver rejects the query.
	DevModeSize(h PrinterHandle, device string) (int, error)
	// CurrentDevMode retrieves the device's current configuration record.
	CurrentDevMode(h PrinterHandle, device string) (*DevMode, error)
	// ValidateDevMode submits a modified record for driver validation and
	// returns the driver's normalized copy.
	ValidateDevMode(h PrinterHandle, device string, dm *DevMode) (*DevMode, error)

	// CreateDC opens a device context on the device, configured by dm when
	// non-nil.
	CreateDC(device string, dm *DevMode) (DC, error)
	DeleteDC(dc DC) error
	DeviceCaps(dc DC, index DeviceCapsIndex) int

	// StartDoc begins a print job and returns its identifier; values below 1
	// mean failure.
	StartDoc(dc DC, docName string) (int, error)
	StartPage(dc DC) (int, error)
	EndPage(dc DC) (int, error)
	EndDoc(dc DC) (int, error)

	// StretchDIBits transfers a top-down 32-bit BGRA bitmap of srcW×srcH
	// pixels into the destination rectangle, scaling as needed. ppmX/ppmY are
	// the bitmap's pixels-per-meter metadata. Returns the number of scan
	// lines copied; values below 1 mean failure (GDI reports either 0 or
	// GDI_ERROR, which arrives as -1).
	StretchDIBits(dc DC, dstX, dstY, dstW, dstH, srcW, srcH, ppmX, ppmY int, bits []byte) (int, error)

	// LastError returns the calling thread's last native error code.
	LastError() uint32

	// Printers enumerates installed printers.
	Printers() ([]PrinterInfo, error)
	// DefaultPrinter returns the system default printer name; empty when
	// none is configured.
	DefaultPrinter() (string, error)

	// CapsInt runs a scalar DeviceCapabilities query.
	CapsInt(device string, cap Capability) (int, error)
	// CapsWords runs a word-list DeviceCapabilities query (papers, bins).
	CapsWords(device string, cap Capability) ([]uint16, error)
	// Resolutions returns the device's supported resolutions in DPI.
	Resolutions(device string) ([]int, error)

	// ShowPrintDialog presents the system print dialog.
	ShowPrintDialog(req *DialogRequest) (*DialogReply, error)
	// GlobalFree releases dialog-allocated global memory. Zero handles are
	// ignored.
	GlobalFree(h HGlobal)
}
