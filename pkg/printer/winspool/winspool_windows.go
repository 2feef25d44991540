//go:build windows

package winspool

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/novvoo/go-winprint/pkg/printer"
)

var (
	winspoolDLL = windows.NewLazySystemDLL("winspool.drv")
	gdi32       = windows.NewLazySystemDLL("gdi32.dll")
	comdlg32    = windows.NewLazySystemDLL("comdlg32.dll")
	kernel32    = windows.NewLazySystemDLL("kernel32.dll")
	user32      = windows.NewLazySystemDLL("user32.dll")

	procOpenPrinter        = winspoolDLL.NewProc("OpenPrinterW")
	procClosePrinter       = winspoolDLL.NewProc("ClosePrinter")
	procDocumentProperties = winspoolDLL.NewProc("DocumentPropertiesW")
	procGetDefaultPrinter  = winspoolDLL.NewProc("GetDefaultPrinterW")
	procEnumPrinters       = winspoolDLL.NewProc("EnumPrintersW")
	procDeviceCapabilities = winspoolDLL.NewProc("DeviceCapabilitiesW")

	procCreateDC      = gdi32.NewProc("CreateDCW")
	procDeleteDC      = gdi32.NewProc("DeleteDC")
	procGetDeviceCaps = gdi32.NewProc("GetDeviceCaps")
	procStartDoc      = gdi32.NewProc("StartDocW")
	procStartPage     = gdi32.NewProc("StartPage")
	procEndPage       = gdi32.NewProc("EndPage")
	procEndDoc        = gdi32.NewProc("EndDoc")
	procStretchDIBits = gdi32.NewProc("StretchDIBits")

	procPrintDlgEx = comdlg32.NewProc("PrintDlgExW")

	procGlobalAlloc  = kernel32.NewProc("GlobalAlloc")
	procGlobalFree   = kernel32.NewProc("GlobalFree")
	procGlobalLock   = kernel32.NewProc("GlobalLock")
	procGlobalUnlock = kernel32.NewProc("GlobalUnlock")

	procGetDesktopWindow = user32.NewProc("GetDesktopWindow")
)

const (
	dmOutBuffer = 2
	dmInBuffer  = 8

	printerEnumLocal       = 0x00000002
	printerEnumConnections = 0x00000004

	srcCopy      = 0x00CC0020
	dibRGBColors = 0

	biRGB = 0

	ghnd = 0x0042

	pdReturnDC      = 0x00000100
	pdPageNums      = 0x00000002
	pdNoSelection   = 0x00000004
	pdNoCurrentPage = 0x00800000

	pdResultCancel = 0
	pdResultPrint  = 1

	startPageGeneral = 0xFFFFFFFF
)

func init() {
	printer.Register(New(NewAPI()))
}

// sysAPI implements API over winspool.drv, gdi32 and comdlg32. It keeps the
// errno captured with the most recent failed GDI call, so LastError reflects
// that call even after the goroutine migrates threads.
type sysAPI struct {
	lastErr uint32
}

// NewAPI returns the live spooler API for this system.
func NewAPI() API { return &sysAPI{} }

// noteError records the errno the syscall wrapper captured on the failing
// call's own thread.
func (a *sysAPI) noteError(errno error) {
	if e, ok := errno.(windows.Errno); ok {
		a.lastErr = uint32(e)
	}
}

func (*sysAPI) OpenPrinter(name string) (PrinterHandle, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	var h windows.Handle
	r, _, errno := procOpenPrinter.Call(
		uintptr(unsafe.Pointer(namep)),
		uintptr(unsafe.Pointer(&h)),
		0)
	if r == 0 {
		return 0, fmt.Errorf("OpenPrinter: %w", errno)
	}
	return PrinterHandle(h), nil
}

func (*sysAPI) ClosePrinter(h PrinterHandle) error {
	r, _, errno := procClosePrinter.Call(uintptr(h))
	if r == 0 {
		return fmt.Errorf("ClosePrinter: %w", errno)
	}
	return nil
}

func (*sysAPI) DevModeSize(h PrinterHandle, device string) (int, error) {
	devp, err := windows.UTF16PtrFromString(device)
	if err != nil {
		return 0, err
	}
	size, _, _ := procDocumentProperties.Call(
		0, uintptr(h),
		uintptr(unsafe.Pointer(devp)),
		0, 0, 0)
	if int32(size) <= 0 {
		return 0, fmt.Errorf("DocumentProperties: driver reports no devmode size")
	}
	return int(int32(size)), nil
}

func (a *sysAPI) CurrentDevMode(h PrinterHandle, device string) (*DevMode, error) {
	size, err := a.DevModeSize(h, device)
	if err != nil {
		return nil, err
	}
	devp, err := windows.UTF16PtrFromString(device)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	r, _, _ := procDocumentProperties.Call(
		0, uintptr(h),
		uintptr(unsafe.Pointer(devp)),
		uintptr(unsafe.Pointer(&buf[0])),
		0, dmOutBuffer)
	if int32(r) < 0 {
		return nil, fmt.Errorf("DocumentProperties: get current devmode failed (%d)", int32(r))
	}
	dm := new(DevMode)
	if err := dm.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return dm, nil
}

func (a *sysAPI) ValidateDevMode(h PrinterHandle, device string, dm *DevMode) (*DevMode, error) {
	devp, err := windows.UTF16PtrFromString(device)
	if err != nil {
		return nil, err
	}
	in, err := dm.MarshalBinary()
	if err != nil {
		return nil, err
	}
	size, err := a.DevModeSize(h, device)
	if err != nil {
		return nil, err
	}
	if size < len(in) {
		size = len(in)
	}
	out := make([]byte, size)
	r, _, _ := procDocumentProperties.Call(
		0, uintptr(h),
		uintptr(unsafe.Pointer(devp)),
		uintptr(unsafe.Pointer(&out[0])),
		uintptr(unsafe.Pointer(&in[0])),
		dmInBuffer|dmOutBuffer)
	if int32(r) < 0 {
		return nil, fmt.Errorf("DocumentProperties: validation failed (%d)", int32(r))
	}
	validated := new(DevMode)
	if err := validated.UnmarshalBinary(out); err != nil {
		return nil, err
	}
	return validated, nil
}

func (*sysAPI) CreateDC(device string, dm *DevMode) (DC, error) {
	driverp, err := windows.UTF16PtrFromString("WINSPOOL")
	if err != nil {
		return 0, err
	}
	devp, err := windows.UTF16PtrFromString(device)
	if err != nil {
		return 0, err
	}
	var dmPtr uintptr
	if dm != nil {
		raw, err := dm.MarshalBinary()
		if err != nil {
			return 0, err
		}
		dmPtr = uintptr(unsafe.Pointer(&raw[0]))
	}
	dc, _, errno := procCreateDC.Call(
		uintptr(unsafe.Pointer(driverp)),
		uintptr(unsafe.Pointer(devp)),
		0, dmPtr)
	if dc == 0 {
		return 0, fmt.Errorf("CreateDC %q: %w", device, errno)
	}
	return DC(dc), nil
}

func (*sysAPI) DeleteDC(dc DC) error {
	r, _, errno := procDeleteDC.Call(uintptr(dc))
	if r == 0 {
		return fmt.Errorf("DeleteDC: %w", errno)
	}
	return nil
}

func (*sysAPI) DeviceCaps(dc DC, index DeviceCapsIndex) int {
	r, _, _ := procGetDeviceCaps.Call(uintptr(dc), uintptr(index))
	return int(int32(r))
}

type docInfo struct {
	size     int32
	docName  *uint16
	output   *uint16
	datatype *uint16
	fwType   uint32
}

func (a *sysAPI) StartDoc(dc DC, docName string) (int, error) {
	namep, err := windows.UTF16PtrFromString(docName)
	if err != nil {
		return 0, err
	}
	di := docInfo{size: int32(unsafe.Sizeof(docInfo{})), docName: namep}
	r, _, errno := procStartDoc.Call(uintptr(dc), uintptr(unsafe.Pointer(&di)))
	n := int(int32(r))
	if n <= 0 {
		a.noteError(errno)
	}
	return n, nil
}

func (a *sysAPI) StartPage(dc DC) (int, error) {
	r, _, errno := procStartPage.Call(uintptr(dc))
	n := int(int32(r))
	if n <= 0 {
		a.noteError(errno)
	}
	return n, nil
}

func (a *sysAPI) EndPage(dc DC) (int, error) {
	r, _, errno := procEndPage.Call(uintptr(dc))
	n := int(int32(r))
	if n <= 0 {
		a.noteError(errno)
	}
	return n, nil
}

func (a *sysAPI) EndDoc(dc DC) (int, error) {
	r, _, errno := procEndDoc.Call(uintptr(dc))
	n := int(int32(r))
	if n <= 0 {
		a.noteError(errno)
	}
	return n, nil
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

func (a *sysAPI) StretchDIBits(dc DC, dstX, dstY, dstW, dstH, srcW, srcH, ppmX, ppmY int, bits []byte) (int, error) {
	// Negative height marks a top-down bitmap.
	hdr := bitmapInfoHeader{
		Size:          uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:         int32(srcW),
		Height:        -int32(srcH),
		Planes:        1,
		BitCount:      32,
		Compression:   biRGB,
		SizeImage:     uint32(len(bits)),
		XPelsPerMeter: int32(ppmX),
		YPelsPerMeter: int32(ppmY),
	}
	r, _, errno := procStretchDIBits.Call(
		uintptr(dc),
		uintptr(dstX), uintptr(dstY), uintptr(dstW), uintptr(dstH),
		0, 0, uintptr(srcW), uintptr(srcH),
		uintptr(unsafe.Pointer(&bits[0])),
		uintptr(unsafe.Pointer(&hdr)),
		dibRGBColors, srcCopy)
	// Failure is 0 or GDI_ERROR (0xFFFFFFFF, -1 as a signed line count).
	n := int(int32(r))
	if n <= 0 {
		a.noteError(errno)
	}
	return n, nil
}

func (a *sysAPI) LastError() uint32 { return a.lastErr }

type printerInfo2 struct {
	serverName          *uint16
	printerName         *uint16
	shareName           *uint16
	portName            *uint16
	driverName          *uint16
	comment             *uint16
	location            *uint16
	devMode             uintptr
	sepFile             *uint16
	printProcessor      *uint16
	datatype            *uint16
	parameters          *uint16
	securityDescriptor  uintptr
	attributes          uint32
	priority            uint32
	defaultPriority     uint32
	startTime           uint32
	untilTime           uint32
	status              uint32
	jobs                uint32
	averagePPM          uint32
}

func (a *sysAPI) Printers() ([]PrinterInfo, error) {
	flags := uintptr(printerEnumLocal | printerEnumConnections)
	var needed, count uint32
	procEnumPrinters.Call(flags, 0, 2, 0, 0,
		uintptr(unsafe.Pointer(&needed)),
		uintptr(unsafe.Pointer(&count)))
	if needed == 0 {
		return nil, nil
	}
	buf := make([]byte, needed)
	r, _, errno := procEnumPrinters.Call(flags, 0, 2,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(needed),
		uintptr(unsafe.Pointer(&needed)),
		uintptr(unsafe.Pointer(&count)))
	if r == 0 {
		return nil, fmt.Errorf("EnumPrinters: %w", errno)
	}

	def, _ := a.DefaultPrinter()

	infos := make([]PrinterInfo, 0, count)
	entries := unsafe.Slice((*printerInfo2)(unsafe.Pointer(&buf[0])), count)
	for _, e := range entries {
		info := PrinterInfo{
			Name:     utf16PtrToString(e.printerName),
			Driver:   utf16PtrToString(e.driverName),
			Port:     utf16PtrToString(e.portName),
			Location: utf16PtrToString(e.location),
			Comment:  utf16PtrToString(e.comment),
			Status:   e.status,
		}
		info.Default = def != "" && info.Name == def
		infos = append(infos, info)
	}
	return infos, nil
}

func (*sysAPI) DefaultPrinter() (string, error) {
	var size uint32
	procGetDefaultPrinter.Call(0, uintptr(unsafe.Pointer(&size)))
	if size == 0 {
		return "", nil
	}
	buf := make([]uint16, size)
	r, _, errno := procGetDefaultPrinter.Call(
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&size)))
	if r == 0 {
		if errno == windows.ERROR_FILE_NOT_FOUND {
			return "", nil
		}
		return "", fmt.Errorf("GetDefaultPrinter: %w", errno)
	}
	return windows.UTF16ToString(buf), nil
}

func (*sysAPI) CapsInt(device string, cap Capability) (int, error) {
	devp, err := windows.UTF16PtrFromString(device)
	if err != nil {
		return 0, err
	}
	r, _, errno := procDeviceCapabilities.Call(
		uintptr(unsafe.Pointer(devp)), 0, uintptr(cap), 0, 0)
	if int32(r) < 0 {
		return 0, fmt.Errorf("DeviceCapabilities(%d): %w", cap, errno)
	}
	return int(int32(r)), nil
}

func (*sysAPI) CapsWords(device string, cap Capability) ([]uint16, error) {
	devp, err := windows.UTF16PtrFromString(device)
	if err != nil {
		return nil, err
	}
	n, _, errno := procDeviceCapabilities.Call(
		uintptr(unsafe.Pointer(devp)), 0, uintptr(cap), 0, 0)
	if int32(n) <= 0 {
		if int32(n) < 0 {
			return nil, fmt.Errorf("DeviceCapabilities(%d): %w", cap, errno)
		}
		return nil, nil
	}
	out := make([]uint16, int32(n))
	r, _, errno := procDeviceCapabilities.Call(
		uintptr(unsafe.Pointer(devp)), 0, uintptr(cap),
		uintptr(unsafe.Pointer(&out[0])), 0)
	if int32(r) < 0 {
		return nil, fmt.Errorf("DeviceCapabilities(%d): %w", cap, errno)
	}
	return out[:int32(r)], nil
}

func (*sysAPI) Resolutions(device string) ([]int, error) {
	devp, err := windows.UTF16PtrFromString(device)
	if err != nil {
		return nil, err
	}
	n, _, errno := procDeviceCapabilities.Call(
		uintptr(unsafe.Pointer(devp)), 0, uintptr(CapResolutions), 0, 0)
	if int32(n) <= 0 {
		if int32(n) < 0 {
			return nil, fmt.Errorf("DeviceCapabilities(resolutions): %w", errno)
		}
		return nil, nil
	}
	// Each entry is an (x, y) pair of LONGs.
	pairs := make([]int32, 2*int32(n))
	r, _, errno := procDeviceCapabilities.Call(
		uintptr(unsafe.Pointer(devp)), 0, uintptr(CapResolutions),
		uintptr(unsafe.Pointer(&pairs[0])), 0)
	if int32(r) < 0 {
		return nil, fmt.Errorf("DeviceCapabilities(resolutions): %w", errno)
	}
	out := make([]int, int32(r))
	for i := range out {
		out[i] = int(pairs[2*i])
	}
	return out, nil
}

type printPageRange struct {
	fromPage uint32
	toPage   uint32
}

type printDlgEx struct {
	structSize        uint32
	hwndOwner         uintptr
	devMode           uintptr
	devNames          uintptr
	dc                uintptr
	flags             uint32
	flags2            uint32
	exclusionFlags    uint32
	numPageRanges     uint32
	maxPageRanges     uint32
	pageRanges        *printPageRange
	minPage           uint32
	maxPage           uint32
	copies            uint32
	instance          uintptr
	printTemplateName *uint16
	callback          uintptr
	numPropertyPages  uint32
	propertyPages     uintptr
	startPage         uint32
	resultAction      uint32
}

func (a *sysAPI) ShowPrintDialog(req *DialogRequest) (*DialogReply, error) {
	// PrintDlgEx rejects a NULL owner window with E_HANDLE.
	owner, _, _ := procGetDesktopWindow.Call()
	ranges := [8]printPageRange{{fromPage: uint32(req.FromPage), toPage: uint32(req.ToPage)}}
	pd := printDlgEx{
		structSize:    uint32(unsafe.Sizeof(printDlgEx{})),
		hwndOwner:     owner,
		flags:         pdReturnDC | pdNoSelection | pdNoCurrentPage,
		numPageRanges: 1,
		maxPageRanges: uint32(len(ranges)),
		pageRanges:    &ranges[0],
		minPage:       uint32(req.MinPage),
		maxPage:       uint32(req.MaxPage),
		copies:        uint32(req.Copies),
		startPage:     startPageGeneral,
	}
	if req.Device != "" {
		devNames, err := buildDevNames(req.Device)
		if err != nil {
			return nil, err
		}
		pd.devNames = uintptr(devNames)
	}

	hr, _, _ := procPrintDlgEx.Call(uintptr(unsafe.Pointer(&pd)))
	reply := &DialogReply{
		DC:          DC(pd.dc),
		DevModeMem:  HGlobal(pd.devMode),
		DevNamesMem: HGlobal(pd.devNames),
	}
	if int32(hr) != 0 {
		return reply, fmt.Errorf("PrintDlgEx failed: HRESULT 0x%08x", uint32(hr))
	}
	if pd.resultAction == pdResultCancel {
		reply.Cancelled = true
		return reply, nil
	}

	reply.Copies = int(pd.copies)
	if pd.flags&pdPageNums != 0 && pd.numPageRanges > 0 {
		reply.LimitPages = true
		reply.FromPage = int(ranges[0].fromPage)
		reply.ToPage = int(ranges[0].toPage)
	}
	if pd.devMode != 0 {
		if raw := lockGlobal(HGlobal(pd.devMode)); raw != nil {
			dm := new(DevMode)
			if err := dm.UnmarshalBinary(raw); err == nil {
				reply.DevMode = dm
			}
			globalUnlock(HGlobal(pd.devMode))
		}
	}
	if pd.devNames != 0 {
		reply.Device = deviceFromDevNames(HGlobal(pd.devNames))
	}
	return reply, nil
}

func (*sysAPI) GlobalFree(h HGlobal) {
	if h != 0 {
		procGlobalFree.Call(uintptr(h))
	}
}

// buildDevNames allocates a DEVNAMES block naming the device, used to
// pre-select it in the dialog.
func buildDevNames(device string) (HGlobal, error) {
	units, err := windows.UTF16FromString(device)
	if err != nil {
		return 0, err
	}
	// Header is four WORD offsets; the device name follows immediately.
	const headerWords = 4
	total := (headerWords + len(units)) * 2
	h, _, errno := procGlobalAlloc.Call(ghnd, uintptr(total))
	if h == 0 {
		return 0, fmt.Errorf("GlobalAlloc: %w", errno)
	}
	p, _, _ := procGlobalLock.Call(h)
	if p == 0 {
		procGlobalFree.Call(h)
		return 0, fmt.Errorf("GlobalLock failed")
	}
	words := unsafe.Slice((*uint16)(unsafe.Pointer(p)), headerWords+len(units))
	words[0] = headerWords // driver offset: points at the terminator-only slot
	words[1] = headerWords // device offset
	words[2] = headerWords + uint16(len(units)) - 1
	words[3] = 0
	copy(words[headerWords:], units)
	procGlobalUnlock.Call(h)
	return HGlobal(h), nil
}

func deviceFromDevNames(h HGlobal) string {
	p, _, _ := procGlobalLock.Call(uintptr(h))
	if p == 0 {
		return ""
	}
	defer procGlobalUnlock.Call(uintptr(h))
	words := (*[4]uint16)(unsafe.Pointer(p))
	offset := words[1]
	return utf16PtrToString((*uint16)(unsafe.Pointer(p + uintptr(offset)*2)))
}

func lockGlobal(h HGlobal) []byte {
	p, _, _ := procGlobalLock.Call(uintptr(h))
	if p == 0 {
		return nil
	}
	// The devmode declares its own total size: dmSize plus dmDriverExtra.
	size := int(*(*uint16)(unsafe.Pointer(p + 68))) + int(*(*uint16)(unsafe.Pointer(p + 70)))
	if size < devModeSize {
		size = devModeSize
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), size)
}

func globalUnlock(h HGlobal) {
	procGlobalUnlock.Call(uintptr(h))
}

func utf16PtrToString(p *uint16) string {
	if p == nil {
		return ""
	}
	return windows.UTF16PtrToString(p)
}
