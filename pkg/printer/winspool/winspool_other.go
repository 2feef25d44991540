//go:build !windows

package winspool

import "github.com/novvoo/go-winprint/pkg/printer"

// stubAPI satisfies API on systems without a Windows spooler. Every call
// fails with ErrUnsupportedPlatform; tests use their own fakes instead.
type stubAPI struct{}

// NewAPI returns a stub on non-Windows systems.
func NewAPI() API { return stubAPI{} }

func (stubAPI) OpenPrinter(string) (PrinterHandle, error) {
	return 0, printer.ErrUnsupportedPlatform
}

func (stubAPI) ClosePrinter(PrinterHandle) error { return printer.ErrUnsupportedPlatform }

func (stubAPI) DevModeSize(PrinterHandle, string) (int, error) {
	return 0, printer.ErrUnsupportedPlatform
}

func (stubAPI) CurrentDevMode(PrinterHandle, string) (*DevMode, error) {
	return nil, printer.ErrUnsupportedPlatform
}

func (stubAPI) ValidateDevMode(PrinterHandle, string, *DevMode) (*DevMode, error) {
	return nil, printer.ErrUnsupportedPlatform
}

func (stubAPI) CreateDC(string, *DevMode) (DC, error) { return 0, printer.ErrUnsupportedPlatform }

func (stubAPI) DeleteDC(DC) error { return printer.ErrUnsupportedPlatform }

func (stubAPI) DeviceCaps(DC, DeviceCapsIndex) int { return 0 }

func (stubAPI) StartDoc(DC, string) (int, error) { return 0, printer.ErrUnsupportedPlatform }

func (stubAPI) StartPage(DC) (int, error) { return 0, printer.ErrUnsupportedPlatform }

func (stubAPI) EndPage(DC) (int, error) { return 0, printer.ErrUnsupportedPlatform }

func (stubAPI) EndDoc(DC) (int, error) { return 0, printer.ErrUnsupportedPlatform }

func (stubAPI) StretchDIBits(DC, int, int, int, int, int, int, int, int, []byte) (int, error) {
	return 0, printer.ErrUnsupportedPlatform
}

func (stubAPI) LastError() uint32 { return 0 }

func (stubAPI) Printers() ([]PrinterInfo, error) { return nil, printer.ErrUnsupportedPlatform }

func (stubAPI) DefaultPrinter() (string, error) { return "", printer.ErrUnsupportedPlatform }

func (stubAPI) CapsInt(string, Capability) (int, error) {
	return 0, printer.ErrUnsupportedPlatform
}

func (stubAPI) CapsWords(string, Capability) ([]uint16, error) {
	return nil, printer.ErrUnsupportedPlatform
}

func (stubAPI) Resolutions(string) ([]int, error) { return nil, printer.ErrUnsupportedPlatform }

func (stubAPI) ShowPrintDialog(*DialogRequest) (*DialogReply, error) {
	return nil, printer.ErrUnsupportedPlatform
}

func (stubAPI) GlobalFree(HGlobal) {}
