package printer

import (
	"fmt"
	"os"
	"sync"
)

// Backend prints rendered documents through one platform's spooler.
type Backend interface {
	// Name identifies the backend ("winspool", "lp").
	Name() string
	// Directory returns the backend's view of installed printers.
	Directory() Directory
	// Print sends the PDF in data to the named device. An empty device name
	// selects the system default printer. docName is the job title shown in
	// the print queue. opts may be nil for device defaults.
	Print(data []byte, docName, device string, opts *Options) error
}

var (
	backendMu sync.RWMutex
	backend   Backend
)

// Register installs the process-wide print backend. Platform backends call
// this from init, so importing a backend package is enough to activate it.
// A second registration replaces the first.
func Register(b Backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backend = b
}

// ActiveBackend returns the registered backend, or ErrUnsupportedPlatform
// when no backend package has been imported.
func ActiveBackend() (Backend, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if backend == nil {
		return nil, ErrUnsupportedPlatform
	}
	return backend, nil
}

// Print sends the PDF in data to the named device. An empty device name uses
// the system default printer. opts may be nil.
func Print(data []byte, docName, device string, opts *Options) error {
	b, err := ActiveBackend()
	if err != nil {
		return err
	}
	return b.Print(data, docName, device, opts)
}

// PrintFile reads a PDF from disk and prints it. The file name becomes the
// job title.
func PrintFile(path, device string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("printer: read %s: %w", path, err)
	}
	return Print(data, path, device, opts)
}

// Devices lists the installed printers through the active backend.
func Devices() ([]DeviceInfo, error) {
	b, err := ActiveBackend()
	if err != nil {
		return nil, err
	}
	return b.Directory().ListDevices()
}
