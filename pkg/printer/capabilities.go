package printer

// DeviceInfo describes one installed printer.
type DeviceInfo struct {
	// Name is the system name used to open the device.
	Name string
	// Description is the human-readable printer description, when the system
	// provides one distinct from Name.
	Description string
	// Location is the administrator-assigned location string, if any.
	Location string
	// IsDefault marks the system default printer.
	IsDefault bool
}

// Capabilities describes what a device's driver reports it can do.
type Capabilities struct {
	// MaxCopies is the driver's copy-count limit, 0 when unknown.
	MaxCopies int
	// SupportsColor reports whether the device can print in color.
	SupportsColor bool
	// SupportsDuplex reports whether the device can print two-sided.
	SupportsDuplex bool
	// SupportsCollate reports whether the device collates in hardware.
	SupportsCollate bool
	// PaperSizes lists the driver paper-size codes the device accepts.
	PaperSizes []PaperSize
	// PaperSources lists the input-bin codes the device accepts.
	PaperSources []PaperSource
	// Resolutions lists the device's supported resolutions in DPI.
	Resolutions []int
}

// Directory enumerates and inspects the system's installed printers.
type Directory interface {
	// ListDevices returns every installed printer.
	ListDevices() ([]DeviceInfo, error)
	// DefaultDevice returns the system default printer name, or
	// ErrNoDefaultDevice when none is configured.
	DefaultDevice() (string, error)
	// DeviceExists reports whether name is an installed printer.
	DeviceExists(name string) (bool, error)
	// Capabilities queries the named device's driver.
	Capabilities(name string) (*Capabilities, error)
}
