package winspool

import (
	"fmt"

	"github.com/novvoo/go-winprint/pkg/printer"
)

// Directory answers installed-printer queries through the spooler API.
type Directory struct {
	api API
}

// NewDirectory returns a Directory over api.
func NewDirectory(api API) *Directory {
	return &Directory{api: api}
}

// ListDevices implements printer.Directory.
func (d *Directory) ListDevices() ([]printer.DeviceInfo, error) {
	infos, err := d.api.Printers()
	if err != nil {
		return nil, fmt.Errorf("winspool: enumerate printers: %w", err)
	}
	devices := make([]printer.DeviceInfo, len(infos))
	for i, info := range infos {
		devices[i] = printer.DeviceInfo{
			Name:        info.Name,
			Description: info.Comment,
			Location:    info.Location,
			IsDefault:   info.Default,
		}
	}
	return devices, nil
}

// DefaultDevice implements printer.Directory.
func (d *Directory) DefaultDevice() (string, error) {
	name, err := d.api.DefaultPrinter()
	if err != nil {
		return "", fmt.Errorf("winspool: default printer: %w", err)
	}
	if name == "" {
		return "", printer.ErrNoDefaultDevice
	}
	return name, nil
}

// DeviceExists implements printer.Directory.
func (d *Directory) DeviceExists(name string) (bool, error) {
	infos, err := d.api.Printers()
	if err != nil {
		return false, fmt.Errorf("winspool: enumerate printers: %w", err)
	}
	for _, info := range infos {
		if info.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Capabilities implements printer.Directory via driver capability queries.
// Scalar queries that fail are reported as zero/false rather than failing
// the whole call; drivers answer these inconsistently.
func (d *Directory) Capabilities(name string) (*printer.Capabilities, error) {
	ok, err := d.DeviceExists(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, printer.ErrDeviceNotFound
	}

	caps := &printer.Capabilities{}
	if n, err := d.api.CapsInt(name, CapMaxCopies); err == nil {
		caps.MaxCopies = n
	}
	if n, err := d.api.CapsInt(name, CapDuplex); err == nil {
		caps.SupportsDuplex = n > 0
	}
	if n, err := d.api.CapsInt(name, CapColorDevice); err == nil {
		caps.SupportsColor = n > 0
	}
	if n, err := d.api.CapsInt(name, CapCollate); err == nil {
		caps.SupportsCollate = n > 0
	}
	if papers, err := d.api.CapsWords(name, CapPapers); err == nil {
		caps.PaperSizes = make([]printer.PaperSize, len(papers))
		for i, p := range papers {
			caps.PaperSizes[i] = printer.PaperSize(p)
		}
	}
	if bins, err := d.api.CapsWords(name, CapBins); err == nil {
		caps.PaperSources = make([]printer.PaperSource, len(bins))
		for i, b := range bins {
			caps.PaperSources[i] = printer.PaperSource(b)
		}
	}
	if res, err := d.api.Resolutions(name); err == nil {
		caps.Resolutions = res
	}
	return caps, nil
}
