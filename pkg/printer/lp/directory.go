package lp

import (
	"fmt"
	"strings"

	"github.com/novvoo/go-winprint/pkg/printer"
)

// directory answers printer queries by parsing lpstat/lpoptions output.
type directory struct {
	run Runner
}

// ListDevices parses `lpstat -p` plus `lpstat -d` for the default marker.
func (d *directory) ListDevices() ([]printer.DeviceInfo, error) {
	out, err := d.run("lpstat", "-p")
	if err != nil {
		return nil, fmt.Errorf("lp: lpstat -p: %w", err)
	}
	def, _ := d.DefaultDevice()

	var devices []printer.DeviceInfo
	for _, line := range strings.Split(string(out), "\n") {
		// "printer NAME is idle.  enabled since ..."
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "printer" {
			continue
		}
		name := fields[1]
		devices = append(devices, printer.DeviceInfo{
			Name:      name,
			IsDefault: name == def,
		})
	}
	return devices, nil
}

// DefaultDevice parses `lpstat -d`.
func (d *directory) DefaultDevice() (string, error) {
	out, err := d.run("lpstat", "-d")
	if err != nil {
		return "", fmt.Errorf("lp: lpstat -d: %w", err)
	}
	// "system default destination: NAME" or "no system default destination"
	line := strings.TrimSpace(string(out))
	if i := strings.LastIndex(line, ": "); i >= 0 {
		return strings.TrimSpace(line[i+2:]), nil
	}
	return "", printer.ErrNoDefaultDevice
}

// DeviceExists scans ListDevices for name.
func (d *directory) DeviceExists(name string) (bool, error) {
	devices, err := d.ListDevices()
	if err != nil {
		return false, err
	}
	for _, dev := range devices {
		if dev.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Capabilities parses `lpoptions -p NAME -l`, which lists one option per
// line: "Option/Description: value1 *default value2 ...".
func (d *directory) Capabilities(name string) (*printer.Capabilities, error) {
	ok, err := d.DeviceExists(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, printer.ErrDeviceNotFound
	}

	out, err := d.run("lpoptions", "-p", name, "-l")
	if err != nil {
		return nil, fmt.Errorf("lp: lpoptions: %w", err)
	}

	caps := &printer.Capabilities{}
	for _, line := range strings.Split(string(out), "\n") {
		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		option := line[:colon]
		if slash := strings.Index(option, "/"); slash >= 0 {
			option = option[:slash]
		}
		values := strings.Fields(line[colon+1:])
		switch option {
		case "Duplex":
			for _, v := range values {
				if strings.Contains(v, "DuplexTumble") || strings.Contains(v, "DuplexNoTumble") {
					caps.SupportsDuplex = true
				}
			}
		case "ColorModel", "print-color-mode":
			for _, v := range values {
				v = strings.TrimPrefix(v, "*")
				if strings.EqualFold(v, "RGB") || strings.EqualFold(v, "color") || strings.EqualFold(v, "CMYK") {
					caps.SupportsColor = true
				}
			}
		case "PageSize", "media":
			for _, v := range values {
				if p := paperCode(strings.TrimPrefix(v, "*")); p != printer.PaperDefault {
					caps.PaperSizes = append(caps.PaperSizes, p)
				}
			}
		case "Resolution":
			for _, v := range values {
				v = strings.TrimPrefix(v, "*")
				v = strings.TrimSuffix(v, "dpi")
				if x := strings.Split(v, "x"); len(x) > 0 {
					var dpi int
					if _, err := fmt.Sscanf(x[0], "%d", &dpi); err == nil && dpi > 0 {
						caps.Resolutions = append(caps.Resolutions, dpi)
					}
				}
			}
		}
	}
	return caps, nil
}

// paperCode maps CUPS media names back to driver paper codes.
func paperCode(media string) printer.PaperSize {
	switch strings.ToLower(media) {
	case "letter":
		return printer.PaperLetter
	case "legal":
		return printer.PaperLegal
	case "a3":
		return printer.PaperA3
	case "a4":
		return printer.PaperA4
	case "a5":
		return printer.PaperA5
	case "b4":
		return printer.PaperB4
	case "b5":
		return printer.PaperB5
	case "tabloid", "11x17":
		return printer.PaperTabloid
	default:
		return printer.PaperDefault
	}
}
