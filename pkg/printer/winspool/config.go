package winspool

import (
	"go.uber.org/zap"

	"github.com/novvoo/go-winprint/internal/logging"
	"github.com/novvoo/go-winprint/pkg/printer"
)

// ResolveDevMode translates opts into a validated configuration record for
// the named device. A nil or all-default opts returns a nil record, meaning
// "use device defaults"; the job then opens its device context without
// explicit configuration.
//
// The record starts from the device's current configuration so
// driver-specific fields the caller does not touch survive. Overrides are
// applied tray first: some drivers validate tray selection against paper
// state established earlier in the record, so the order is load-bearing.
func ResolveDevMode(api API, device string, opts *printer.Options) (*DevMode, error) {
	if !opts.IsConfigured() {
		return nil, nil
	}
	log := logging.Scope("winspool").With(zap.String("device", device))

	h, err := api.OpenPrinter(device)
	if err != nil {
		return nil, &printer.DeviceOpenError{Device: device, Err: err}
	}
	defer api.ClosePrinter(h)

	size, err := api.DevModeSize(h, device)
	if err != nil || size <= 0 {
		return nil, printer.ErrUnsupportedDevice
	}

	dm, err := api.CurrentDevMode(h, device)
	if err != nil {
		return nil, &printer.DeviceOpenError{Device: device, Err: err}
	}

	applyOptions(dm, opts)

	validated, err := api.ValidateDevMode(h, device, dm)
	if err != nil {
		// Driver quirks must not block printing; the unvalidated record is
		// still usable on most drivers.
		log.Warn("devmode validation failed, printing with unvalidated record",
			zap.Error(err))
		return dm, nil
	}

	// Drivers are known to silently substitute the tray after validation.
	// The explicit user request wins over the driver's substitution.
	if opts.PaperSource != printer.SourceDefault &&
		validated.DefaultSource != int16(opts.PaperSource) {
		log.Debug("driver overrode requested tray, reapplying",
			zap.Int16("driver", validated.DefaultSource),
			zap.Int("requested", int(opts.PaperSource)))
		validated.DefaultSource = int16(opts.PaperSource)
		validated.Fields |= DMDefaultSource
	}
	return validated, nil
}

// applyOptions mutates dm per opts, setting exactly the field-presence bits
// for the fields the caller requested.
func applyOptions(dm *DevMode, opts *printer.Options) {
	if opts.PaperSource != printer.SourceDefault {
		dm.DefaultSource = int16(opts.PaperSource)
		dm.Fields |= DMDefaultSource
	}
	if opts.Duplex != printer.DuplexPrinterDefault {
		dm.Duplex = duplexCode(opts.Duplex)
		dm.Fields |= DMDuplex
	}
	if opts.PaperSize != printer.PaperDefault {
		dm.PaperSize = int16(opts.PaperSize)
		dm.Fields |= DMPaperSize
	}
	if opts.Orientation == printer.OrientationLandscape {
		dm.Orientation = OrientLandscape
		dm.Fields |= DMOrientation
	}
	if opts.ColorMode != printer.ColorModePrinterDefault {
		dm.Color = colorCode(opts.ColorMode)
		dm.Fields |= DMColor
	}
	if opts.Collate {
		dm.Collate = CollateTrue
		dm.Fields |= DMCollate
	}
	// Copy iteration is driven by the job loop, never by dmCopies; setting
	// both would multiply the output.
}

func duplexCode(d printer.Duplex) int16 {
	switch d {
	case printer.DuplexLongEdge:
		return DupVertical
	case printer.DuplexShortEdge:
		return DupHorizontal
	default:
		return DupSimplex
	}
}

func colorCode(c printer.ColorMode) int16 {
	if c == printer.ColorModeColor {
		return ColorColor
	}
	return ColorMonochrome
}
