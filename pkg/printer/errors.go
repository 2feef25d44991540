package printer

import (
	"errors"
	"fmt"

	"github.com/novvoo/go-winprint/pkg/raster"
)

// Sentinel errors for conditions without native detail.
var (
	// ErrDeviceNotFound reports that the named printer does not exist.
	ErrDeviceNotFound = errors.New("printer: device not found")

	// ErrNoDefaultDevice reports that no device name was given and the
	// system has no default printer.
	ErrNoDefaultDevice = errors.New("printer: no default device")

	// ErrUnsupportedDevice reports a driver that rejects the configuration
	// record query.
	ErrUnsupportedDevice = errors.New("printer: device does not support configuration records")

	// ErrUnsupportedPlatform reports that no print backend exists for this
	// operating system.
	ErrUnsupportedPlatform = errors.New("printer: unsupported platform")
)

// Load/render failures come from the raster package; re-exported so callers
// match against one package.
var (
	ErrEmptyDocument = raster.ErrEmptyDocument
)

// DeviceOpenError reports a device that exists but could not be opened.
type DeviceOpenError struct {
	Device string
	Err    error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("printer: open device %q: %v", e.Device, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// JobOp names a step of the print-job protocol.
type JobOp string

const (
	OpStartDocument JobOp = "StartDocument"
	OpStartPage     JobOp = "StartPage"
	OpDraw          JobOp = "Draw"
	OpEndPage       JobOp = "EndPage"
	OpEndDocument   JobOp = "EndDocument"
)

// JobError reports a fatal failure of one print-job protocol step, carrying
// the native error code when the spooler reported one.
type JobError struct {
	Op     JobOp
	Device string
	Code   uint32
}

func (e *JobError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("printer: %s failed on %q (native error %d)", e.Op, e.Device, e.Code)
	}
	return fmt.Sprintf("printer: %s failed on %q", e.Op, e.Device)
}

// DialogError reports a failure invoking the interactive print dialog.
// Cancellation is not an error and is never wrapped in DialogError.
type DialogError struct {
	Err error
}

func (e *DialogError) Error() string {
	return fmt.Sprintf("printer: print dialog failed: %v", e.Err)
}

func (e *DialogError) Unwrap() error { return e.Err }
