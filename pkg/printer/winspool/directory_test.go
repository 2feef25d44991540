package winspool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novvoo/go-winprint/pkg/printer"
)

func TestDirectoryListDevices(t *testing.T) {
	api := newFakeAPI()
	api.printers = append(api.printers, PrinterInfo{Name: "Lobby Inkjet", Comment: "guest use"})

	devices, err := NewDirectory(api).ListDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "Office Laser", devices[0].Name)
	assert.True(t, devices[0].IsDefault)
	assert.Equal(t, "2F copy room", devices[0].Location)
	assert.Equal(t, "Lobby Inkjet", devices[1].Name)
	assert.False(t, devices[1].IsDefault)
	assert.Equal(t, "guest use", devices[1].Description)
}

func TestDirectoryDefaultDevice(t *testing.T) {
	api := newFakeAPI()
	name, err := NewDirectory(api).DefaultDevice()
	require.NoError(t, err)
	assert.Equal(t, "Office Laser", name)

	api.defaultPrinter = ""
	_, err = NewDirectory(api).DefaultDevice()
	assert.ErrorIs(t, err, printer.ErrNoDefaultDevice)
}

func TestDirectoryDeviceExists(t *testing.T) {
	dir := NewDirectory(newFakeAPI())

	ok, err := dir.DeviceExists("Office Laser")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.DeviceExists("Basement Dot Matrix")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirectoryCapabilities(t *testing.T) {
	dir := NewDirectory(newFakeAPI())

	caps, err := dir.Capabilities("Office Laser")
	require.NoError(t, err)
	assert.Equal(t, 99, caps.MaxCopies)
	assert.True(t, caps.SupportsDuplex)
	assert.False(t, caps.SupportsColor)
	assert.True(t, caps.SupportsCollate)
	assert.Equal(t, []printer.PaperSize{1, 5, 9}, caps.PaperSizes)
	assert.Equal(t, []printer.PaperSource{1, 4, 7}, caps.PaperSources)
	assert.Equal(t, []int{300, 600}, caps.Resolutions)

	_, err = dir.Capabilities("Basement Dot Matrix")
	assert.ErrorIs(t, err, printer.ErrDeviceNotFound)
}
