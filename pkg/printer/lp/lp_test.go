package lp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novvoo/go-winprint/pkg/printer"
)

func TestBuildArgs(t *testing.T) {
	opts := &printer.Options{
		Copies:      3,
		Duplex:      printer.DuplexLongEdge,
		PaperSize:   printer.PaperA4,
		Orientation: printer.OrientationLandscape,
		ColorMode:   printer.ColorModeMonochrome,
		Quality:     printer.QualityHigh,
		Collate:     true,
		Pages:       printer.PageRange{From: 2, To: 5},
	}

	args := buildArgs("report", "laser", opts)
	assert.Equal(t, []string{
		"-d", "laser",
		"-t", "report",
		"-n", "3",
		"-o", "sides=two-sided-long-edge",
		"-o", "media=a4",
		"-o", "orientation-requested=4",
		"-o", "print-color-mode=monochrome",
		"-o", "print-quality=5",
		"-o", "collate=true",
		"-o", "page-ranges=2-5",
	}, args)
}

func TestBuildArgsDefaults(t *testing.T) {
	assert.Empty(t, buildArgs("", "", nil))
	assert.Equal(t, []string{"-d", "p"}, buildArgs("", "p", &printer.Options{}))
}

func TestPrintSpoolsTempFile(t *testing.T) {
	var gotArgs []string
	b := New()
	b.spoolDir = t.TempDir()
	b.run = func(name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return nil, nil
	}

	err := b.Print([]byte("%PDF-1.4"), "doc", "laser", nil)
	require.NoError(t, err)
	require.NotEmpty(t, gotArgs)
	assert.Equal(t, "lp", gotArgs[0])
	assert.Contains(t, gotArgs[len(gotArgs)-1], ".pdf", "last argument is the spool file")
}

func TestPrintCommandFailure(t *testing.T) {
	b := New()
	b.spoolDir = t.TempDir()
	b.run = func(name string, args ...string) ([]byte, error) {
		return []byte("lp: The printer is on fire."), errors.New("exit status 1")
	}

	err := b.Print([]byte("%PDF-1.4"), "doc", "laser", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on fire")
}

func TestDirectoryListDevices(t *testing.T) {
	d := &directory{run: func(name string, args ...string) ([]byte, error) {
		if name == "lpstat" && args[0] == "-d" {
			return []byte("system default destination: laser\n"), nil
		}
		return []byte("printer laser is idle.  enabled since Sat 23 Aug 2026\n" +
			"printer inkjet is idle.  enabled since Sat 23 Aug 2026\n"), nil
	}}

	devices, err := d.ListDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "laser", devices[0].Name)
	assert.True(t, devices[0].IsDefault)
	assert.False(t, devices[1].IsDefault)
}

func TestDirectoryDefaultDevice(t *testing.T) {
	d := &directory{run: func(name string, args ...string) ([]byte, error) {
		return []byte("system default destination: laser\n"), nil
	}}
	name, err := d.DefaultDevice()
	require.NoError(t, err)
	assert.Equal(t, "laser", name)
}

func TestDirectoryCapabilities(t *testing.T) {
	d := &directory{run: func(name string, args ...string) ([]byte, error) {
		switch name {
		case "lpstat":
			if args[0] == "-d" {
				return []byte("system default destination: laser\n"), nil
			}
			return []byte("printer laser is idle.\n"), nil
		case "lpoptions":
			return []byte(
				"PageSize/Media Size: *Letter Legal A4\n" +
					"Duplex/2-Sided Printing: *None DuplexNoTumble DuplexTumble\n" +
					"ColorModel/Color Mode: *Gray RGB\n" +
					"Resolution/Resolution: 300dpi *600dpi\n"), nil
		}
		return nil, errors.New("unexpected command")
	}}

	caps, err := d.Capabilities("laser")
	require.NoError(t, err)
	assert.True(t, caps.SupportsDuplex)
	assert.True(t, caps.SupportsColor)
	assert.Equal(t, []printer.PaperSize{
		printer.PaperLetter, printer.PaperLegal, printer.PaperA4,
	}, caps.PaperSizes)
	assert.Equal(t, []int{300, 600}, caps.Resolutions)
}
