// Package lp prints through the CUPS command line tools (lp, lpstat,
// lpoptions). It implements the same surface as the Windows spooler backend
// by translating printer.Options into lp's -o flags; rasterization is left
// to CUPS, which consumes the PDF directly.
package lp

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novvoo/go-winprint/internal/logging"
	"github.com/novvoo/go-winprint/pkg/printer"
)

// Runner executes an external command and returns its combined output.
// Swapped out in tests.
type Runner func(name string, args ...string) ([]byte, error)

func run(name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Backend prints through lp.
type Backend struct {
	run Runner
	log *zap.Logger
	// spoolDir overrides the temp directory; empty means os.TempDir.
	spoolDir string
}

// New returns a Backend that shells out to the system lp tools.
func New() *Backend {
	return &Backend{run: run, log: logging.Scope("lp")}
}

// Name implements printer.Backend.
func (b *Backend) Name() string { return "lp" }

// Directory implements printer.Backend.
func (b *Backend) Directory() printer.Directory { return &directory{run: b.run} }

// Print implements printer.Backend. Raw bytes are spooled through a
// uniquely-named temp file, removed after submission.
func (b *Backend) Print(data []byte, docName, device string, opts *printer.Options) error {
	dir := b.spoolDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "winprint-"+uuid.NewString()+".pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("lp: spool file: %w", err)
	}
	defer os.Remove(path)

	args := buildArgs(docName, device, opts)
	args = append(args, path)
	b.log.Debug("submitting job", zap.Strings("args", args))

	out, err := b.run("lp", args...)
	if err != nil {
		return fmt.Errorf("lp: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// buildArgs translates opts into lp flags.
func buildArgs(docName, device string, opts *printer.Options) []string {
	var args []string
	if device != "" {
		args = append(args, "-d", device)
	}
	if docName != "" {
		args = append(args, "-t", docName)
	}
	if opts == nil {
		return args
	}
	if n := opts.EffectiveCopies(); n > 1 {
		args = append(args, "-n", strconv.Itoa(n))
	}
	switch opts.Duplex {
	case printer.DuplexSimplex:
		args = append(args, "-o", "sides=one-sided")
	case printer.DuplexLongEdge:
		args = append(args, "-o", "sides=two-sided-long-edge")
	case printer.DuplexShortEdge:
		args = append(args, "-o", "sides=two-sided-short-edge")
	}
	if media := mediaName(opts.PaperSize); media != "" {
		args = append(args, "-o", "media="+media)
	}
	if opts.Orientation == printer.OrientationLandscape {
		args = append(args, "-o", "orientation-requested=4")
	}
	switch opts.ColorMode {
	case printer.ColorModeColor:
		args = append(args, "-o", "print-color-mode=color")
	case printer.ColorModeMonochrome:
		args = append(args, "-o", "print-color-mode=monochrome")
	}
	switch {
	case opts.Quality > 0 && opts.Quality <= printer.QualityDraft:
		args = append(args, "-o", "print-quality=3")
	case opts.Quality >= printer.QualityHigh:
		args = append(args, "-o", "print-quality=5")
	case opts.Quality > 0:
		args = append(args, "-o", "print-quality=4")
	}
	if opts.Collate {
		args = append(args, "-o", "collate=true")
	}
	if !opts.Pages.IsZero() {
		args = append(args, "-o",
			fmt.Sprintf("page-ranges=%d-%d", opts.Pages.From, opts.Pages.To))
	}
	return args
}

// mediaName maps driver paper codes to CUPS media names.
func mediaName(p printer.PaperSize) string {
	switch p {
	case printer.PaperLetter:
		return "letter"
	case printer.PaperLegal:
		return "legal"
	case printer.PaperA3:
		return "a3"
	case printer.PaperA4:
		return "a4"
	case printer.PaperA5:
		return "a5"
	case printer.PaperB4:
		return "b4"
	case printer.PaperB5:
		return "b5"
	case printer.PaperTabloid:
		return "tabloid"
	default:
		return ""
	}
}
