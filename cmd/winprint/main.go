// winprint sends a PDF to a printer, rasterizing each page at the selected
// quality. Defaults for the device and print options can live in
// ~/.winprint.yaml; command line flags override the file.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/novvoo/go-winprint/internal/logging"
	"github.com/novvoo/go-winprint/pkg/printer"
	_ "github.com/novvoo/go-winprint/pkg/printer/lp"
	_ "github.com/novvoo/go-winprint/pkg/printer/winspool"
	"github.com/novvoo/go-winprint/pkg/raster"
)

func main() {
	var (
		device    = flag.String("printer", "", "target printer name (default: system default)")
		copies    = flag.Int("copies", 0, "number of copies")
		duplex    = flag.String("duplex", "", "duplex mode: none, long, short")
		paper     = flag.String("paper", "", "paper size: letter, legal, a3, a4, a5, b4, b5, tabloid")
		tray      = flag.Int("tray", 0, "input tray code (driver-specific)")
		landscape = flag.Bool("landscape", false, "landscape orientation")
		colorMode = flag.String("color", "", "color mode: color, gray")
		dpi       = flag.Int("dpi", 0, "render quality in DPI (150, 300, 600)")
		collate   = flag.Bool("collate", false, "collate copies")
		dialog    = flag.Bool("dialog", false, "show the system print dialog")
		pages     = flag.String("pages", "", "page range, e.g. 2-5")
		noCache   = flag.Bool("no-cache", false, "disable the page bitmap cache")
		info      = flag.Bool("info", false, "show page count and sizes, do not print")
		verbose   = flag.Bool("v", false, "verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <input.pdf>\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	if *verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			logging.SetLogger(log)
			defer log.Sync()
		}
	}

	loadConfig(device, dpi, duplex, paper, colorMode)

	if *info {
		if err := showInfo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	opts, err := buildOptions(*copies, *duplex, *paper, *tray, *landscape, *colorMode, *dpi, *collate, *dialog, *pages, *noCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := printer.PrintFile(path, *device, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig fills unset flags from ~/.winprint.yaml, when present.
func loadConfig(device *string, dpi *int, duplex, paper, colorMode *string) {
	v := viper.New()
	v.SetConfigName(".winprint")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return
	}
	if *device == "" {
		*device = v.GetString("printer")
	}
	if *dpi == 0 {
		*dpi = v.GetInt("dpi")
	}
	if *duplex == "" {
		*duplex = v.GetString("duplex")
	}
	if *paper == "" {
		*paper = v.GetString("paper")
	}
	if *colorMode == "" {
		*colorMode = v.GetString("color")
	}
}

func buildOptions(copies int, duplex, paper string, tray int, landscape bool, colorMode string, dpi int, collate, dialog bool, pages string, noCache bool) (*printer.Options, error) {
	opts := &printer.Options{
		Copies:       copies,
		Quality:      printer.Quality(dpi),
		Collate:      collate,
		ShowDialog:   dialog,
		DisableCache: noCache,
	}
	switch duplex {
	case "":
	case "none":
		opts.Duplex = printer.DuplexSimplex
	case "long":
		opts.Duplex = printer.DuplexLongEdge
	case "short":
		opts.Duplex = printer.DuplexShortEdge
	default:
		return nil, fmt.Errorf("unknown duplex mode %q", duplex)
	}
	switch paper {
	case "":
	case "letter":
		opts.PaperSize = printer.PaperLetter
	case "legal":
		opts.PaperSize = printer.PaperLegal
	case "a3":
		opts.PaperSize = printer.PaperA3
	case "a4":
		opts.PaperSize = printer.PaperA4
	case "a5":
		opts.PaperSize = printer.PaperA5
	case "b4":
		opts.PaperSize = printer.PaperB4
	case "b5":
		opts.PaperSize = printer.PaperB5
	case "tabloid":
		opts.PaperSize = printer.PaperTabloid
	default:
		return nil, fmt.Errorf("unknown paper size %q", paper)
	}
	if tray != 0 {
		opts.PaperSource = printer.PaperSource(tray)
	}
	if landscape {
		opts.Orientation = printer.OrientationLandscape
	}
	switch colorMode {
	case "":
	case "color":
		opts.ColorMode = printer.ColorModeColor
	case "gray", "grey", "mono":
		opts.ColorMode = printer.ColorModeMonochrome
	default:
		return nil, fmt.Errorf("unknown color mode %q", colorMode)
	}
	if pages != "" {
		r, err := parseRange(pages)
		if err != nil {
			return nil, err
		}
		opts.Pages = r
	}
	return opts, nil
}

// parseRange accepts "N" or "N-M".
func parseRange(s string) (printer.PageRange, error) {
	parts := strings.SplitN(s, "-", 2)
	from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || from < 1 {
		return printer.PageRange{}, fmt.Errorf("invalid page range %q", s)
	}
	to := from
	if len(parts) == 2 {
		to, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || to < from {
			return printer.PageRange{}, fmt.Errorf("invalid page range %q", s)
		}
	}
	return printer.PageRange{From: from, To: to}, nil
}

// showInfo loads the document and lists its page geometry in points.
func showInfo(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ras := raster.NewRasterizer(false)
	if err := ras.Initialize(); err != nil {
		return err
	}
	defer ras.Cleanup()

	doc, err := ras.LoadDocument(data)
	if err != nil {
		return err
	}
	defer doc.Close()

	count, err := doc.PageCount()
	if err != nil {
		return err
	}
	sizes, err := doc.PageSizes()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d pages\n", path, count)
	for i, size := range sizes {
		fmt.Printf("  page %d: %.1f x %.1f pt\n", i+1, size[0], size[1])
	}
	return nil
}
