// printls lists the installed printers, and with -caps shows what a
// device's driver reports it can do.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/novvoo/go-winprint/pkg/printer"
	_ "github.com/novvoo/go-winprint/pkg/printer/lp"
	_ "github.com/novvoo/go-winprint/pkg/printer/winspool"
)

func main() {
	caps := flag.String("caps", "", "show capabilities for the named printer")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-caps printer]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	backend, err := printer.ActiveBackend()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dir := backend.Directory()

	if *caps != "" {
		if err := showCaps(dir, *caps); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	devices, err := dir.ListDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %s", marker, d.Name)
		if d.Location != "" {
			fmt.Printf("  (%s)", d.Location)
		}
		fmt.Println()
	}
}

func showCaps(dir printer.Directory, name string) error {
	caps, err := dir.Capabilities(name)
	if err != nil {
		return err
	}
	fmt.Printf("%s:\n", name)
	fmt.Printf("  color:   %v\n", caps.SupportsColor)
	fmt.Printf("  duplex:  %v\n", caps.SupportsDuplex)
	fmt.Printf("  collate: %v\n", caps.SupportsCollate)
	if caps.MaxCopies > 0 {
		fmt.Printf("  copies:  up to %d\n", caps.MaxCopies)
	}
	if len(caps.PaperSizes) > 0 {
		fmt.Printf("  papers: ")
		for _, p := range caps.PaperSizes {
			fmt.Printf(" %d", p)
		}
		fmt.Println()
	}
	if len(caps.PaperSources) > 0 {
		fmt.Printf("  trays:  ")
		for _, t := range caps.PaperSources {
			fmt.Printf(" %d", t)
		}
		fmt.Println()
	}
	if len(caps.Resolutions) > 0 {
		fmt.Printf("  dpi:    ")
		for _, r := range caps.Resolutions {
			fmt.Printf(" %d", r)
		}
		fmt.Println()
	}
	return nil
}
