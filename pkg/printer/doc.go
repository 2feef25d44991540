// Package printer drives a complete PDF print pipeline: it loads a document,
// rasterizes each page at the device's resolution, and feeds the page bitmaps
// through the platform print protocol.
//
// The package itself is platform neutral. Concrete spooler access lives in
// backends that register themselves on import:
//
//	winspool: the Windows print spooler (GDI device contexts, DEVMODE
//	          configuration records, StartDoc/StartPage page protocol)
//	lp:       the CUPS command line tools on other systems
//
// A typical caller imports the backend for its platform and prints with
// device defaults:
//
//	import (
//	    "github.com/novvoo/go-winprint/pkg/printer"
//	    _ "github.com/novvoo/go-winprint/pkg/printer/winspool"
//	)
//
//	err := printer.PrintFile("report.pdf", "", nil)
//
// Passing a nil *Options prints with the device's own configuration; a
// populated Options builds an explicit device configuration record before the
// job starts.
package printer
