package printer

// Duplex selects two-sided printing.
type Duplex int

const (
	DuplexPrinterDefault Duplex = iota
	DuplexSimplex
	DuplexLongEdge
	DuplexShortEdge
)

// Orientation selects page orientation.
type Orientation int

const (
	OrientationPortrait Orientation = iota
	OrientationLandscape
)

// ColorMode selects color or monochrome output.
type ColorMode int

const (
	ColorModePrinterDefault ColorMode = iota
	ColorModeColor
	ColorModeMonochrome
)

// Quality is the render resolution in DPI. Any positive value is accepted;
// the constants cover the usual driver-visible steps.
type Quality int

const (
	QualityDraft  Quality = 150
	QualityNormal Quality = 300
	QualityHigh   Quality = 600
)

// PaperSize is a driver paper-size code (DMPAPER_* on Windows). Zero keeps
// the device default.
type PaperSize int

const (
	PaperDefault PaperSize = 0
	PaperLetter  PaperSize = 1
	PaperLegal   PaperSize = 5
	PaperA3      PaperSize = 8
	PaperA4      PaperSize = 9
	PaperA5      PaperSize = 11
	PaperB4      PaperSize = 12
	PaperB5      PaperSize = 13
	PaperTabloid PaperSize = 3
)

// PaperSource is a driver input-bin code (DMBIN_* on Windows). Zero keeps
// the device default.
type PaperSource int

const (
	SourceDefault  PaperSource = 0
	SourceUpper    PaperSource = 1
	SourceLower    PaperSource = 2
	SourceMiddle   PaperSource = 3
	SourceManual   PaperSource = 4
	SourceEnvelope PaperSource = 5
	SourceAuto     PaperSource = 7
	SourceTractor  PaperSource = 8
	SourceLargeFmt PaperSource = 10
	SourceCassette PaperSource = 14
	SourceFormAuto PaperSource = 15
)

// PageRange restricts printing to 1-based pages [From, To] inclusive. A zero
// value means all pages.
type PageRange struct {
	From int
	To   int
}

// IsZero reports whether the range is unset.
func (r PageRange) IsZero() bool { return r.From == 0 && r.To == 0 }

// Options carries the user-selected print configuration for one call. The
// value is never mutated or shared across calls; nil means device defaults
// throughout.
type Options struct {
	// Copies defaults to 1 when zero or negative.
	Copies int

	Duplex      Duplex
	PaperSize   PaperSize
	PaperSource PaperSource
	Orientation Orientation
	ColorMode   ColorMode

	// Quality is the render DPI; zero means QualityNormal.
	Quality Quality

	// Collate orders multi-copy output as full document repeats.
	Collate bool

	// ShowDialog presents the operating system's print dialog before
	// printing, letting the user override device, copies and page range.
	ShowDialog bool

	// Pages restricts the printed page range.
	Pages PageRange

	// DisableCache forces a fresh render per page per copy.
	DisableCache bool
}

// EffectiveCopies returns the sanitized copy count.
func (o *Options) EffectiveCopies() int {
	if o == nil || o.Copies < 1 {
		return 1
	}
	return o.Copies
}

// EffectiveQuality returns the sanitized render DPI.
func (o *Options) EffectiveQuality() Quality {
	if o == nil || o.Quality <= 0 {
		return QualityNormal
	}
	return o.Quality
}

// IsConfigured reports whether any device-configuration field differs from
// the defaults; when false the pipeline omits explicit configuration and the
// device prints with its own defaults.
func (o *Options) IsConfigured() bool {
	if o == nil {
		return false
	}
	return o.Copies > 1 ||
		o.Duplex != DuplexPrinterDefault ||
		o.PaperSize != PaperDefault ||
		o.PaperSource != SourceDefault ||
		o.Orientation != OrientationPortrait ||
		o.ColorMode != ColorModePrinterDefault ||
		o.Collate
}
