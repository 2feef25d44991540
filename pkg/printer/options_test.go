package printer

import "testing"

func TestEffectiveCopies(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		want int
	}{
		{"nil options", nil, 1},
		{"zero", &Options{}, 1},
		{"negative", &Options{Copies: -3}, 1},
		{"explicit", &Options{Copies: 4}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.EffectiveCopies(); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEffectiveQuality(t *testing.T) {
	var nilOpts *Options
	if got := nilOpts.EffectiveQuality(); got != QualityNormal {
		t.Errorf("nil options: got %d", got)
	}
	if got := (&Options{}).EffectiveQuality(); got != QualityNormal {
		t.Errorf("zero: got %d", got)
	}
	if got := (&Options{Quality: 720}).EffectiveQuality(); got != 720 {
		t.Errorf("custom: got %d", got)
	}
}

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		want bool
	}{
		{"nil", nil, false},
		{"zero value", &Options{}, false},
		{"one copy", &Options{Copies: 1}, false},
		{"two copies", &Options{Copies: 2}, true},
		{"duplex", &Options{Duplex: DuplexLongEdge}, true},
		{"paper", &Options{PaperSize: PaperA4}, true},
		{"tray", &Options{PaperSource: SourceManual}, true},
		{"landscape", &Options{Orientation: OrientationLandscape}, true},
		{"color", &Options{ColorMode: ColorModeMonochrome}, true},
		{"collate", &Options{Collate: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.IsConfigured(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPageRangeIsZero(t *testing.T) {
	if !(PageRange{}).IsZero() {
		t.Error("zero range should be zero")
	}
	if (PageRange{From: 1, To: 2}).IsZero() {
		t.Error("set range should not be zero")
	}
}
