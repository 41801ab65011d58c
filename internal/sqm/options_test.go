package sqm

import "testing"

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.FallbackPercent != 5 {
		t.Errorf("Expected fallback 5, got %d", opts.FallbackPercent)
	}
	if opts.Binning != 1 {
		t.Errorf("Expected binning 1, got %d", opts.Binning)
	}
	if opts.ROI != "" || opts.Debug {
		t.Error("Expected no ROI and debug off")
	}
	if err := opts.validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestOptionsBuilders(t *testing.T) {
	base := DefaultOptions()
	opts := base.WithROI("1,2,3,4").WithFallback(20).WithBinning(3).WithDebug(true)

	if opts.ROI != "1,2,3,4" || opts.FallbackPercent != 20 || opts.Binning != 3 || !opts.Debug {
		t.Errorf("Unexpected options %+v", opts)
	}
	if base.ROI != "" {
		t.Error("Expected builders to leave the receiver untouched")
	}
}

func TestOptionsBinning(t *testing.T) {
	for _, b := range []int{-2, 0, 1} {
		if got := DefaultOptions().WithBinning(b).binning(); got != 1 {
			t.Errorf("binning(%d) = %d, want 1", b, got)
		}
	}
	if got := DefaultOptions().WithBinning(4).binning(); got != 4 {
		t.Errorf("Expected 4, got %d", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		percent int
		valid   bool
	}{
		{0, false},
		{1, true},
		{50, true},
		{100, true},
		{101, false},
		{-5, false},
	}
	for _, tt := range tests {
		err := DefaultOptions().WithFallback(tt.percent).validate()
		if (err == nil) != tt.valid {
			t.Errorf("percent %d: valid=%v, err=%v", tt.percent, tt.valid, err)
		}
	}
}
