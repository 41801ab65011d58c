package sqm

import "fmt"

// DefaultModule is the debug folder the estimator writes into when no module id is given.
const DefaultModule = "allsky_sqm"

// Options selects the region and behaviour of one estimate
type Options struct {
	// ROI is "x1,y1,x2,y2" in un-binned pixel coordinates, or empty.
	ROI string

	// FallbackPercent is the share of width and height kept around the
	// image center when ROI is empty or invalid. Must be in 1..100.
	FallbackPercent int

	// Binning divides explicit ROI coordinates. Values below 1 mean 1.
	Binning int

	// Debug emits intermediate images to the debug sink.
	Debug bool
}

// DefaultOptions mirrors the module's argument defaults
func DefaultOptions() Options {
	return Options{
		FallbackPercent: 5,
		Binning:         1,
	}
}

// WithROI returns options using an explicit region
func (o Options) WithROI(roi string) Options {
	o.ROI = roi
	return o
}

// WithFallback returns options using a different fallback percentage
func (o Options) WithFallback(percent int) Options {
	o.FallbackPercent = percent
	return o
}

// WithBinning returns options for an image captured with the given bin factor
func (o Options) WithBinning(binning int) Options {
	o.Binning = binning
	return o
}

// WithDebug toggles debug image emission
func (o Options) WithDebug(debug bool) Options {
	o.Debug = debug
	return o
}

func (o Options) binning() int {
	if o.Binning < 1 {
		return 1
	}
	return o.Binning
}

func (o Options) validate() error {
	if o.FallbackPercent < 1 || o.FallbackPercent > 100 {
		return fmt.Errorf("fallback percent must be in 1..100, got %d", o.FallbackPercent)
	}
	return nil
}
