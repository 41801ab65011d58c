package sqm

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// ROIStatus tags the outcome of parsing a region specification.
type ROIStatus int

const (
	ROIParsed ROIStatus = iota
	ROINotSet
	ROIInvalid
)

func (s ROIStatus) String() string {
	switch s {
	case ROIParsed:
		return "parsed"
	case ROINotSet:
		return "not_set"
	case ROIInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// RegionSource tells which path produced the measured rectangle.
type RegionSource string

const (
	RegionExplicit RegionSource = "explicit"
	RegionFallback RegionSource = "fallback"
)

var errROIFieldCount = errors.New("expected four comma separated integers")

// ParsedROI is the tagged result of ParseROI. Rect is only meaningful when
// Status is ROIParsed; Err is only set when Status is ROIInvalid.
type ParsedROI struct {
	Status ROIStatus
	Rect   image.Rectangle
	Err    error
}

// ParseROI reads "x1,y1,x2,y2" and maps it into the binned image by integer
// division. It does not check the rectangle against any image.
func ParseROI(spec string, binning int) ParsedROI {
	if spec == "" {
		return ParsedROI{Status: ROINotSet}
	}
	if binning < 1 {
		binning = 1
	}

	fields := strings.Split(spec, ",")
	if len(fields) != 4 {
		return ParsedROI{Status: ROIInvalid, Err: fmt.Errorf("%w: got %d fields", errROIFieldCount, len(fields))}
	}

	var coords [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return ParsedROI{Status: ROIInvalid, Err: fmt.Errorf("field %d: %w", i+1, err)}
		}
		// Go integer division truncates toward zero.
		coords[i] = n / binning
	}

	// image.Rect would silently swap inverted corners; keep them as given.
	return ParsedROI{
		Status: ROIParsed,
		Rect: image.Rectangle{
			Min: image.Point{X: coords[0], Y: coords[1]},
			Max: image.Point{X: coords[2], Y: coords[3]},
		},
	}
}

// FormatROI renders r in the "x1,y1,x2,y2" form accepted by ParseROI.
func FormatROI(r image.Rectangle) string {
	return fmt.Sprintf("%d,%d,%d,%d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// FallbackRect is the centered rectangle keeping percent% of width and height.
func FallbackRect(width, height, percent int) image.Rectangle {
	w, h := float64(width), float64(height)
	p := float64(percent)
	halfW := w * p / 200
	halfH := h * p / 200

	return image.Rectangle{
		Min: image.Point{X: int(w/2 - halfW), Y: int(h/2 - halfH)},
		Max: image.Point{X: int(w/2 + halfW), Y: int(h/2 + halfH)},
	}
}

// ResolveROI picks the rectangle to measure within an image of the given size.
// Explicit rectangles that break 0 <= x1 < x2 <= W or 0 <= y1 < y2 <= H are
// downgraded to ROIInvalid and replaced by the fallback rectangle.
func ResolveROI(spec string, binning, fallbackPercent, width, height int) (image.Rectangle, ParsedROI) {
	parsed := ParseROI(spec, binning)
	if parsed.Status == ROIParsed {
		r := parsed.Rect
		if r.Min.X >= 0 && r.Min.X < r.Max.X && r.Max.X <= width &&
			r.Min.Y >= 0 && r.Min.Y < r.Max.Y && r.Max.Y <= height {
			return r, parsed
		}
		parsed = ParsedROI{
			Status: ROIInvalid,
			Err:    fmt.Errorf("rectangle %v outside %dx%d image", r, width, height),
		}
	}
	return FallbackRect(width, height, fallbackPercent), parsed
}
