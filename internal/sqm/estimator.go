package sqm

import (
	"image"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
)

// Fixed debug image names understood by the host's debug viewer.
const (
	DebugMaskImage    = "image-mask.png"
	DebugGrayImage    = "grayscale-image.png"
	DebugMaskedImage  = "masked-image.png"
	DebugCroppedImage = "cropped-image.png"
)

// DebugSink persists intermediate images for inspection
type DebugSink interface {
	WriteDebugImage(module, filename string, img image.Image) error
}

// Measurement is the outcome of one estimate
type Measurement struct {
	Value  float64
	Region image.Rectangle
	Source RegionSource
	Masked bool
}

func (m Measurement) String() string {
	return "Sky SQM is " + FormatValue(m.Value)
}

// Estimator computes the mean luminance of a sky region
type Estimator struct {
	log    logrus.FieldLogger
	sink   DebugSink
	module string
}

// NewEstimator creates an estimator. sink may be nil.
func NewEstimator(log logrus.FieldLogger, sink DebugSink) *Estimator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Estimator{log: log, sink: sink, module: DefaultModule}
}

// WithModule returns a copy writing debug images under another module id
func (e *Estimator) WithModule(module string) *Estimator {
	cp := *e
	cp.module = module
	return &cp
}

// Estimate normalizes img to luminance, applies mask when it matches the
// image size, resolves the region and returns its mean.
func (e *Estimator) Estimate(img image.Image, mask *image.Gray, opts Options) (Measurement, error) {
	if img == nil {
		return Measurement{}, apperrors.NewValidationError("no image supplied", nil)
	}
	if err := opts.validate(); err != nil {
		return Measurement{}, apperrors.NewValidationError("invalid fallback percentage", err)
	}

	if mask != nil {
		e.debugImage(opts, DebugMaskImage, mask)
	}

	gray, err := grayscale(img)
	if err != nil {
		return Measurement{}, apperrors.NewInternalError("failed to convert image to grayscale", err)
	}
	e.debugImage(opts, DebugGrayImage, gray)

	masked := false
	if mask != nil {
		m, _ := singleChannel(mask)
		if !sameSize(gray, m) {
			e.log.WithFields(logrus.Fields{
				"image_size": gray.Rect.Size().String(),
				"mask_size":  m.Rect.Size().String(),
			}).Error("Source image and mask dimensions do not match")
		} else {
			gray, err = bitwiseAnd(gray, m)
			if err != nil {
				return Measurement{}, apperrors.NewInternalError("failed to apply mask", err)
			}
			masked = true
			e.debugImage(opts, DebugMaskedImage, gray)
		}
	}

	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	rect, parsed := ResolveROI(opts.ROI, opts.binning(), opts.FallbackPercent, width, height)
	source := RegionExplicit
	switch parsed.Status {
	case ROIInvalid:
		source = RegionFallback
		e.log.WithError(parsed.Err).WithField("roi", opts.ROI).
			Errorf("SQM ROI is invalid, falling back to %d%% of image", opts.FallbackPercent)
	case ROINotSet:
		source = RegionFallback
		e.log.Infof("SQM ROI not set, falling back to %d%% of image", opts.FallbackPercent)
	}

	if rect.Empty() {
		return Measurement{}, apperrors.NewValidationError("region of interest is empty", nil).
			WithDetails(rect.String())
	}

	cropped := crop(gray, rect)
	e.debugImage(opts, DebugCroppedImage, cropped)

	value := mean(cropped)
	e.log.Infof("SQM Mean calculated as %s", FormatValue(value))

	return Measurement{Value: value, Region: rect, Source: source, Masked: masked}, nil
}

func (e *Estimator) debugImage(opts Options, filename string, img image.Image) {
	if !opts.Debug || e.sink == nil {
		return
	}
	if err := e.sink.WriteDebugImage(e.module, filename, img); err != nil {
		e.log.WithError(err).WithField("file", filename).Debug("Failed to write debug image")
	}
}

func mean(gray *image.Gray) float64 {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	values := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		for _, v := range gray.Pix[y*gray.Stride : y*gray.Stride+w] {
			values = append(values, float64(v))
		}
	}
	return stat.Mean(values, nil)
}

// FormatValue prints v in its shortest form, always with a decimal point.
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
