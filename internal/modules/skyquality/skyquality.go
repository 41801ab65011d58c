// Package skyquality estimates sky brightness from the current frame.
package skyquality

import (
	"context"
	"image"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/allsky-modules-go/internal/config"
	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/internal/plugin"
	"github.com/anime-shed/allsky-modules-go/internal/sqm"
	"github.com/anime-shed/allsky-modules-go/internal/storage"
	"github.com/anime-shed/allsky-modules-go/pkg/models"
	"github.com/anime-shed/allsky-modules-go/pkg/validation"
)

const ModuleName = "allsky_sqm"

// Params are the module arguments after parsing
type Params struct {
	Mask     string `param:"mask"`
	ROI      string `param:"roi"`
	Debug    bool   `param:"debug"`
	Fallback int    `param:"fallback" validate:"min=1,max=100"`
}

// Module measures the mean luminance of a sky region
type Module struct {
	cfg       *config.Config
	images    storage.ImageSource
	estimator *sqm.Estimator
	log       logrus.FieldLogger
}

// New creates the module. Images and masks are both loaded through images.
func New(cfg *config.Config, images storage.ImageSource, estimator *sqm.Estimator, log logrus.FieldLogger) *Module {
	return &Module{
		cfg:       cfg,
		images:    images,
		estimator: estimator.WithModule(ModuleName),
		log:       log,
	}
}

func (m *Module) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:         "Sky Quality",
		Description:  "Calculates sky quality",
		Module:       ModuleName,
		Events:       []plugin.Event{plugin.EventDay, plugin.EventNight},
		Experimental: true,
		Arguments: map[string]any{
			"mask":     "",
			"roi":      "",
			"debug":    "false",
			"fallback": 5,
		},
		ArgumentDetails: map[string]plugin.ArgumentDetail{
			"mask": {
				Description: "Mask Path",
				Help:        "The name of the image mask. This mask is applied prior to calculating the sky quality",
				Type:        plugin.ImageField(),
			},
			"roi": {
				Required:    true,
				Description: "Region of Interest",
				Help:        "The area of the image to calculate the sky quality from",
				Type:        plugin.ImageField(),
			},
			"fallback": {
				Required:    true,
				Description: "Fallback %",
				Help:        "If no ROI is set then this % of the image, from the center will be used",
				Type:        plugin.Spinner(1, 100, 1),
			},
			"debug": {
				Description: "Enable debug mode",
				Help:        "If selected each stage of the detection will generate images in the allsky tmp debug folder",
				Type:        plugin.Checkbox(),
			},
		},
	}
}

// ParseParams reads and validates the module arguments
func ParseParams(p plugin.Params) (Params, error) {
	fallback, err := p.Int("fallback")
	if err != nil {
		return Params{}, apperrors.NewValidationError("Invalid module parameters", err)
	}
	params := Params{
		Mask:     p.String("mask"),
		ROI:      p.String("roi"),
		Debug:    p.Bool("debug"),
		Fallback: fallback,
	}
	if err := validation.ValidateParams(params); err != nil {
		return Params{}, err
	}
	return params, nil
}

func (m *Module) Run(ctx context.Context, inv plugin.Invocation) (models.ModuleResult, error) {
	params, err := ParseParams(inv.Params.WithDefaults(m.Metadata().Arguments))
	if err != nil {
		return models.ModuleResult{}, err
	}

	locator := inv.ImageLocator
	if locator == "" {
		locator = m.cfg.CurrentImage
	}
	img, err := m.images.Load(ctx, locator)
	if err != nil {
		return models.ModuleResult{}, err
	}

	var mask *image.Gray
	if params.Mask != "" {
		mask, err = m.loadMask(ctx, params.Mask)
		if err != nil {
			return models.ModuleResult{}, err
		}
	}

	opts := sqm.DefaultOptions().
		WithROI(params.ROI).
		WithFallback(params.Fallback).
		WithBinning(m.cfg.Binning).
		WithDebug(params.Debug)

	measurement, err := m.estimator.Estimate(img, mask, opts)
	if err != nil {
		return models.ModuleResult{}, err
	}

	value := measurement.Value
	return models.ModuleResult{
		Message: measurement.String(),
		Value:   &value,
	}, nil
}

func (m *Module) loadMask(ctx context.Context, name string) (*image.Gray, error) {
	if m.cfg.AllskyHome == "" {
		return nil, apperrors.NewConfigError("Cannot find ALLSKY_HOME Environment variable", nil)
	}
	path := filepath.Join(m.cfg.OverlayImagesDir(), name)

	img, err := m.images.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	mask, err := sqm.ToMask(img)
	if err != nil {
		return nil, apperrors.NewDecodeError("Failed to convert mask", err).WithDetails(path)
	}
	m.log.WithField("mask", path).Debug("Loaded SQM mask")
	return mask, nil
}

// Cleanup has nothing to remove; debug images are kept for inspection.
func (m *Module) Cleanup(ctx context.Context) error {
	return nil
}
