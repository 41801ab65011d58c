package storage

import (
	"context"
	"image"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/pkg/validation"
)

// ImageSource loads an image by locator
type ImageSource interface {
	Load(ctx context.Context, locator string) (image.Image, error)
}

// Router dispatches locators to a source by scheme
type Router struct {
	validator *validation.LocatorValidator
	sources   map[string]ImageSource
}

// NewRouter creates a router that serves plain paths from files
func NewRouter(files ImageSource) *Router {
	r := &Router{
		validator: validation.NewLocatorValidator(),
		sources:   make(map[string]ImageSource),
	}
	r.Handle("file", files)
	return r
}

// Handle registers src for scheme
func (r *Router) Handle(scheme string, src ImageSource) {
	r.sources[scheme] = src
}

// Load validates locator and hands it to the matching source
func (r *Router) Load(ctx context.Context, locator string) (image.Image, error) {
	if err := r.validator.ValidateLocator(locator); err != nil {
		return nil, err
	}

	scheme := validation.Scheme(locator)
	src, ok := r.sources[scheme]
	if !ok {
		return nil, apperrors.NewConfigError("No image source configured for scheme", nil).WithDetails(scheme)
	}
	return src.Load(ctx, locator)
}
