package storage

import (
	"context"
	"errors"
	"image"
	"io/fs"
	"strings"

	"github.com/disintegration/imaging"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
)

// FileSource loads images from the local filesystem
type FileSource struct{}

// NewFileSource creates a file source
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Load opens path, which may carry a file:// prefix. EXIF orientation is
// not applied so pixel coordinates match the sensor.
func (s *FileSource) Load(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = strings.TrimPrefix(path, "file://")

	img, err := imaging.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewNotFoundError("Image file not found", err).WithDetails(path)
	}
	if err != nil {
		return nil, apperrors.NewDecodeError("Failed to load image", err).WithDetails(path)
	}
	return img, nil
}
