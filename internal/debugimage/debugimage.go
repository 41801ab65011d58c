package debugimage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Writer stores debug images as $ALLSKY_TMP/debug/<module>/<filename>
type Writer struct {
	root string
}

// NewWriter creates a writer rooted at the debug directory
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Path returns where a module's debug image is stored
func (w *Writer) Path(module, filename string) string {
	return filepath.Join(w.root, module, filename)
}

// WriteDebugImage encodes img in the format implied by filename's extension
func (w *Writer) WriteDebugImage(module, filename string, img image.Image) error {
	if module == "" || filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid debug image target %q/%q", module, filename)
	}

	dir := filepath.Join(w.root, module)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create debug directory: %w", err)
	}
	if err := imaging.Save(img, filepath.Join(dir, filename)); err != nil {
		return fmt.Errorf("failed to save debug image: %w", err)
	}
	return nil
}
