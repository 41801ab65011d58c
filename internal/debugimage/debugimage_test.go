package debugimage

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestWriteDebugImage(t *testing.T) {
	root := filepath.Join(t.TempDir(), "debug")
	w := NewWriter(root)

	gray := image.NewGray(image.Rect(0, 0, 4, 3))
	gray.Pix[0] = 200

	if err := w.WriteDebugImage("allsky_sqm", "cropped-image.png", gray); err != nil {
		t.Fatalf("WriteDebugImage failed: %v", err)
	}

	path := w.Path("allsky_sqm", "cropped-image.png")
	if path != filepath.Join(root, "allsky_sqm", "cropped-image.png") {
		t.Errorf("Unexpected path %s", path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("Expected readable png, got %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("Unexpected bounds %v", img.Bounds())
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 200 {
		t.Errorf("Expected pixel value 200, got %d", r>>8)
	}
}

func TestWriteDebugImage_Invalid(t *testing.T) {
	w := NewWriter(t.TempDir())
	img := image.NewGray(image.Rect(0, 0, 1, 1))

	tests := []struct{ module, filename string }{
		{"", "a.png"},
		{"allsky_sqm", ""},
		{"allsky_sqm", "../a.png"},
		{"allsky_sqm", "a.unknown"},
	}
	for _, tt := range tests {
		if err := w.WriteDebugImage(tt.module, tt.filename, img); err == nil {
			t.Errorf("Expected error for %q/%q", tt.module, tt.filename)
		}
	}
}
