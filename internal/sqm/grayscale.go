package sqm

import (
	"image"
	"image/draw"
)

// BGR to gray weights in 14-bit fixed point, as used by OpenCV for 8-bit input.
const (
	grayShift = 14
	rWeight   = 4899
	gWeight   = 9617
	bWeight   = 1868
	grayRound = 1 << (grayShift - 1)
)

func luminance(r, g, b uint8) uint8 {
	return uint8((uint32(r)*rWeight + uint32(g)*gWeight + uint32(b)*bWeight + grayRound) >> grayShift)
}

// singleChannel returns img as a zero-origin *image.Gray when it already has
// one channel, without converting color.
func singleChannel(img image.Image) (*image.Gray, bool) {
	switch src := img.(type) {
	case *image.Gray:
		if src.Rect.Min == (image.Point{}) {
			return src, true
		}
		out := image.NewGray(image.Rect(0, 0, src.Rect.Dx(), src.Rect.Dy()))
		draw.Draw(out, out.Rect, src, src.Rect.Min, draw.Src)
		return out, true
	case *image.Gray16:
		b := src.Bounds()
		out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				out.Pix[y*out.Stride+x] = uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return out, true
	}
	return nil, false
}

// ToMask reduces a decoded mask image to one channel with the same weighting
// as the luminance conversion.
func ToMask(img image.Image) (*image.Gray, error) {
	return grayscale(img)
}

// sameSize reports whether two images have identical width and height.
func sameSize(a, b image.Image) bool {
	return a.Bounds().Dx() == b.Bounds().Dx() && a.Bounds().Dy() == b.Bounds().Dy()
}

// crop copies r out of gray so later writes to either image stay independent.
func crop(gray *image.Gray, r image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		srcOff := (r.Min.Y+y)*gray.Stride + r.Min.X
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()], gray.Pix[srcOff:srcOff+r.Dx()])
	}
	return out
}
