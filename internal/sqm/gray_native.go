//go:build !opencv

package sqm

import "image"

// grayscale converts img to a zero-origin 8-bit luminance image.
func grayscale(img image.Image) (*image.Gray, error) {
	if g, ok := singleChannel(img); ok {
		return g, nil
	}

	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.RGBA:
		packedRGB(out, src.Pix, src.Stride)
	case *image.NRGBA:
		// Alpha is dropped, not multiplied in, matching a decoder that loads 3 channels.
		packedRGB(out, src.Pix, src.Stride)
	default:
		for y := 0; y < b.Dy(); y++ {
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < b.Dx(); x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				dst[x] = luminance(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			}
		}
	}
	return out, nil
}

func packedRGB(out *image.Gray, pix []uint8, stride int) {
	w := out.Rect.Dx()
	for y := 0; y < out.Rect.Dy(); y++ {
		row := pix[y*stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = luminance(row[x*4], row[x*4+1], row[x*4+2])
		}
	}
}

// bitwiseAnd returns src AND mask; both must be zero-origin and equally sized.
func bitwiseAnd(src, mask *image.Gray) (*image.Gray, error) {
	out := image.NewGray(src.Rect)
	for y := 0; y < src.Rect.Dy(); y++ {
		s := src.Pix[y*src.Stride : y*src.Stride+src.Rect.Dx()]
		m := mask.Pix[y*mask.Stride : y*mask.Stride+mask.Rect.Dx()]
		d := out.Pix[y*out.Stride:]
		for x := range s {
			d[x] = s[x] & m[x]
		}
	}
	return out, nil
}
