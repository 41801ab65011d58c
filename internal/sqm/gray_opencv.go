//go:build opencv

package sqm

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// grayscale converts img through OpenCV's own BGR to gray conversion.
func grayscale(img image.Image) (*image.Gray, error) {
	if g, ok := singleChannel(img); ok {
		return g, nil
	}

	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	return matToGray(gray)
}

func bitwiseAnd(src, mask *image.Gray) (*image.Gray, error) {
	srcMat, err := gocv.ImageGrayToMatGray(src)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer srcMat.Close()

	maskMat, err := gocv.ImageGrayToMatGray(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to convert mask to mat: %w", err)
	}
	defer maskMat.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.BitwiseAnd(srcMat, maskMat, &dst)

	return matToGray(dst)
}

func matToGray(m gocv.Mat) (*image.Gray, error) {
	if m.Empty() {
		return nil, fmt.Errorf("opencv returned an empty mat")
	}
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert mat to image: %w", err)
	}
	g, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("expected single channel mat, got %T", img)
	}
	return g, nil
}
