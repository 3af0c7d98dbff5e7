package corpus

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/kozaktomas/face-session/internal/constants"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads an image in any registered format and converts it to grayscale.
func Decode(r io.Reader) (*image.Gray, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ToGray(img), nil
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (*image.Gray, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the corpus listing or the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// ToGray converts img to an *image.Gray anchored at the origin.
func ToGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok && gray.Rect.Min == (image.Point{}) {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// encodeJPEG writes img to w as JPEG.
func encodeJPEG(w io.Writer, img image.Image) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
