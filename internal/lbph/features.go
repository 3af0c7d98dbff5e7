package lbph

import (
	"image"
	"math"
	"math/bits"

	"golang.org/x/image/draw"
)

// samplingPoints is the number of circular neighbours per pixel.
const samplingPoints = 8

// uniformBins is the number of histogram bins per cell: one per uniform
// pattern (at most two 0/1 transitions) plus one shared bin for the rest.
const uniformBins = 59

// lbpEpsilon keeps interpolated neighbours that equal the centre from
// losing their bit to rounding.
const lbpEpsilon = 1e-4

// uniformTable maps an 8-bit LBP code to its histogram bin.
var uniformTable = buildUniformTable()

func buildUniformTable() [256]int {
	var table [256]int
	next := 0
	for code := range 256 {
		rotated := bits.RotateLeft8(uint8(code), 1)
		if bits.OnesCount8(uint8(code)^rotated) <= 2 {
			table[code] = next
			next++
		} else {
			table[code] = uniformBins - 1
		}
	}
	return table
}

// Dims returns the length of the feature vector produced for p.
func (p Params) Dims() int {
	return p.GridX * p.GridY * uniformBins
}

// Extract computes the spatial LBP histogram of img. The image is scaled to
// FaceSize x FaceSize first. The result is L1-normalized and square-rooted,
// so it has unit L2 norm and cosine distance between two vectors is the
// squared Hellinger distance of the underlying histograms.
func Extract(img *image.Gray, p Params) []float32 {
	face := scale(img, p.FaceSize)
	codes, w, h := lbpCodes(face, float64(p.Radius))

	vec := make([]float32, p.Dims())
	if w <= 0 || h <= 0 {
		return vec
	}

	cellW := float64(w) / float64(p.GridX)
	cellH := float64(h) / float64(p.GridY)
	for y := range h {
		cy := min(int(float64(y)/cellH), p.GridY-1)
		for x := range w {
			cx := min(int(float64(x)/cellW), p.GridX-1)
			bin := uniformTable[codes[y*w+x]]
			vec[(cy*p.GridX+cx)*uniformBins+bin]++
		}
	}

	total := float32(w * h)
	for i, v := range vec {
		vec[i] = float32(math.Sqrt(float64(v / total)))
	}
	return vec
}

// scale resizes img to a size x size grayscale image.
func scale(img *image.Gray, size int) *image.Gray {
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size && b.Min == (image.Point{}) {
		return img
	}
	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// lbpCodes computes circular LBP codes with bilinear interpolation for every
// pixel at least radius away from the border. It returns the codes and the
// dimensions of the code grid.
func lbpCodes(img *image.Gray, radius float64) ([]uint8, int, int) {
	b := img.Bounds()
	r := int(math.Ceil(radius))
	w := b.Dx() - 2*r
	h := b.Dy() - 2*r
	if w <= 0 || h <= 0 {
		return nil, 0, 0
	}

	codes := make([]uint8, w*h)
	pix := func(x, y int) float64 {
		return float64(img.Pix[(y-b.Min.Y)*img.Stride+(x-b.Min.X)])
	}

	for n := range samplingPoints {
		angle := 2 * math.Pi * float64(n) / samplingPoints
		dx := radius * math.Cos(angle)
		dy := -radius * math.Sin(angle)

		fx, fy := int(math.Floor(dx)), int(math.Floor(dy))
		cx, cy := int(math.Ceil(dx)), int(math.Ceil(dy))
		tx, ty := dx-float64(fx), dy-float64(fy)
		w1 := (1 - tx) * (1 - ty)
		w2 := tx * (1 - ty)
		w3 := (1 - tx) * ty
		w4 := tx * ty

		for y := range h {
			py := b.Min.Y + y + r
			for x := range w {
				px := b.Min.X + x + r
				sample := w1*pix(px+fx, py+fy) + w2*pix(px+cx, py+fy) +
					w3*pix(px+fx, py+cy) + w4*pix(px+cx, py+cy)
				if sample >= pix(px, py)-lbpEpsilon {
					codes[y*w+x] |= 1 << n
				}
			}
		}
	}
	return codes, w, h
}
