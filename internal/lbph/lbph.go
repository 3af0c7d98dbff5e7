// Package lbph implements a local binary patterns histogram face recognizer.
//
// Every training image is reduced to a spatial histogram of uniform LBP codes
// and stored as a node of an HNSW graph. A prediction returns the label of
// the nearest stored histogram, or Unknown when even the nearest one is
// farther than the configured threshold.
package lbph

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"sync"
)

// Unknown is the label Predict returns when no sample is close enough.
const Unknown = -1

var (
	// ErrInvalidParams is returned for parameters that cannot produce features.
	ErrInvalidParams = errors.New("invalid recognizer parameters")

	// ErrLengthMismatch is returned when images and labels differ in length.
	ErrLengthMismatch = errors.New("images and labels differ in length")
)

// Params configures feature extraction and matching.
type Params struct {
	Radius    int     // LBP sampling radius in pixels
	GridX     int     // histogram cells per row
	GridY     int     // histogram cells per column
	FaceSize  int     // images are scaled to FaceSize x FaceSize before extraction
	Threshold float64 // max cosine distance accepted as a match
	Neighbors int     // candidates requested from the index
	EfSearch  int     // HNSW search pool size, 0 keeps the library default
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{
		Radius:    1,
		GridX:     8,
		GridY:     8,
		FaceSize:  100,
		Threshold: 0.3,
		Neighbors: 5,
		EfSearch:  20,
	}
}

// Validate reports whether p can produce a non-empty histogram for every cell.
func (p Params) Validate() error {
	if p.Radius <= 0 || p.GridX <= 0 || p.GridY <= 0 || p.Neighbors <= 0 {
		return fmt.Errorf("%w: radius, grid and neighbors must be positive", ErrInvalidParams)
	}
	if p.Threshold <= 0 || math.IsNaN(p.Threshold) {
		return fmt.Errorf("%w: threshold must be positive", ErrInvalidParams)
	}
	if inner := p.FaceSize - 2*p.Radius; inner < max(p.GridX, p.GridY) {
		return fmt.Errorf("%w: face size %d too small for radius %d and grid %dx%d",
			ErrInvalidParams, p.FaceSize, p.Radius, p.GridX, p.GridY)
	}
	return nil
}

// featureParams are the parameters a stored model depends on.
func (p Params) featureParams() [4]int {
	return [4]int{p.Radius, p.GridX, p.GridY, p.FaceSize}
}

// Recognizer is an LBPH face recognizer.
type Recognizer struct {
	params    Params
	index     *sampleIndex
	labelInfo map[int]string
	mu        sync.RWMutex // guards labelInfo
}

// New creates an untrained recognizer.
func New(p Params) (*Recognizer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Recognizer{
		params:    p,
		index:     newSampleIndex(p.EfSearch),
		labelInfo: make(map[int]string),
	}, nil
}

// Params returns the recognizer parameters.
func (r *Recognizer) Params() Params {
	return r.params
}

// extractAll computes the features of every image.
func (r *Recognizer) extractAll(images []*image.Gray, labels []int) ([][]float32, error) {
	if len(images) != len(labels) {
		return nil, fmt.Errorf("%w: %d images, %d labels", ErrLengthMismatch, len(images), len(labels))
	}
	vecs := make([][]float32, len(images))
	for i, img := range images {
		if img == nil || img.Bounds().Empty() {
			return nil, fmt.Errorf("image %d is empty", i)
		}
		if labels[i] < 0 {
			return nil, fmt.Errorf("image %d has negative label %d", i, labels[i])
		}
		vecs[i] = Extract(img, r.params)
	}
	return vecs, nil
}

// Train replaces every learned sample with the given batch. Label info is
// kept. An empty batch leaves the recognizer with no samples.
func (r *Recognizer) Train(images []*image.Gray, labels []int) error {
	vecs, err := r.extractAll(images, labels)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}
	r.index.reset()
	r.index.add(vecs, labels)
	return nil
}

// Update adds samples without touching those already learned.
func (r *Recognizer) Update(images []*image.Gray, labels []int) error {
	vecs, err := r.extractAll(images, labels)
	if err != nil {
		return fmt.Errorf("updating: %w", err)
	}
	r.index.add(vecs, labels)
	return nil
}

// Prediction is the outcome of a match against the learned samples.
type Prediction struct {
	Label    int     // Unknown when Distance exceeds the threshold
	Distance float64 // cosine distance to the nearest sample
}

// PredictDistance matches img and also returns the distance of the nearest
// sample. With no samples learned the label is Unknown.
func (r *Recognizer) PredictDistance(img *image.Gray) (Prediction, error) {
	if img == nil || img.Bounds().Empty() {
		return Prediction{Label: Unknown}, errors.New("cannot predict an empty image")
	}

	label, dist, err := r.index.nearest(Extract(img, r.params), r.params.Neighbors, r.params.Threshold)
	if errors.Is(err, errEmptyIndex) {
		return Prediction{Label: Unknown, Distance: math.Inf(1)}, nil
	}
	if err != nil {
		return Prediction{Label: Unknown}, err
	}
	if dist > r.params.Threshold {
		return Prediction{Label: Unknown, Distance: dist}, nil
	}
	return Prediction{Label: label, Distance: dist}, nil
}

// Predict returns the label of the nearest sample, or Unknown.
func (r *Recognizer) Predict(img *image.Gray) (int, error) {
	p, err := r.PredictDistance(img)
	return p.Label, err
}

// SetLabelInfo associates a string with label, replacing any previous one.
func (r *Recognizer) SetLabelInfo(label int, info string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labelInfo[label] = info
}

// LabelInfo returns the string associated with label, or "".
func (r *Recognizer) LabelInfo(label int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.labelInfo[label]
}

// GetLabelsByString returns, in ascending order, every label whose info
// equals info exactly.
func (r *Recognizer) GetLabelsByString(info string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var labels []int
	for label, s := range r.labelInfo {
		if s == info {
			labels = append(labels, label)
		}
	}
	sort.Ints(labels)
	return labels
}

// Labels returns, in ascending order, every label that has label info.
func (r *Recognizer) Labels() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	labels := make([]int, 0, len(r.labelInfo))
	for label := range r.labelInfo {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	return labels
}

// SampleCount returns the number of learned samples.
func (r *Recognizer) SampleCount() int {
	return r.index.count()
}

// SamplesPerLabel returns the number of learned samples per label.
func (r *Recognizer) SamplesPerLabel() map[int]int {
	return r.index.countByLabel()
}
