package lbph

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// modelVersion is bumped whenever the artifact layout changes.
const modelVersion = 1

// ErrIncompatibleModel is returned by Load when the artifact was produced
// with different feature parameters or an unknown format version.
var ErrIncompatibleModel = errors.New("incompatible model artifact")

// artifact is the gob-encoded content of a model file.
type artifact struct {
	Version   int
	SavedAt   time.Time
	Features  [4]int // radius, grid x, grid y, face size
	LabelInfo map[int]string
	Samples   map[int64]int // sample id -> label
	NextID    int64
	Graph     []byte // exported HNSW graph, nil when there are no samples
}

// Save writes the full recognizer state to path. The file is written to a
// temporary sibling first and renamed into place.
func (r *Recognizer) Save(path string) error {
	graph, err := r.index.export()
	if err != nil {
		return err
	}
	samples, nextID := r.index.snapshot()

	r.mu.RLock()
	labelInfo := make(map[int]string, len(r.labelInfo))
	for label, info := range r.labelInfo {
		labelInfo[label] = info
	}
	r.mu.RUnlock()

	a := artifact{
		Version:   modelVersion,
		SavedAt:   time.Now().UTC(),
		Features:  r.params.featureParams(),
		LabelInfo: labelInfo,
		Samples:   samples,
		NextID:    nextID,
		Graph:     graph,
	}

	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.New().String()+".tmp")
	f, err := os.Create(tmpPath) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(&a); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move model into place: %w", err)
	}
	return nil
}

// Load replaces the recognizer state with the artifact at path. Matching
// parameters (threshold, neighbors, ef search) keep their current values.
func (r *Recognizer) Load(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	var a artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}

	if a.Version != modelVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrIncompatibleModel, a.Version, modelVersion)
	}
	if a.Features != r.params.featureParams() {
		return fmt.Errorf("%w: saved with radius/grid/size %v, configured %v",
			ErrIncompatibleModel, a.Features, r.params.featureParams())
	}

	if a.Samples == nil {
		a.Samples = make(map[int64]int)
	}
	if err := r.index.restore(a.Graph, a.Samples, a.NextID); err != nil {
		return err
	}

	if a.LabelInfo == nil {
		a.LabelInfo = make(map[int]string)
	}
	r.mu.Lock()
	r.labelInfo = a.LabelInfo
	r.mu.Unlock()
	return nil
}
