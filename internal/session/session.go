// Package session runs the face identification lifecycle: bootstrap or
// resume a recognizer, recognize faces, learn unknown ones and persist the
// model on shutdown.
//
// A Session is single-threaded. Callers that share one across goroutines
// must serialize access themselves.
package session

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-session/internal/corpus"
	"github.com/kozaktomas/face-session/internal/registry"
	"golang.org/x/text/unicode/norm"
)

// Classifier is the face recognizer the session drives.
type Classifier interface {
	// Train replaces everything learned with the given batch.
	Train(images []*image.Gray, labels []int) error
	// Update adds samples without discarding previous ones.
	Update(images []*image.Gray, labels []int) error
	// Predict returns the label of the best match, or a negative label when
	// nothing matches confidently.
	Predict(img *image.Gray) (int, error)
	SetLabelInfo(label int, info string)
	LabelInfo(label int) string
	// Labels returns every label that has label info.
	Labels() []int
	GetLabelsByString(info string) []int
	Load(path string) error
	Save(path string) error
}

// NamePrompter asks the operator for the name of an unrecognized face.
type NamePrompter interface {
	PromptName() (string, error)
}

// ProgressFunc is called after each identity is loaded during bootstrap.
type ProgressFunc func(name string, done, total int)

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current state.
	ErrInvalidState = errors.New("operation not allowed in current session state")

	// ErrModelLoad and ErrModelSave wrap artifact failures. Both are fatal.
	ErrModelLoad = errors.New("failed to load model")
	ErrModelSave = errors.New("failed to save model")

	// ErrTraining wraps a failed bootstrap training run.
	ErrTraining = errors.New("failed to train model")
)

// Options configures a session.
type Options struct {
	ModelPath string       // model artifact location
	NoSave    bool         // skip persisting the model in Finalize
	Logger    *log.Logger  // warnings; defaults to the standard logger
	Progress  ProgressFunc // optional bootstrap progress callback
}

// Session owns the identity registry and keeps it consistent with the
// classifier and the corpus.
type Session struct {
	classifier Classifier
	corpus     *corpus.Store
	registry   *registry.Registry
	opts       Options
	logger     *log.Logger
	state      State
	mode       State // Bootstrapped or Resumed once started
	names      []string            // NFC identity names
	dirs       map[string][]string // NFC name to corpus directory names
}

// New creates a session. Call Start before recognizing anything.
func New(classifier Classifier, store *corpus.Store, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		classifier: classifier,
		corpus:     store,
		registry:   registry.New(),
		opts:       opts,
		logger:     logger,
		state:      Uninitialized,
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Mode returns Bootstrapped or Resumed after Start, Uninitialized before.
func (s *Session) Mode() State {
	return s.mode
}

// Identities returns the registered identities ordered by label.
func (s *Session) Identities() []registry.Identity {
	return s.registry.Identities()
}

// HighestLabel returns the largest label assigned so far.
func (s *Session) HighestLabel() int {
	return s.registry.HighestLabel()
}

// LookupLabel returns the label registered for name.
func (s *Session) LookupLabel(name string) (int, bool) {
	return s.registry.LookupLabel(name)
}

// LookupName returns the name registered for label.
func (s *Session) LookupName(label int) (string, bool) {
	return s.registry.LookupName(label)
}

// ModelExists reports whether a model artifact is present at path.
func ModelExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check model file: %w", err)
}

// Reset removes the model artifact so the next Start bootstraps. A missing
// artifact is not an error.
func Reset(modelPath string) error {
	if err := os.Remove(modelPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove model file: %w", err)
	}
	return nil
}

// Start bootstraps or resumes the classifier and builds the registry. Every
// error it returns is fatal for the session.
func (s *Session) Start() error {
	if s.state != Uninitialized {
		return fmt.Errorf("%w: start in %s", ErrInvalidState, s.state)
	}

	if err := s.listIdentities(); err != nil {
		return err
	}

	exists, err := ModelExists(s.opts.ModelPath)
	if err != nil {
		return err
	}
	if exists {
		err = s.resume()
	} else {
		err = s.bootstrap()
	}
	if err != nil {
		return err
	}

	if _, err := s.registry.Populate(s.names, dirResolver{s}); err != nil {
		return fmt.Errorf("building identity registry: %w", err)
	}
	// Labels of identities whose directory was removed stay in the model
	// and must not be handed out again.
	for _, label := range s.classifier.Labels() {
		s.registry.Reserve(label)
	}

	s.state = Ready
	return nil
}

// listIdentities reads the corpus directories and groups them by NFC name,
// so a directory created under another normalization form is the same
// identity as the typed name.
func (s *Session) listIdentities() error {
	dirs, err := s.corpus.Identities()
	if err != nil {
		return err
	}
	s.names = s.names[:0]
	s.dirs = make(map[string][]string, len(dirs))
	for _, dir := range dirs {
		name := norm.NFC.String(dir)
		if _, ok := s.dirs[name]; !ok {
			s.names = append(s.names, name)
		}
		s.dirs[name] = append(s.dirs[name], dir)
	}
	return nil
}

// corpusDir returns the directory images of name are stored in: the first
// existing directory of the identity, or name itself.
func (s *Session) corpusDir(name string) string {
	if dirs := s.dirs[name]; len(dirs) > 0 {
		return dirs[0]
	}
	return name
}

// dirResolver looks labels up by NFC name, then by the raw directory names
// a model may have been saved with.
type dirResolver struct {
	s *Session
}

func (d dirResolver) GetLabelsByString(name string) []int {
	if labels := d.s.classifier.GetLabelsByString(name); len(labels) > 0 {
		return labels
	}
	for _, dir := range d.s.dirs[name] {
		if labels := d.s.classifier.GetLabelsByString(dir); len(labels) > 0 {
			return labels
		}
	}
	return nil
}

// resume restores the classifier from the model artifact.
func (s *Session) resume() error {
	if err := s.classifier.Load(s.opts.ModelPath); err != nil {
		return fmt.Errorf("%w from %s: %w", ErrModelLoad, s.opts.ModelPath, err)
	}
	s.state = Resumed
	s.mode = Resumed
	return nil
}

// bootstrap trains the classifier on the whole corpus. Identity i gets
// label i.
func (s *Session) bootstrap() error {
	var images []*image.Gray
	var labels []int

	for i, name := range s.names {
		for _, dir := range s.dirs[name] {
			for img, err := range s.corpus.Images(dir) {
				var decodeErr *corpus.DecodeError
				if errors.As(err, &decodeErr) {
					s.logger.Printf("WARNING: %v, skipping", decodeErr)
					continue
				}
				if err != nil {
					return err
				}
				images = append(images, img.Gray)
				labels = append(labels, i)
			}
		}
		s.classifier.SetLabelInfo(i, name)

		if s.opts.Progress != nil {
			s.opts.Progress(name, i+1, len(s.names))
		}
	}

	if err := s.classifier.Train(images, labels); err != nil {
		return fmt.Errorf("%w: %w", ErrTraining, err)
	}
	s.state = Bootstrapped
	s.mode = Bootstrapped
	return nil
}

// Finalize persists the model unless NoSave is set and closes the session.
// Calling it again after a successful call does nothing.
func (s *Session) Finalize() error {
	switch s.state {
	case Closed:
		return nil
	case Ready:
	default:
		return fmt.Errorf("%w: finalize in %s", ErrInvalidState, s.state)
	}

	s.state = Finalizing
	if !s.opts.NoSave {
		if err := s.save(); err != nil {
			s.state = Ready
			return err
		}
	}
	s.state = Closed
	return nil
}

// save writes the classifier state to the model path, creating its
// directory first.
func (s *Session) save() error {
	if dir := filepath.Dir(s.opts.ModelPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // model directory is shared with tooling
			return fmt.Errorf("%w: creating %s: %w", ErrModelSave, dir, err)
		}
	}
	if err := s.classifier.Save(s.opts.ModelPath); err != nil {
		return fmt.Errorf("%w to %s: %w", ErrModelSave, s.opts.ModelPath, err)
	}
	return nil
}
