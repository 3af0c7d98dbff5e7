package session

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidName is returned by Learn for names that cannot be used as an
// identity directory. The session stays usable.
var ErrInvalidName = errors.New("invalid identity name")

// Result is the outcome of a recognition.
type Result struct {
	Known bool
	Label int
	Name  string
}

// Learned describes an identity update made by Learn.
type Learned struct {
	Name      string
	Label     int
	Created   bool   // a new label was allocated
	ImagePath string // where the image was stored in the corpus
}

// Outcome is the result of RecognizeOrLearn. Learned is nil when the face
// was recognized.
type Outcome struct {
	Result
	Learned *Learned
}

// NormalizeName trims surrounding whitespace and converts name to Unicode
// NFC so the same typed name always maps to the same identity.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// validateName rejects names that are not a single path component.
func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Recognize classifies img. A face is known when the classifier returns a
// label that has a name. The registry is not modified.
func (s *Session) Recognize(img *image.Gray) (Result, error) {
	if s.state != Ready {
		return Result{}, fmt.Errorf("%w: recognize in %s", ErrInvalidState, s.state)
	}
	s.state = Recognizing
	defer func() { s.state = Ready }()

	label, err := s.classifier.Predict(img)
	if err != nil {
		return Result{}, fmt.Errorf("predicting: %w", err)
	}
	if label < 0 {
		return Result{Label: label}, nil
	}

	name, ok := s.registry.LookupName(label)
	if !ok {
		name = s.classifier.LabelInfo(label)
	}
	if name == "" {
		return Result{Label: label}, nil
	}
	return Result{Known: true, Label: label, Name: name}, nil
}

// Learn binds img to name: it resolves or allocates the label, updates the
// classifier with the single image and stores the image in the corpus.
func (s *Session) Learn(img *image.Gray, name string) (Learned, error) {
	if s.state != Ready {
		return Learned{}, fmt.Errorf("%w: learn in %s", ErrInvalidState, s.state)
	}

	name = NormalizeName(name)
	if err := validateName(name); err != nil {
		return Learned{}, err
	}

	s.state = Learning
	defer func() { s.state = Ready }()

	label, created := s.registry.Allocate(name)

	if err := s.classifier.Update([]*image.Gray{img}, []int{label}); err != nil {
		return Learned{}, fmt.Errorf("updating model with %q: %w", name, err)
	}
	s.classifier.SetLabelInfo(label, name)

	path, err := s.corpus.Save(s.corpusDir(name), img)
	if err != nil {
		return Learned{}, fmt.Errorf("storing image of %q: %w", name, err)
	}

	return Learned{Name: name, Label: label, Created: created, ImagePath: path}, nil
}

// RecognizeOrLearn recognizes img and, when the face is unknown, asks the
// prompter for a name and learns it.
func (s *Session) RecognizeOrLearn(img *image.Gray, prompter NamePrompter) (Outcome, error) {
	result, err := s.Recognize(img)
	if err != nil {
		return Outcome{}, err
	}
	if result.Known {
		return Outcome{Result: result}, nil
	}

	name, err := prompter.PromptName()
	if err != nil {
		return Outcome{Result: result}, fmt.Errorf("reading name: %w", err)
	}

	learned, err := s.Learn(img, name)
	if err != nil {
		return Outcome{Result: result}, err
	}
	return Outcome{Result: result, Learned: &learned}, nil
}
