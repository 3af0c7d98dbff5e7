// Package registry keeps the bijection between identity names and the
// integer labels the recognizer works with.
package registry

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnresolvedIdentity is returned by Populate when a known name has no
	// label in the recognizer. The corpus and the model disagree.
	ErrUnresolvedIdentity = errors.New("identity has no label in the model")

	// ErrDuplicateLabel is returned by Populate when two names resolve to the
	// same label.
	ErrDuplicateLabel = errors.New("label already bound to another identity")
)

// LabelResolver returns the labels a recognizer associates with a name.
// The result is empty when the name is unknown.
type LabelResolver interface {
	GetLabelsByString(name string) []int
}

// Identity is a registered person.
type Identity struct {
	Name  string `json:"name"`
	Label int    `json:"label"`
}

// Registry maps names to labels and back. It is not safe for concurrent use.
type Registry struct {
	labelToName  map[int]string
	nameToLabel  map[string]int
	highestLabel int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		labelToName: make(map[int]string),
		nameToLabel: make(map[string]int),
	}
}

// Populate records the first label the resolver returns for every name and
// returns the highest label seen. It stops at the first name that cannot be
// resolved.
func (r *Registry) Populate(names []string, resolver LabelResolver) (int, error) {
	for _, name := range names {
		labels := resolver.GetLabelsByString(name)
		if len(labels) == 0 {
			return r.highestLabel, fmt.Errorf("%w: %q", ErrUnresolvedIdentity, name)
		}
		label := labels[0]

		if existing, ok := r.labelToName[label]; ok && existing != name {
			return r.highestLabel, fmt.Errorf("%w: label %d is %q, got %q", ErrDuplicateLabel, label, existing, name)
		}

		r.labelToName[label] = name
		r.nameToLabel[name] = label
		if label > r.highestLabel {
			r.highestLabel = label
		}
	}
	return r.highestLabel, nil
}

// LookupLabel returns the label registered for name.
func (r *Registry) LookupLabel(name string) (int, bool) {
	label, ok := r.nameToLabel[name]
	return label, ok
}

// LookupName returns the name registered for label.
func (r *Registry) LookupName(label int) (string, bool) {
	name, ok := r.labelToName[label]
	return name, ok
}

// Allocate returns the label of name, registering it under highestLabel+1
// if it is not known yet. created reports whether a new label was assigned.
func (r *Registry) Allocate(name string) (label int, created bool) {
	if label, ok := r.nameToLabel[name]; ok {
		return label, false
	}

	label = r.highestLabel + 1
	r.labelToName[label] = name
	r.nameToLabel[name] = label
	r.highestLabel = label
	return label, true
}

// Reserve keeps Allocate from handing out label or anything below it.
func (r *Registry) Reserve(label int) {
	if label > r.highestLabel {
		r.highestLabel = label
	}
}

// HighestLabel returns the largest label assigned so far.
func (r *Registry) HighestLabel() int {
	return r.highestLabel
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	return len(r.nameToLabel)
}

// Identities returns all registered identities ordered by label.
func (r *Registry) Identities() []Identity {
	identities := make([]Identity, 0, len(r.labelToName))
	for label, name := range r.labelToName {
		identities = append(identities, Identity{Name: name, Label: label})
	}
	sort.Slice(identities, func(i, j int) bool {
		return identities[i].Label < identities[j].Label
	})
	return identities
}
