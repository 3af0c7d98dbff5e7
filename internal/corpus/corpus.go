// Package corpus stores training images on disk, one directory per identity.
//
// The layout is <root>/<name>/<n>.jpg. The directory name is the identity
// name, unmodified.
package corpus

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// readBatch is how many directory entries are read per ReadDir call.
const readBatch = 64

// DecodeError reports an image file that could not be decoded. It is
// recoverable: the file is skipped.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to load image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Image is a decoded corpus image.
type Image struct {
	Path string
	Gray *image.Gray
}

// Store is an on-disk image corpus.
type Store struct {
	root string
}

// Open returns a store rooted at root, creating the directory if needed.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil { //nolint:gosec // corpus must stay readable by image tools
		return nil, fmt.Errorf("failed to create corpus directory %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the corpus root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding the images of name.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.root, name)
}

// entries lazily walks the entries of dir. The directory is closed when the
// iteration ends, including on early break.
func entries(dir string) iter.Seq2[fs.DirEntry, error] {
	return func(yield func(fs.DirEntry, error) bool) {
		f, err := os.Open(dir) //nolint:gosec // dir is inside the corpus root
		if err != nil {
			yield(nil, err)
			return
		}
		defer f.Close()

		for {
			batch, err := f.ReadDir(readBatch)
			for _, entry := range batch {
				if entry.Name() == "." || entry.Name() == ".." {
					continue
				}
				if !yield(entry, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Identities lists the identity directories under the root, sorted by name.
// Plain files at the root are ignored.
func (s *Store) Identities() ([]string, error) {
	var names []string
	for entry, err := range entries(s.root) {
		if err != nil {
			return nil, fmt.Errorf("failed to list corpus %s: %w", s.root, err)
		}
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Images lazily decodes every file in the directory of name. A file that
// fails to decode yields a *DecodeError and the iteration continues; any
// other error ends it.
func (s *Store) Images(name string) iter.Seq2[Image, error] {
	dir := s.Dir(name)
	return func(yield func(Image, error) bool) {
		for entry, err := range entries(dir) {
			if err != nil {
				yield(Image{}, fmt.Errorf("failed to read identity directory %s: %w", dir, err))
				return
			}
			if entry.IsDir() {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			gray, err := DecodeFile(path)
			if err != nil {
				if !yield(Image{Path: path}, &DecodeError{Path: path, Err: err}) {
					return
				}
				continue
			}
			if !yield(Image{Path: path, Gray: gray}, nil) {
				return
			}
		}
	}
}

// NextAvailablePath returns <root>/<name>/<n>.jpg for the smallest n, counting
// from 0, whose file does not exist. Gaps are filled first.
func (s *Store) NextAvailablePath(name string) (string, error) {
	dir := s.Dir(name)
	for i := 0; ; i++ {
		path := filepath.Join(dir, strconv.Itoa(i)+".jpg")
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", path, err)
		}
	}
}

// Save writes img as JPEG at the next available path of name, creating the
// identity directory when needed. It returns the written path.
func (s *Store) Save(name string, img image.Image) (string, error) {
	if err := os.MkdirAll(s.Dir(name), 0o755); err != nil { //nolint:gosec // corpus must stay readable by image tools
		return "", fmt.Errorf("failed to create identity directory: %w", err)
	}

	path, err := s.NextAvailablePath(name)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // path built from the corpus root
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := encodeJPEG(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
