package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// testImage returns a small grayscale gradient.
func testImage(shade uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.SetGray(x, y, color.Gray{Y: shade + uint8(x+y)})
		}
	}
	return img
}

// writePNG writes img as PNG at path, creating parent directories.
func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// touch creates an empty file at path.
func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestOpen_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "imgs", "faces")

	store, err := Open(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected %s to be a directory", root)
	}
	if store.Root() != root {
		t.Errorf("expected root %s, got %s", root, store.Root())
	}
}

func TestOpen_RootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "faces")
	touch(t, root)

	if _, err := Open(root); err == nil {
		t.Fatal("expected error when root is a file")
	}
}

func TestIdentities_DirectoriesOnlySorted(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"carol", "alice", "bob"} {
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
	}
	touch(t, filepath.Join(root, "README.txt"))

	store, err := Open(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names, err := store.Identities()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"alice", "bob", "carol"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %v, got %v", want, names)
			break
		}
	}
}

func TestIdentities_Empty(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names, err := store.Identities()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no identities, got %v", names)
	}
}

func TestIdentities_ManyEntries(t *testing.T) {
	root := t.TempDir()
	count := readBatch*2 + 3
	for i := range count {
		if err := os.MkdirAll(filepath.Join(root, fmt.Sprintf("person%03d", i)), 0o755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
	}

	store, _ := Open(root)
	names, err := store.Identities()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != count {
		t.Errorf("expected %d identities, got %d", count, len(names))
	}
}

func TestImages_SkipsUndecodable(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "alice", "0.png"), testImage(10))
	writePNG(t, filepath.Join(root, "alice", "1.png"), testImage(50))
	if err := os.WriteFile(filepath.Join(root, "alice", "broken.jpg"), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	store, _ := Open(root)

	var loaded, failed int
	for img, err := range store.Images("alice") {
		var decodeErr *DecodeError
		switch {
		case errors.As(err, &decodeErr):
			failed++
			if filepath.Base(decodeErr.Path) != "broken.jpg" {
				t.Errorf("unexpected failing file %s", decodeErr.Path)
			}
		case err != nil:
			t.Fatalf("unexpected error: %v", err)
		default:
			loaded++
			if img.Gray.Bounds().Dx() != 16 {
				t.Errorf("expected width 16, got %d", img.Gray.Bounds().Dx())
			}
		}
	}

	if loaded != 2 {
		t.Errorf("expected 2 loaded images, got %d", loaded)
	}
	if failed != 1 {
		t.Errorf("expected 1 failed image, got %d", failed)
	}
}

func TestImages_MissingDirectory(t *testing.T) {
	store, _ := Open(t.TempDir())

	var gotErr error
	for _, err := range store.Images("nobody") {
		gotErr = err
	}

	var decodeErr *DecodeError
	if gotErr == nil || errors.As(gotErr, &decodeErr) {
		t.Fatalf("expected a directory error, got %v", gotErr)
	}
}

func TestImages_EarlyBreak(t *testing.T) {
	root := t.TempDir()
	for i := range 5 {
		writePNG(t, filepath.Join(root, "bob", fmt.Sprintf("%d.png", i)), testImage(uint8(i*20)))
	}
	store, _ := Open(root)

	seen := 0
	for _, err := range store.Images("bob") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen++
		if seen == 2 {
			break
		}
	}

	if seen != 2 {
		t.Errorf("expected to stop after 2 images, got %d", seen)
	}
}

func TestNextAvailablePath(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		expected string
	}{
		{"empty directory", nil, "0.jpg"},
		{"sequential", []string{"0.jpg", "1.jpg", "2.jpg"}, "3.jpg"},
		{"fills first gap", []string{"0.jpg", "1.jpg", "3.jpg"}, "2.jpg"},
		{"gap at zero", []string{"1.jpg", "2.jpg"}, "0.jpg"},
		{"ignores other names", []string{"0.jpg", "photo.jpg", "1.png"}, "1.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if err := os.MkdirAll(filepath.Join(root, "alice"), 0o755); err != nil {
				t.Fatalf("failed to create dir: %v", err)
			}
			for _, f := range tt.existing {
				touch(t, filepath.Join(root, "alice", f))
			}
			store, _ := Open(root)

			path, err := store.NextAvailablePath("alice")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := filepath.Join(root, "alice", tt.expected)
			if path != want {
				t.Errorf("expected %s, got %s", want, path)
			}
		})
	}
}

func TestSave_CreatesDirectoryAndFile(t *testing.T) {
	root := t.TempDir()
	store, _ := Open(root)

	path, err := store.Save("carol", testImage(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join(root, "carol", "0.jpg")
	if path != want {
		t.Errorf("expected %s, got %s", want, path)
	}

	img, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("failed to decode written image: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("expected 16x16 image, got %v", img.Bounds())
	}
}

func TestSave_AppendsNextFilename(t *testing.T) {
	root := t.TempDir()
	store, _ := Open(root)
	for range 3 {
		if _, err := store.Save("alice", testImage(0)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	path, err := store.Save("alice", testImage(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(path) != "3.jpg" {
		t.Errorf("expected 3.jpg, got %s", filepath.Base(path))
	}
}

func TestToGray_OffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 15, 25))
	for y := 5; y < 25; y++ {
		for x := 5; x < 15; x++ {
			src.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	gray := ToGray(src)

	if gray.Rect.Min != (image.Point{}) {
		t.Errorf("expected origin-anchored image, got %v", gray.Rect)
	}
	if gray.Bounds().Dx() != 10 || gray.Bounds().Dy() != 20 {
		t.Errorf("expected 10x20, got %v", gray.Bounds())
	}
	if gray.GrayAt(0, 0).Y != 255 {
		t.Errorf("expected white pixel, got %d", gray.GrayAt(0, 0).Y)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Fatal("expected error for invalid image data")
	}
}
