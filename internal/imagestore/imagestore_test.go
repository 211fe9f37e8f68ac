package imagestore

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/disintegration/imaging"
)

func TestDir_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir() error = %v", err)
	}

	if err := d.Save(ctx, "booklet/0001.png", imaging.New(30, 40, color.White)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	w, h, err := d.Size(ctx, "booklet/0001.png")
	if err != nil || w != 30 || h != 40 {
		t.Errorf("Size() = %d, %d, %v, want 30, 40, nil", w, h, err)
	}
	img, err := d.Open(ctx, "booklet/0001.png")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 30 || b.Dy() != 40 {
		t.Errorf("Open() bounds = %v, want 30x40", b)
	}

	if err := d.Remove(ctx, "booklet/0001.png"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := d.Open(ctx, "booklet/0001.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() after Remove error = %v, want ErrNotFound", err)
	}
	if err := d.Remove(ctx, "booklet/0001.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
}

// withOrientation inserts an EXIF APP1 segment carrying the orientation tag
// right after the JPEG SOI marker.
func withOrientation(jpg []byte, orientation byte) []byte {
	app1 := []byte{
		0xff, 0xe1, 0x00, 0x22,
		'E', 'x', 'i', 'f', 0x00, 0x00,
		'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, orientation, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	out := append([]byte{}, jpg[:2]...)
	out = append(out, app1...)
	return append(out, jpg[2:]...)
}

func TestDir_SizeHonoursOrientation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	d, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir() error = %v", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(40, 20, color.White), imaging.JPEG); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "phone.jpg"), withOrientation(buf.Bytes(), 6), 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := d.Open(ctx, "phone.jpg")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 40 {
		t.Fatalf("Open() bounds = %v, want 20x40", b)
	}
	w, h, err := d.Size(ctx, "phone.jpg")
	if err != nil || w != 20 || h != 40 {
		t.Errorf("Size() = %d, %d, %v, want 20, 40, nil", w, h, err)
	}
}

func TestDir_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	d, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir() error = %v", err)
	}
	d.Skip = "booklet/"

	for _, name := range []string{"002.jpg", "ch1/001.PNG", "booklet/0001.png", "cover.jpeg"} {
		if err := d.Save(ctx, name, imaging.New(4, 4, color.Black)); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := d.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"002.jpg", "ch1/001.PNG", "cover.jpeg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()
	m.Put("b.png", imaging.New(2, 3, color.White))
	if err := m.Save(ctx, "a.png", imaging.New(5, 6, color.White)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	keys, _ := m.List(ctx)
	if !reflect.DeepEqual(keys, []string{"a.png", "b.png"}) {
		t.Errorf("List() = %v, want [a.png b.png]", keys)
	}
	if w, h, err := m.Size(ctx, "a.png"); err != nil || w != 5 || h != 6 {
		t.Errorf("Size() = %d, %d, %v, want 5, 6, nil", w, h, err)
	}
	if m.Writes("a.png") != 1 || m.Writes("b.png") != 0 {
		t.Errorf("Writes() = %d, %d, want 1, 0", m.Writes("a.png"), m.Writes("b.png"))
	}
	if err := m.Remove(ctx, "c.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove() missing key error = %v, want ErrNotFound", err)
	}
}

func TestIsRaster(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{
		"a.jpg": true, "a.JPEG": true, "a.png": true, "a.webp": true,
		"a.gif": false, "a.txt": false, "png": false,
	} {
		if got := IsRaster(name); got != want {
			t.Errorf("IsRaster(%q) = %v, want %v", name, got, want)
		}
	}
}
