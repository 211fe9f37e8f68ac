package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/signintech/gopdf"

	"github.com/local/bookletpress/internal/filetype"
	"github.com/local/bookletpress/internal/imagerender"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 12))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
}

func TestPrepare_Zip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := pngBytes(t)
	writeZip(t, filepath.Join(dir, "book.cbz"), map[string][]byte{
		"vol1/001.png":  img,
		"vol1/002.png":  img,
		"vol1/info.txt": []byte("scanlated by someone"),
		"../escape.png": img,
	})

	res, err := (&Preparer{}).Prepare(context.Background(), dir)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if res.Kind != filetype.KindZip || res.Extracted != 2 || res.Images != 2 {
		t.Errorf("Prepare() = %+v, want zip with 2 extracted images", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "vol1", "002.png")); err != nil {
		t.Errorf("extracted page missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.png")); !os.IsNotExist(err) {
		t.Errorf("traversal entry written outside the input dir")
	}
	if _, err := os.Stat(filepath.Join(dir, "vol1", "info.txt")); !os.IsNotExist(err) {
		t.Errorf("non-image entry extracted")
	}
}

func TestPrepare_LooseImages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, n := range []string{"001.png", "002.png", "003.png"} {
		if err := os.WriteFile(filepath.Join(dir, n), pngBytes(t), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := (&Preparer{}).Prepare(context.Background(), dir)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if res.Source != "" || res.Kind != filetype.KindImage || res.Images != 3 {
		t.Errorf("Prepare() = %+v, want 3 loose images", res)
	}
}

func TestPrepare_MultipleBooks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := pngBytes(t)
	writeZip(t, filepath.Join(dir, "a.zip"), map[string][]byte{"001.png": img})
	writeZip(t, filepath.Join(dir, "b.cbz"), map[string][]byte{"001.png": img})

	_, err := (&Preparer{}).Prepare(context.Background(), dir)
	var multi *MultipleBooksError
	if !errors.As(err, &multi) {
		t.Fatalf("Prepare() error = %v, want MultipleBooksError", err)
	}
	if want := []string{"a.zip", "b.cbz"}; !reflect.DeepEqual(multi.Files, want) {
		t.Errorf("MultipleBooksError.Files = %v, want %v", multi.Files, want)
	}
}

func TestPrepare_NoImages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "empty.zip"), map[string][]byte{"notes.txt": []byte("nothing here")})
	if _, err := (&Preparer{}).Prepare(context.Background(), dir); !errors.Is(err, ErrNoImages) {
		t.Errorf("Prepare() error = %v, want ErrNoImages", err)
	}
}

func TestPrepare_SkipsWorkArea(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "booklet"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "booklet", "0001.png"), pngBytes(t), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&Preparer{Skip: "booklet/"}).Prepare(context.Background(), dir); !errors.Is(err, ErrNoImages) {
		t.Errorf("Prepare() error = %v, want ErrNoImages", err)
	}
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "in")
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "001.png"},
		{name: "ch1/001.png"},
		{name: `ch1\001.png`},
		{name: "a/../001.png"},
		{name: "../001.png", wantErr: true},
		{name: "a/../../001.png", wantErr: true},
		{name: "/etc/passwd", wantErr: true},
		{name: `\evil.png`, wantErr: true},
		{name: "", wantErr: true},
	}
	for _, tt := range tests {
		_, err := safeJoin(base, tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("safeJoin(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestPrepare_PDF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA5})
	for i := 0; i < 4; i++ {
		pdf.AddPage()
	}
	if err := pdf.WritePdf(filepath.Join(dir, "scan.pdf")); err != nil {
		t.Fatalf("WritePdf() error = %v", err)
	}

	p := &Preparer{DPI: 36, ColorMode: imagerender.ColorGray}
	got, err := p.Prepare(context.Background(), dir)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got.Kind != filetype.KindPDF || got.Extracted != 4 || got.Images != 4 {
		t.Errorf("Prepare() = %+v, want 4 pages from a pdf", got)
	}
	for _, name := range []string{"p0001.png", "p0004.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("rasterised page %s missing: %v", name, err)
		}
	}
}
