package filetype

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func zipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("001.png")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	w.Write(pngBytes(t))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestDetector_Detect(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name      string
		file      string
		data      []byte
		want      Kind
		isArchive bool
	}{
		{name: "png page", file: "001.png", data: pngBytes(t), want: KindImage},
		{name: "pdf scan", file: "book.pdf", data: []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"), want: KindPDF, isArchive: true},
		{name: "cbz", file: "book.cbz", data: zipBytes(t), want: KindZip, isArchive: true},
		{name: "cbr", file: "book.cbr", data: []byte("Rar!\x1a\x07\x00\xcf\x90\x73\x00\x00\x0d\x00\x00\x00\x00\x00\x00\x00"), want: KindRar, isArchive: true},
		{name: "text", file: "notes.txt", data: []byte("just some notes\n"), want: KindUnsupported},
	}

	d := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, tt.file, tt.data)
			info, err := d.Detect(p)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if info.Kind != tt.want {
				t.Errorf("Detect(%s).Kind = %s (mime %s), want %s", tt.file, info.Kind, info.MIMEType, tt.want)
			}
			if info.Archive() != tt.isArchive {
				t.Errorf("Detect(%s).Archive() = %v, want %v", tt.file, info.Archive(), tt.isArchive)
			}
			if info.Supported() != (tt.want != KindUnsupported) {
				t.Errorf("Detect(%s).Supported() = %v", tt.file, info.Supported())
			}
		})
	}
}

func TestDetector_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := New().Detect(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("Detect() on a missing file returned nil error")
	}
}
