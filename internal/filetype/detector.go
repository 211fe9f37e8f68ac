package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Kind is the input family a file belongs to
type Kind string

const (
	KindImage       Kind = "image"
	KindZip         Kind = "zip"
	KindRar         Kind = "rar"
	KindPDF         Kind = "pdf"
	KindUnsupported Kind = "unsupported"
)

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Kind        Kind
	Description string
}

// Supported reports whether the file can be used as book input
func (i *FileTypeInfo) Supported() bool { return i.Kind != KindUnsupported }

// Archive reports whether the file is a page container
func (i *FileTypeInfo) Archive() bool {
	return i.Kind == KindZip || i.Kind == KindRar || i.Kind == KindPDF
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type using magic bytes, not filename
func (d *Detector) Detect(filePath string) (*FileTypeInfo, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	info := &FileTypeInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	d.classify(info, strings.ToLower(filepath.Ext(filePath)))

	log.Debug().Str("mime", info.MIMEType).Str("kind", string(info.Kind)).Str("file", filePath).Msg("detected file type")
	return info, nil
}

// classify maps the MIME type to an input kind. Comic containers carry
// their own extensions (.cbz, .cbr) but sniff as plain zip/rar.
func (d *Detector) classify(info *FileTypeInfo, ext string) {
	mimeType := info.MIMEType

	switch {
	case mimeType == "image/jpeg", mimeType == "image/png", mimeType == "image/webp":
		info.Kind = KindImage
		info.Description = "Page image"

	case mimeType == "application/pdf":
		info.Kind = KindPDF
		info.Description = "PDF scan"

	case mimeType == "application/zip" || strings.Contains(mimeType, "application/x-zip"):
		info.Kind = KindZip
		info.Description = "ZIP archive"
		if ext == ".cbz" {
			info.Description = "Comic book archive (CBZ)"
		}

	case mimeType == "application/x-rar-compressed", mimeType == "application/x-rar", mimeType == "application/vnd.rar":
		info.Kind = KindRar
		info.Description = "RAR archive"
		if ext == ".cbr" {
			info.Description = "Comic book archive (CBR)"
		}

	// EPUB and office files are zips underneath but not page containers
	default:
		info.Kind = KindUnsupported
		info.Description = fmt.Sprintf("Unsupported file type: %s", mimeType)
	}
}
