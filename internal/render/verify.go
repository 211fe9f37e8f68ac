package render

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

// PageCountError means a written document does not have the expected
// number of sheet faces.
type PageCountError struct {
	Path string
	Got  int
	Want int
}

func (e *PageCountError) Error() string {
	return fmt.Sprintf("%s has %d pages, want %d", e.Path, e.Got, e.Want)
}

// Verify re-reads a written document and checks its page count.
func Verify(path string, want int) error {
	n, err := api.PageCountFile(path)
	if err != nil {
		return fmt.Errorf("read back %s: %w", path, err)
	}
	if n != want {
		return &PageCountError{Path: path, Got: n, Want: want}
	}
	log.Debug().Str("file", path).Int("pages", n).Msg("verified document")
	return nil
}

// Encrypt protects a document in place with AES-256, using password for
// both the user and owner passwords.
func Encrypt(path, password string) error {
	conf := model.NewAESConfiguration(password, password, 256)
	conf.ValidationMode = model.ValidationRelaxed

	tmp := path + ".encrypted"
	if err := api.EncryptFile(path, tmp, conf); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("encryption failed: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	log.Info().Str("file", path).Msg("document encrypted")
	return nil
}
