// Package imagestore provides the image stores the imposition engine reads
// and rewrites pages through.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// ErrNotFound is returned for keys that do not exist.
var ErrNotFound = errors.New("image not found")

var rasterExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// IsRaster reports whether name has a supported raster extension.
func IsRaster(name string) bool {
	return rasterExt[strings.ToLower(filepath.Ext(name))]
}

// Dir stores images as files below a root directory. Keys are
// slash-separated paths relative to the root.
type Dir struct {
	root string
	// Skip is a key prefix excluded from List (the engine's work area).
	Skip string
}

// NewDir returns a store rooted at root, creating it if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory backing the store.
func (d *Dir) Root() string { return d.root }

// Path returns the file path of a key.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

// List walks the root recursively and returns raster keys in lexical order.
func (d *Dir) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(d.root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if e.IsDir() {
			if d.Skip != "" && key+"/" == d.Skip {
				return filepath.SkipDir
			}
			return nil
		}
		if IsRaster(key) && (d.Skip == "" || !strings.HasPrefix(key, d.Skip)) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *Dir) Open(_ context.Context, name string) (image.Image, error) {
	img, err := imaging.Open(d.Path(name), imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return img, nil
}

// Size reads only the image header. JPEGs are decoded in full so that
// EXIF orientation gives the same size Open returns.
func (d *Dir) Size(ctx context.Context, name string) (int, int, error) {
	if ext := strings.ToLower(filepath.Ext(name)); ext == ".jpg" || ext == ".jpeg" {
		img, err := d.Open(ctx, name)
		if err != nil {
			return 0, 0, err
		}
		return img.Bounds().Dx(), img.Bounds().Dy(), nil
	}
	f, err := os.Open(d.Path(name))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode header %s: %w", name, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Save encodes img by the key's extension. WebP keys are written as PNG
// content since there is no WebP encoder.
func (d *Dir) Save(_ context.Context, name string, img image.Image) error {
	p := d.Path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}
	if strings.EqualFold(filepath.Ext(p), ".webp") {
		f, err := os.Create(p)
		if err != nil {
			return err
		}
		if err := imaging.Encode(f, img, imaging.PNG); err != nil {
			f.Close()
			return fmt.Errorf("encode %s: %w", name, err)
		}
		return f.Close()
	}
	if err := imaging.Save(img, p, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	log.Debug().Str("page", name).Int("width", img.Bounds().Dx()).Int("height", img.Bounds().Dy()).Msg("saved image")
	return nil
}

func (d *Dir) Remove(_ context.Context, name string) error {
	if err := os.Remove(d.Path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, ErrNotFound)
		}
		return err
	}
	return nil
}
