package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nwaples/rardecode"
	"github.com/rs/zerolog/log"

	"github.com/local/bookletpress/internal/imagestore"
)

// ExtractRar writes the image entries of a rar/cbr archive below dst and
// returns how many were written.
func ExtractRar(ctx context.Context, src, dst string) (int, error) {
	file, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open rar file: %w", err)
	}
	defer file.Close()

	reader, err := rardecode.NewReader(file, "")
	if err != nil {
		return 0, fmt.Errorf("invalid or corrupt rar file: %w", err)
	}

	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("error reading rar archive: %w", err)
		}
		if header.IsDir || !imagestore.IsRaster(header.Name) {
			continue
		}
		out, err := safeJoin(dst, header.Name)
		if err != nil {
			log.Warn().Err(err).Str("entry", header.Name).Msg("skipping archive entry")
			continue
		}
		if err := writeEntry(reader, out); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
