// Package render draws imposed pages onto printable landscape sheets.
package render

import (
	"strconv"
	"strings"

	"github.com/signintech/gopdf"

	"github.com/local/bookletpress/internal/imposition"
)

// MaxPageWidthCM bounds a configured page width.
const MaxPageWidthCM = 20

// Paper is a sheet size in portrait points plus the page width that fills
// half of it.
type Paper struct {
	Name        string
	Width       float64
	Height      float64
	FullWidthCM float64
}

var papers = map[string]Paper{
	"A4":     {Name: "A4", Width: gopdf.PageSizeA4.W, Height: gopdf.PageSizeA4.H, FullWidthCM: 14},
	"LETTER": {Name: "Letter", Width: gopdf.PageSizeLetter.W, Height: gopdf.PageSizeLetter.H, FullWidthCM: 13},
	"A5":     {Name: "A5", Width: gopdf.PageSizeA5.W, Height: gopdf.PageSizeA5.H, FullWidthCM: 9},
}

// ParsePaper accepts A4, Letter or A5 in any case.
func ParsePaper(s string) (Paper, error) {
	p, ok := papers[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return Paper{}, &imposition.ConfigError{Field: "paper", Value: s, Reason: "must be A4, Letter or A5"}
	}
	return p, nil
}

// Sheet is the landscape rectangle pages are drawn on.
func (p Paper) Sheet() gopdf.Rect {
	return gopdf.Rect{W: p.Height, H: p.Width}
}

// ParsePageWidth resolves "full" to the paper default, otherwise a width in
// centimetres between 0 and MaxPageWidthCM exclusive.
func ParsePageWidth(s string, p Paper) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "full" || s == "" {
		return p.FullWidthCM, nil
	}
	cm, err := strconv.ParseFloat(strings.TrimSuffix(s, "cm"), 64)
	if err != nil || cm <= 0 || cm >= MaxPageWidthCM {
		return 0, &imposition.ConfigError{Field: "page width", Value: s, Reason: "must be full or a number of centimetres between 0 and 20"}
	}
	return cm, nil
}

// PixelsToPoints converts a raster length at dpi to PDF points.
func PixelsToPoints(px, dpi int) float64 {
	return float64(px) / float64(dpi) * 72
}
