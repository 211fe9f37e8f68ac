package orchestrator

import (
	"errors"

	"github.com/local/bookletpress/internal/archive"
	"github.com/local/bookletpress/internal/imposition"
	"github.com/local/bookletpress/internal/render"
)

// Classify maps a run error to the runs_total result label.
func Classify(err error) string {
	var multi *archive.MultipleBooksError
	switch {
	case err == nil:
		return "success"
	case imposition.IsConfigError(err):
		return "config_error"
	case imposition.IsNamingError(err):
		return "naming_error"
	case imposition.IsBindingError(err):
		return "binding_error"
	case errors.As(err, &multi), errors.Is(err, archive.ErrNoImages):
		return "input_error"
	}
	return "error"
}

// Hint extends imposition.Hint with input and output problems.
func Hint(err error) string {
	if h := imposition.Hint(err); h != "" {
		return h
	}
	var multi *archive.MultipleBooksError
	var count *render.PageCountError
	switch {
	case errors.As(err, &multi):
		return "leave a single archive, PDF or set of images in the input directory"
	case errors.Is(err, archive.ErrNoImages):
		return "put the page images, one archive or one PDF in the input directory"
	case errors.As(err, &count):
		return "the written PDF is incomplete; check free disk space and run again"
	}
	return ""
}
