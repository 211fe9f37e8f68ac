// Package prompt asks the operator for layout choices and engine
// confirmations on a terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/local/bookletpress/internal/config"
	"github.com/local/bookletpress/internal/imposition"
	"github.com/local/bookletpress/internal/render"
)

// ErrNoAnswer is returned when input ends before a valid answer was read.
var ErrNoAnswer = errors.New("input closed before an answer was given")

// Defaults used for unset choices when AssumeYes is on.
const (
	DefaultDirection = "right"
	DefaultPaper     = "A4"
	DefaultWidth     = "full"
	DefaultDropZero  = "n"
)

// Console reads answers line by line. It implements imposition.Decider.
type Console struct {
	In        io.Reader
	Out       io.Writer
	AssumeYes bool

	once sync.Once
	r    *bufio.Reader
}

// NewConsole returns a console reading from in and writing questions to out.
func NewConsole(in io.Reader, out io.Writer, assumeYes bool) *Console {
	return &Console{In: in, Out: out, AssumeYes: assumeYes}
}

// Confirm prints the prompt detail and waits for y or n.
func (c *Console) Confirm(ctx context.Context, p imposition.Prompt) (bool, error) {
	if c.AssumeYes {
		log.Info().Str("question", p.Question.String()).Str("detail", p.Detail).Msg("assuming yes")
		return true, nil
	}
	fmt.Fprintf(c.Out, "%s.\n", p.Detail)
	var yes bool
	_, err := c.ask(ctx, "Continue? (y/n): ", func(s string) error {
		v, err := config.ParseYesNo(s)
		yes = v
		return err
	})
	return yes, err
}

// Resolve fills every empty layout choice in b, asking for each in turn.
// Values already set are validated but not asked again.
func (c *Console) Resolve(ctx context.Context, b *config.BookletConfig) error {
	if c.AssumeYes {
		fillDefaults(b)
		return nil
	}

	if b.Direction == "" {
		var dir imposition.Direction
		_, err := c.ask(ctx, "Reading direction, left (western) or right (manga)? [left/right]: ", func(s string) error {
			d, err := imposition.ParseDirection(s)
			dir = d
			return err
		})
		if err != nil {
			return err
		}
		b.Direction = dir.String()
	}

	var paper render.Paper
	if b.Paper == "" {
		_, err := c.ask(ctx, "Paper size [A4/Letter/A5]: ", func(s string) error {
			p, err := render.ParsePaper(s)
			paper = p
			return err
		})
		if err != nil {
			return err
		}
		b.Paper = paper.Name
	} else {
		p, err := render.ParsePaper(b.Paper)
		if err != nil {
			return err
		}
		paper = p
	}

	if b.PageWidth == "" {
		q := fmt.Sprintf("Page width in cm, or full for the %s default (%g cm): ", paper.Name, paper.FullWidthCM)
		ans, err := c.ask(ctx, q, func(s string) error {
			_, err := render.ParsePageWidth(s, paper)
			return err
		})
		if err != nil {
			return err
		}
		if ans == "" {
			ans = DefaultWidth
		}
		b.PageWidth = ans
	}

	if b.DropZeroPages == "" {
		ans, err := c.ask(ctx, "Drop page-zero files such as 000.png? (y/n): ", func(s string) error {
			_, err := config.ParseYesNo(s)
			return err
		})
		if err != nil {
			return err
		}
		b.DropZeroPages = ans
	}
	return nil
}

func fillDefaults(b *config.BookletConfig) {
	set := func(field *string, def, name string) {
		if *field == "" {
			*field = def
			log.Info().Str("setting", name).Str("value", def).Msg("using default")
		}
	}
	set(&b.Direction, DefaultDirection, "direction")
	set(&b.Paper, DefaultPaper, "paper")
	set(&b.PageWidth, DefaultWidth, "page width")
	set(&b.DropZeroPages, DefaultDropZero, "drop zero pages")
}

// ask repeats question until accept returns nil and returns the trimmed
// answer.
func (c *Console) ask(ctx context.Context, question string, accept func(string) error) (string, error) {
	c.once.Do(func() { c.r = bufio.NewReader(c.In) })
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(c.Out, question)
		line, err := c.r.ReadString('\n')
		ans := strings.TrimSpace(line)
		if err != nil && ans == "" {
			fmt.Fprintln(c.Out)
			if errors.Is(err, io.EOF) {
				return "", ErrNoAnswer
			}
			return "", err
		}
		if verr := accept(ans); verr != nil {
			fmt.Fprintf(c.Out, "Invalid input: %v\n", verr)
			if err != nil {
				return "", ErrNoAnswer
			}
			continue
		}
		return ans, nil
	}
}
