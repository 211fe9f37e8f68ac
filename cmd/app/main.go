package main

import (
	"context"
	"os"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := a.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
