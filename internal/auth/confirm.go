package auth

import (
	"bufio"
	"context"
	"io"
)

// Confirmer blocks until the user says they finished in the browser
type Confirmer interface {
	Confirm(ctx context.Context) error
}

// NopConfirmer returns immediately, so polling starts right away
type NopConfirmer struct{}

// Confirm implements Confirmer
func (NopConfirmer) Confirm(context.Context) error { return nil }

// LineConfirmer prints a prompt and waits for a line on its reader
type LineConfirmer struct {
	In     io.Reader
	Out    io.Writer
	Prompt string
}

// Confirm implements Confirmer. A closed reader counts as confirmation.
func (c LineConfirmer) Confirm(ctx context.Context) error {
	if c.Out != nil && c.Prompt != "" {
		io.WriteString(c.Out, c.Prompt)
	}

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(c.In).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
