package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	gerrors "github.com/derekg/geofront-cli/internal/errors"
	"github.com/derekg/geofront-cli/internal/remote"
)

// Prompter asks the user for input
type Prompter interface {
	Input(ctx context.Context, title string, validate func(string) error) (string, error)
	Confirm(ctx context.Context, title string) (bool, error)
}

// terminalPrompter uses huh forms when stdin is a terminal
type terminalPrompter struct {
	in  io.Reader
	out io.Writer
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: in, out: out}
}

func (p *terminalPrompter) interactive() bool {
	f, ok := p.in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *terminalPrompter) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(p.in).
		WithOutput(p.out)
	err := form.RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return gerrors.New(gerrors.KindAborted, "prompt", remote.ErrAborted)
	}
	return err
}

// Input asks for a line of text. Without a terminal it is a usage error,
// since the value could have been given as an argument.
func (p *terminalPrompter) Input(ctx context.Context, title string, validate func(string) error) (string, error) {
	if !p.interactive() {
		return "", gerrors.NewUsageError("%s: no terminal to prompt on", title)
	}
	var value string
	field := huh.NewInput().
		Title(title).
		Value(&value).
		Validate(validate)
	if err := p.run(ctx, field); err != nil {
		return "", err
	}
	return value, nil
}

// Confirm asks a yes/no question. Without a terminal the answer is no.
func (p *terminalPrompter) Confirm(ctx context.Context, title string) (bool, error) {
	if !p.interactive() {
		return false, nil
	}
	confirmed := true
	field := huh.NewConfirm().
		Title(title).
		Value(&confirmed)
	if err := p.run(ctx, field); err != nil {
		return false, err
	}
	return confirmed, nil
}
