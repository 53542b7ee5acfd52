package remote

import (
	"context"
	"errors"

	gerrors "github.com/derekg/geofront-cli/internal/errors"
)

// ErrAborted is returned when the user cancels the selection
var ErrAborted = gerrors.ErrAborted

// Picker lets the user choose one alias interactively
type Picker interface {
	Pick(ctx context.Context, aliases []Alias) (string, error)
}

// PickerFunc adapts a function to Picker
type PickerFunc func(ctx context.Context, aliases []Alias) (string, error)

// Pick implements Picker
func (f PickerFunc) Pick(ctx context.Context, aliases []Alias) (string, error) {
	return f(ctx, aliases)
}

// Pick hands the aliases to p and returns the chosen name. Cancellation,
// including a cancelled context, yields ErrAborted.
func Pick(ctx context.Context, p Picker, aliases []Alias) (string, error) {
	if len(aliases) == 0 {
		return "", gerrors.Newf(gerrors.KindUnknownAlias, "pick remote", "no remotes are available")
	}

	name, err := p.Pick(ctx, aliases)
	if err != nil {
		if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
			return "", gerrors.New(gerrors.KindAborted, "pick remote", err)
		}
		return "", err
	}
	if name == "" {
		return "", gerrors.New(gerrors.KindAborted, "pick remote", nil)
	}

	for _, a := range aliases {
		if a.Name == name {
			return name, nil
		}
	}
	return "", gerrors.NewUnknownAliasError(name, nil)
}
