package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/derekg/geofront-cli/internal/i18n"
	"github.com/derekg/geofront-cli/internal/remote"
)

// huhPicker shows a filterable list of aliases in the terminal
type huhPicker struct{}

func (huhPicker) Pick(ctx context.Context, aliases []remote.Alias) (string, error) {
	options := make([]huh.Option[string], len(aliases))
	for i, al := range aliases {
		label := al.Name
		if len(al.Addresses) > 0 {
			label = fmt.Sprintf("%s  %s", al.Name, infoStyle.Render(al.Addresses[0].String()))
		}
		options[i] = huh.NewOption(label, al.Name)
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(headerStyle.Render(i18n.T("pick_remote_title"))).
				Options(options...).
				Filtering(true).
				Value(&selected),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", remote.ErrAborted
		}
		return "", err
	}
	return selected, nil
}
