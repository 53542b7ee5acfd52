package auth

import (
	"fmt"
	"net/url"

	"github.com/juju/webbrowser"
)

// Browser opens the handshake URL for the user
type Browser interface {
	Open(rawURL string) error
}

type systemBrowser struct{}

// SystemBrowser opens URLs with the platform's default web browser
func SystemBrowser() Browser {
	return systemBrowser{}
}

func (systemBrowser) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid browser URL: %w", err)
	}
	return webbrowser.Open(u)
}
