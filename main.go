package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/derekg/geofront-cli/internal/i18n"
)

func main() {
	// Help text is rendered while the command tree is built, so the
	// language has to be known before that
	i18n.InitI18n(i18n.DetectLanguageFromArgs(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := NewApp(os.Stdin, os.Stdout, os.Stderr)
	err := ExecuteWithFang(ctx, app)
	app.Close()
	stop()

	os.Exit(app.ExitCode(err))
}
