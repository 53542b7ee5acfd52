//go:build !windows

package transport

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// ignoreInterrupts catches the signals a terminal sends to the whole
// foreground process group, so only the child reacts to them
func ignoreInterrupts() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// exitStatus follows the shell convention of 128+n for a child killed by signal n
func exitStatus(ee *exec.ExitError) int {
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ee.ExitCode()
}
