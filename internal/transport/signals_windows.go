//go:build windows

package transport

import (
	"os"
	"os/exec"
	"os/signal"
)

// ignoreInterrupts swallows Ctrl+C while the child runs
func ignoreInterrupts() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
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

func exitStatus(ee *exec.ExitError) int {
	return ee.ExitCode()
}
