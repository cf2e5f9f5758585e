//go:build unix

package sys

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

func notifySignals() (<-chan os.Signal, func()) {
	sigCh := make(chan os.Signal, sigsChanBufferSize)
	signal.Notify(sigCh, os.Interrupt, unix.SIGTERM, unix.SIGWINCH)
	return sigCh, func() { signal.Stop(sigCh) }
}
