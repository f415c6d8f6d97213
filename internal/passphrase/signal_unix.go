//go:build !windows

package passphrase

import (
	"os"
	"syscall"
)

func terminalSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP}
}
