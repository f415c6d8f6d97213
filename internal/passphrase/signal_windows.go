//go:build windows

package passphrase

import "os"

func terminalSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
