//go:build windows

package preflight

import "errors"

// ICMP sockets cannot be probed this way on Windows; the pinger decides at run time.
func openICMPSocket(int) error {
	return errors.New("icmp socket probe unsupported on windows")
}
