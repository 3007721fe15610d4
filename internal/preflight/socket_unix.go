//go:build !windows

package preflight

import "syscall"

func openICMPSocket(typ int) error {
	fd, err := syscall.Socket(syscall.AF_INET, typ, syscall.IPPROTO_ICMP)
	if err != nil {
		return err
	}
	return syscall.Close(fd)
}
