//go:build darwin || windows || freebsd || netbsd || openbsd

package discovery

import (
	"context"
	"fmt"
	"os/exec"

	"lanscope/internal/domain"
)

func readNeighborTable(ctx context.Context) ([]domain.ArpEntry, error) {
	out, err := exec.CommandContext(ctx, "arp", "-a").Output()
	if err != nil {
		return nil, fmt.Errorf("arp -a: %w", err)
	}
	return ParseArpA(string(out)), nil
}
