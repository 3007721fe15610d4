//go:build linux

package discovery

import (
	"context"
	"fmt"
	"os"

	"lanscope/internal/domain"
)

const procNetARP = "/proc/net/arp"

func readNeighborTable(_ context.Context) ([]domain.ArpEntry, error) {
	f, err := os.Open(procNetARP)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", procNetARP, err)
	}
	defer f.Close()
	return ParseProcNetARP(f), nil
}
