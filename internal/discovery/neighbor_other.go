//go:build !linux && !darwin && !windows && !freebsd && !netbsd && !openbsd

package discovery

import (
	"context"

	"lanscope/internal/domain"
)

func readNeighborTable(_ context.Context) ([]domain.ArpEntry, error) {
	return nil, ErrNeighborTableUnsupported
}
