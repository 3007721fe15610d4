package repository

import (
	"context"
	"errors"
	"io"

	"lanscope/internal/domain"
)

// ErrNotFound is returned when a lookup has no matching row
var ErrNotFound = errors.New("not found")

// ReferenceStore holds the reference data used to enrich discovered hosts
type ReferenceStore interface {
	// Read operations
	Vendor(ctx context.Context, mac string) (string, error)
	Geo(ctx context.Context, ip string) (domain.GeoLocation, error)
	Counts(ctx context.Context) (vendors, ranges int, err error)

	// Bulk operations
	UpsertVendors(ctx context.Context, vendors map[string]string) (int, error)
	ImportOUI(ctx context.Context, r io.Reader) (int, error)
	ImportGeo(ctx context.Context, r io.Reader) (int, error)
	SeedDefaults(ctx context.Context) (int, error)

	// Close releases resources
	Close() error
}
