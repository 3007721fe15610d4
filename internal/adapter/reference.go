package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"lanscope/internal/domain"
	"lanscope/internal/repository"
)

const referenceQueryTimeout = 2 * time.Second

// VendorSource is the store side of vendor lookups
type VendorSource interface {
	Vendor(ctx context.Context, mac string) (string, error)
}

// GeoSource is the store side of geolocation lookups
type GeoSource interface {
	Geo(ctx context.Context, ip string) (domain.GeoLocation, error)
}

// VendorLookup caches MAC vendor answers, misses included
type VendorLookup struct {
	source VendorSource
	cache  *cache.Cache
	log    *logrus.Entry
}

// NewVendorLookup wraps source with a cache of the given TTL
func NewVendorLookup(source VendorSource, ttl time.Duration) *VendorLookup {
	return &VendorLookup{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
		log:    logrus.WithField("component", "reference"),
	}
}

// LookupVendor returns the vendor for the MAC's OUI prefix
func (v *VendorLookup) LookupVendor(mac string) (string, bool) {
	key := mac
	if len(key) > 8 {
		key = key[:8]
	}
	if cached, ok := v.cache.Get(key); ok {
		name := cached.(string)
		return name, name != ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), referenceQueryTimeout)
	defer cancel()
	name, err := v.source.Vendor(ctx, mac)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		v.log.WithError(err).Debugf("Reference: vendor lookup for %s failed", mac)
		return "", false
	}
	v.cache.SetDefault(key, name)
	return name, name != ""
}

// GeoLookup caches geolocation answers, misses included
type GeoLookup struct {
	source GeoSource
	cache  *cache.Cache
	log    *logrus.Entry
}

// NewGeoLookup wraps source with a cache of the given TTL
func NewGeoLookup(source GeoSource, ttl time.Duration) *GeoLookup {
	return &GeoLookup{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
		log:    logrus.WithField("component", "reference"),
	}
}

// Locate returns the location of a public IPv4 address
func (g *GeoLookup) Locate(ip string) (domain.GeoLocation, bool) {
	if cached, ok := g.cache.Get(ip); ok {
		loc := cached.(domain.GeoLocation)
		return loc, !loc.IsZero()
	}

	ctx, cancel := context.WithTimeout(context.Background(), referenceQueryTimeout)
	defer cancel()
	loc, err := g.source.Geo(ctx, ip)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		g.log.WithError(err).Debugf("Reference: geo lookup for %s failed", ip)
		return domain.GeoLocation{}, false
	}
	g.cache.SetDefault(ip, loc)
	return loc, !loc.IsZero()
}
