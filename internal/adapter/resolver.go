package adapter

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"lanscope/internal/discovery"
)

// ChainResolver asks each resolver in turn for the addresses still unnamed
// and caches every answer
type ChainResolver struct {
	resolvers []discovery.HostnameResolver
	cache     *cache.Cache
	log       *logrus.Entry
}

// NewChainResolver creates a resolver chain whose answers live for ttl
func NewChainResolver(ttl time.Duration, resolvers ...discovery.HostnameResolver) *ChainResolver {
	return &ChainResolver{
		resolvers: resolvers,
		cache:     cache.New(ttl, 2*ttl),
		log:       logrus.WithField("component", "resolver"),
	}
}

// Resolve returns hostnames for the addresses that any resolver could name
func (c *ChainResolver) Resolve(ctx context.Context, ips []string) map[string]string {
	names := make(map[string]string)
	pending := make([]string, 0, len(ips))
	for _, ip := range ips {
		if name, ok := c.cache.Get(ip); ok {
			names[ip] = name.(string)
			continue
		}
		pending = append(pending, ip)
	}
	cached := len(names)

	for _, r := range c.resolvers {
		if len(pending) == 0 || ctx.Err() != nil {
			break
		}
		found := r.Resolve(ctx, pending)
		remaining := pending[:0]
		for _, ip := range pending {
			if name := found[ip]; name != "" {
				names[ip] = name
				c.cache.SetDefault(ip, name)
				continue
			}
			remaining = append(remaining, ip)
		}
		pending = remaining
	}

	c.log.Debugf("Resolver: %d names (%d cached) for %d addresses", len(names), cached, len(ips))
	return names
}
