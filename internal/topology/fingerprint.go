package topology

import (
	"fmt"
	"sort"

	"github.com/mitchellh/hashstructure/v2"

	"lanscope/internal/domain"
)

type nodeDigest struct {
	IP       string
	MAC      string
	Hostname string
	Vendor   string
	Type     string
	Ports    []uint16
	Risk     uint8
}

type edgeDigest struct {
	A, B string
	Type string
}

type graphDigest struct {
	Nodes []nodeDigest
	Edges []edgeDigest
}

// Fingerprint hashes the graph content independently of insertion order and
// timestamps. Two graphs built from the same discovery result share a
// fingerprint.
func Fingerprint(g *Graph) (uint64, error) {
	d := graphDigest{
		Nodes: make([]nodeDigest, 0, g.NodeCount()),
		Edges: make([]edgeDigest, 0, g.EdgeCount()),
	}
	for _, n := range g.nodes {
		d.Nodes = append(d.Nodes, nodeDigest{
			IP:       n.IP,
			MAC:      n.MAC,
			Hostname: n.Hostname,
			Vendor:   n.Vendor,
			Type:     n.DeviceType.String(),
			Ports:    n.PortNumbers(),
			Risk:     n.RiskScore,
		})
	}
	for _, e := range g.edges {
		a, b := g.nodes[e.Source].IP, g.nodes[e.Target].IP
		if domain.CompareIP(a, b) > 0 {
			a, b = b, a
		}
		d.Edges = append(d.Edges, edgeDigest{A: a, B: b, Type: string(e.Data.Type)})
	}

	sort.Slice(d.Nodes, func(i, j int) bool {
		return domain.CompareIP(d.Nodes[i].IP, d.Nodes[j].IP) < 0
	})
	sort.Slice(d.Edges, func(i, j int) bool {
		if d.Edges[i].A != d.Edges[j].A {
			return domain.CompareIP(d.Edges[i].A, d.Edges[j].A) < 0
		}
		return domain.CompareIP(d.Edges[i].B, d.Edges[j].B) < 0
	})

	h, err := hashstructure.Hash(d, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("hash graph: %w", err)
	}
	return h, nil
}
