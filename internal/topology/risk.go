package topology

const maxRisk = 100

// Per-port risk weights. Any open port not listed scores lowRisk.
const (
	criticalRisk = 30
	upnpRisk     = 25
	highRisk     = 20
	webRisk      = 10
	lowRisk      = 1
)

var portRisk = map[uint16]int{
	// cleartext remote access
	21:   criticalRisk,
	23:   criticalRisk,
	69:   criticalRisk,
	3389: criticalRisk,
	5900: criticalRisk,

	1900: upnpRisk,
	5351: upnpRisk,

	22:    highRisk,
	25:    highRisk,
	110:   highRisk,
	139:   highRisk,
	143:   highRisk,
	445:   highRisk,
	1433:  highRisk,
	1521:  highRisk,
	2375:  highRisk,
	3306:  highRisk,
	5432:  highRisk,
	6379:  highRisk,
	9200:  highRisk,
	11211: highRisk,
	27017: highRisk,

	80:   webRisk,
	443:  webRisk,
	8000: webRisk,
	8080: webRisk,
	8443: webRisk,
}

// RiskScore sums per-port weights and clamps to 100. The sum does not depend
// on port order.
func RiskScore(ports []uint16) uint8 {
	total := 0
	for _, p := range ports {
		if w, ok := portRisk[p]; ok {
			total += w
		} else {
			total += lowRisk
		}
		if total >= maxRisk {
			return maxRisk
		}
	}
	return uint8(total)
}
