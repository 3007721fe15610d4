package domain

import "fmt"

// wellKnownPorts maps TCP/UDP ports to short service names
var wellKnownPorts = map[uint16]string{
	20:    "ftp-data",
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "dns",
	67:    "dhcp",
	80:    "http",
	110:   "pop3",
	111:   "rpcbind",
	135:   "msrpc",
	139:   "netbios-ssn",
	143:   "imap",
	161:   "snmp",
	389:   "ldap",
	443:   "https",
	445:   "smb",
	465:   "smtps",
	515:   "lpd",
	548:   "afp",
	554:   "rtsp",
	587:   "submission",
	631:   "ipp",
	993:   "imaps",
	995:   "pop3s",
	1433:  "mssql",
	1521:  "oracle",
	1883:  "mqtt",
	1900:  "upnp",
	2049:  "nfs",
	3306:  "mysql",
	3389:  "rdp",
	5000:  "upnp-http",
	5001:  "synology",
	5060:  "sip",
	5351:  "nat-pmp",
	5353:  "mdns",
	5432:  "postgres",
	5555:  "adb",
	5900:  "vnc",
	6379:  "redis",
	6443:  "k8s-api",
	8000:  "http-alt",
	8006:  "proxmox",
	8008:  "http-alt",
	8009:  "cast",
	8080:  "http-alt",
	8291:  "winbox",
	8443:  "https-alt",
	8554:  "rtsp-alt",
	8883:  "mqtts",
	9090:  "prometheus",
	9100:  "jetdirect",
	27017: "mongodb",
	32400: "plex",
	49152: "upnp-alt",
	62078: "iphone-sync",
}

// ServiceName returns the well-known service name for a port, or "unknown-N"
func ServiceName(port uint16) string {
	if name, ok := wellKnownPorts[port]; ok {
		return name
	}
	return fmt.Sprintf("unknown-%d", port)
}
