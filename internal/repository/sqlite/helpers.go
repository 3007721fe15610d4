package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// Key Normalization
// ============================================================================

// ouiPrefix returns the upper-case "AA:BB:CC" prefix of a MAC address or OUI.
// Colons, dashes and dots are all accepted as separators, or none at all.
func ouiPrefix(raw string) (string, error) {
	hex := strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.', ' ':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(raw)))

	if len(hex) < 6 {
		return "", fmt.Errorf("mac prefix %q too short", raw)
	}
	for _, r := range hex[:6] {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return "", fmt.Errorf("mac prefix %q is not hex", raw)
		}
	}
	return hex[0:2] + ":" + hex[2:4] + ":" + hex[4:6], nil
}

// ipv4Key converts a dotted IPv4 address to its integer form for range queries
func ipv4Key(ip string) (int64, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return 0, fmt.Errorf("parse ip %q: %w", ip, err)
	}
	if !addr.Is4() {
		return 0, fmt.Errorf("ip %q is not IPv4", ip)
	}
	b := addr.As4()
	return int64(binary.BigEndian.Uint32(b[:])), nil
}
