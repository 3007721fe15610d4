// Package repository defines the reference data access interface for lanscope.
//
// Discovery results are enriched from two local tables: MAC vendor prefixes
// (OUI) and IPv4 geolocation ranges. The sqlite subpackage implements the
// store on the pure-Go modernc SQLite driver.
//
// # Import formats
//
// OUI data is read from CSV, either as two columns (prefix, vendor) or in the
// IEEE registry layout (Registry, Assignment, Organization Name, ...).
// Geolocation data is read from CSV rows of
// start_ip, end_ip, country, city, latitude, longitude.
//
// # Testing
//
// The store is tested against in-memory databases.
package repository
