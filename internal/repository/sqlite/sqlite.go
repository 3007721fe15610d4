package sqlite

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"lanscope/internal/domain"
	"lanscope/internal/repository"
)

// Store implements repository.ReferenceStore using SQLite
type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ repository.ReferenceStore = (*Store)(nil)

// New opens (or creates) the reference database at dbPath and migrates it.
// ":memory:" gives a private in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: logrus.WithField("component", "reference")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS oui_vendors (
		prefix TEXT PRIMARY KEY,
		vendor TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS geo_ranges (
		start_ip INTEGER NOT NULL,
		end_ip INTEGER NOT NULL,
		country TEXT,
		city TEXT,
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (start_ip, end_ip)
	);

	CREATE INDEX IF NOT EXISTS idx_geo_ranges_end ON geo_ranges(end_ip);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Vendor returns the vendor registered for the MAC address's OUI prefix
func (s *Store) Vendor(ctx context.Context, mac string) (string, error) {
	prefix, err := ouiPrefix(mac)
	if err != nil {
		return "", err
	}
	var vendor string
	err = s.db.QueryRowContext(ctx, `SELECT vendor FROM oui_vendors WHERE prefix = ?`, prefix).Scan(&vendor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query vendor: %w", err)
	}
	return vendor, nil
}

// Geo returns the narrowest range containing ip
func (s *Store) Geo(ctx context.Context, ip string) (domain.GeoLocation, error) {
	key, err := ipv4Key(ip)
	if err != nil {
		return domain.GeoLocation{}, err
	}

	var (
		country, city sql.NullString
		loc           domain.GeoLocation
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT country, city, latitude, longitude
		FROM geo_ranges
		WHERE start_ip <= ? AND end_ip >= ?
		ORDER BY end_ip - start_ip ASC
		LIMIT 1
	`, key, key).Scan(&country, &city, &loc.Latitude, &loc.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GeoLocation{}, repository.ErrNotFound
	}
	if err != nil {
		return domain.GeoLocation{}, fmt.Errorf("failed to query geo range: %w", err)
	}
	loc.Country = nullToString(country)
	loc.City = nullToString(city)
	return loc, nil
}

// Counts returns the number of vendor prefixes and geo ranges stored
func (s *Store) Counts(ctx context.Context) (vendors, ranges int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM oui_vendors`).Scan(&vendors); err != nil {
		return 0, 0, fmt.Errorf("failed to count vendors: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geo_ranges`).Scan(&ranges); err != nil {
		return 0, 0, fmt.Errorf("failed to count geo ranges: %w", err)
	}
	return vendors, ranges, nil
}

// UpsertVendors writes prefix to vendor mappings in one transaction.
// Invalid prefixes are skipped; the count of rows written is returned.
func (s *Store) UpsertVendors(ctx context.Context, vendors map[string]string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO oui_vendors (prefix, vendor) VALUES (?, ?)
		ON CONFLICT(prefix) DO UPDATE SET vendor = excluded.vendor, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare vendor insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for raw, vendor := range vendors {
		prefix, err := ouiPrefix(raw)
		vendor = strings.TrimSpace(vendor)
		if err != nil || vendor == "" {
			s.log.Debugf("Reference: skipping vendor row %q", raw)
			continue
		}
		if _, err := stmt.ExecContext(ctx, prefix, vendor); err != nil {
			return 0, fmt.Errorf("failed to upsert vendor %s: %w", prefix, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit vendors: %w", err)
	}
	return written, nil
}

// ImportOUI loads vendor prefixes from CSV. Two-column files are read as
// prefix,vendor; files whose header carries an "Assignment" column are read
// in the IEEE registry layout.
func (s *Store) ImportOUI(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	prefixCol, vendorCol := 0, 1
	vendors := make(map[string]string)
	for line := 0; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read OUI csv: %w", err)
		}
		if line == 0 {
			if col := indexFold(rec, "Assignment"); col >= 0 {
				prefixCol, vendorCol = col, indexFold(rec, "Organization Name")
				if vendorCol < 0 {
					vendorCol = col + 1
				}
				continue
			}
			if indexFold(rec, "prefix") >= 0 {
				continue
			}
		}
		if len(rec) <= max(prefixCol, vendorCol) {
			continue
		}
		vendors[rec[prefixCol]] = rec[vendorCol]
	}

	n, err := s.UpsertVendors(ctx, vendors)
	if err != nil {
		return 0, err
	}
	s.log.Infof("Reference: imported %d vendor prefixes", n)
	return n, nil
}

// ImportGeo loads IPv4 ranges from CSV rows of
// start_ip,end_ip,country,city,latitude,longitude. A header row is optional.
func (s *Store) ImportGeo(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO geo_ranges (start_ip, end_ip, country, city, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(start_ip, end_ip) DO UPDATE SET
			country = excluded.country,
			city = excluded.city,
			latitude = excluded.latitude,
			longitude = excluded.longitude
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare geo insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read geo csv: %w", err)
		}
		row, err := parseGeoRow(rec)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return 0, fmt.Errorf("geo csv line %d: %w", line, err)
		}
		if _, err := stmt.ExecContext(ctx, row.start, row.end,
			stringToNull(row.loc.Country), stringToNull(row.loc.City),
			row.loc.Latitude, row.loc.Longitude); err != nil {
			return 0, fmt.Errorf("failed to insert geo range: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit geo ranges: %w", err)
	}
	s.log.Infof("Reference: imported %d geo ranges", written)
	return written, nil
}

// SeedDefaults writes the built-in vendor table
func (s *Store) SeedDefaults(ctx context.Context) (int, error) {
	return s.UpsertVendors(ctx, defaultVendors)
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

type geoRow struct {
	start, end int64
	loc        domain.GeoLocation
}

func parseGeoRow(rec []string) (geoRow, error) {
	if len(rec) < 3 {
		return geoRow{}, fmt.Errorf("expected at least 3 columns, got %d", len(rec))
	}
	start, err := ipv4Key(rec[0])
	if err != nil {
		return geoRow{}, err
	}
	end, err := ipv4Key(rec[1])
	if err != nil {
		return geoRow{}, err
	}
	if end < start {
		return geoRow{}, fmt.Errorf("range %s-%s is reversed", rec[0], rec[1])
	}

	row := geoRow{start: start, end: end}
	row.loc.Country = strings.TrimSpace(rec[2])
	if len(rec) > 3 {
		row.loc.City = strings.TrimSpace(rec[3])
	}
	if len(rec) > 5 {
		if row.loc.Latitude, err = strconv.ParseFloat(strings.TrimSpace(rec[4]), 64); err != nil {
			return geoRow{}, fmt.Errorf("latitude: %w", err)
		}
		if row.loc.Longitude, err = strconv.ParseFloat(strings.TrimSpace(rec[5]), 64); err != nil {
			return geoRow{}, fmt.Errorf("longitude: %w", err)
		}
	}
	return row, nil
}

func indexFold(rec []string, name string) int {
	for i, v := range rec {
		if strings.EqualFold(strings.TrimSpace(v), name) {
			return i
		}
	}
	return -1
}
