// Package sql implements store.BlocklistStore on database/sql, matching
// the deployment where the blocklists live in homeserver tables: one
// table of URL substrings and one table of MD5 hex digests.
//
// The driver is the caller's choice; badlistd wires pgx's stdlib
// adapter. Table names are interpolated, not bound, so they must be
// pre-validated identifiers (config enforces this).
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/haukened/badlist/internal/badlist/repos/store"
)

// sqlStore serves both lists out of two configured tables.
type sqlStore struct {
	db          *sql.DB
	linksTable  string
	hashesTable string
}

// New wraps an opened *sql.DB. The tables are not required to exist yet;
// the availability gate discovers that through the probes.
func New(db *sql.DB, linksTable, hashesTable string) store.BlocklistStore {
	return &sqlStore{db: db, linksTable: linksTable, hashesTable: hashesTable}
}

func (s *sqlStore) FetchAllLinks(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT url FROM %s", s.linksTable))
	if err != nil {
		return nil, fmt.Errorf("fetch links: %w", err)
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// ProbeLinks reads at most one row of the links table. An empty table is
// still a usable table, so ErrNoRows counts as success.
func (s *sqlStore) ProbeLinks(ctx context.Context) error {
	return s.probe(ctx, fmt.Sprintf("SELECT url FROM %s LIMIT 1", s.linksTable))
}

func (s *sqlStore) ProbeHashes(ctx context.Context) error {
	return s.probe(ctx, fmt.Sprintf("SELECT md5 FROM %s LIMIT 1", s.hashesTable))
}

func (s *sqlStore) probe(ctx context.Context, query string) error {
	var ignored string
	err := s.db.QueryRowContext(ctx, query).Scan(&ignored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}

func (s *sqlStore) LookupHash(ctx context.Context, hexDigest string) (bool, error) {
	var found string
	query := fmt.Sprintf("SELECT md5 FROM %s WHERE md5 = $1", s.hashesTable)
	err := s.db.QueryRowContext(ctx, query, hexDigest).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup hash: %w", err)
	}
	return true, nil
}

func (s *sqlStore) Stats() store.Stats {
	st := store.Stats{Backend: "sql", LinkCount: -1, HashCount: -1}
	ctx := context.Background()
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.linksTable)).Scan(&n); err == nil {
		st.LinkCount = n
	}
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.hashesTable)).Scan(&n); err == nil {
		st.HashCount = n
	}
	return st
}

func (s *sqlStore) Close() error { return s.db.Close() }
