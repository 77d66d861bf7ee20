package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/ingest"
)

const revisionColumns = `event_id, author, kind, created_at, content, tags, content_hash, sig`

// Current returns the stored revision of key, or nil.
func (s *SQLite) Current(ctx context.Context, key eventstate.Key) (*ingest.Revision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+revisionColumns+`
		FROM event_state
		WHERE state_key = ?
	`, key.String())

	r, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current %s: %w", key, err)
	}
	return &r, nil
}

// CompareAndSwap stores next under key if the stored revision is still
// expected. A first write uses ON CONFLICT DO NOTHING so a concurrent first
// write makes it lose; a replacement matches on the expected event id.
func (s *SQLite) CompareAndSwap(ctx context.Context, key eventstate.Key, expected *ingest.Revision, next ingest.Revision) (bool, error) {
	tags, err := marshalTags(next.Tags)
	if err != nil {
		return false, fmt.Errorf("compare-and-swap %s: %w", key, err)
	}

	var res sql.Result
	if expected == nil {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO event_state
			(state_key, kind, author, discriminator, event_id, created_at, content, tags, content_hash, sig)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(state_key) DO NOTHING
		`,
			key.String(),
			key.Kind,
			key.Author,
			key.Discriminator,
			next.EventID,
			next.CreatedAt,
			next.Content,
			tags,
			next.ContentHash,
			next.Sig,
		)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE event_state
			SET event_id = ?, created_at = ?, content = ?, tags = ?, content_hash = ?, sig = ?
			WHERE state_key = ? AND event_id = ?
		`,
			next.EventID,
			next.CreatedAt,
			next.Content,
			tags,
			next.ContentHash,
			next.Sig,
			key.String(),
			expected.EventID,
		)
	}
	if err != nil {
		return false, fmt.Errorf("compare-and-swap %s: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("compare-and-swap %s: rows affected: %w", key, err)
	}
	return n == 1, nil
}

// Revisions lists stored revisions matching filter, ordered by key.
func (s *SQLite) Revisions(ctx context.Context, filter ingest.RevisionFilter) ([]ingest.Revision, error) {
	query := `SELECT ` + revisionColumns + ` FROM event_state`
	var where []string
	var args []any
	if len(filter.Kinds) > 0 {
		where = append(where, "kind IN ("+placeholders(len(filter.Kinds))+")")
		for _, k := range filter.Kinds {
			args = append(args, k)
		}
	}
	if len(filter.Authors) > 0 {
		where = append(where, "author IN ("+placeholders(len(filter.Authors))+")")
		for _, a := range filter.Authors {
			args = append(args, a)
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY state_key COLLATE BINARY ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revisions := []ingest.Revision{}
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revisions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(row scanner) (ingest.Revision, error) {
	var (
		r    ingest.Revision
		tags string
	)
	if err := row.Scan(&r.EventID, &r.Author, &r.Kind, &r.CreatedAt, &r.Content, &tags, &r.ContentHash, &r.Sig); err != nil {
		return ingest.Revision{}, err
	}
	parsed, err := unmarshalTags(tags)
	if err != nil {
		return ingest.Revision{}, fmt.Errorf("revision %s: %w", r.EventID, err)
	}
	r.Tags = parsed
	return r, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
