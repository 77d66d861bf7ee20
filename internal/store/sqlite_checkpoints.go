package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/relaysync/internal/checkpoint"
)

// GetCheckpoint returns the checkpoint of shard id, or nil.
func (s *SQLite) GetCheckpoint(ctx context.Context, id checkpoint.ShardID) (*checkpoint.ShardCheckpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT shard_id, last_created_at, last_event_id, cursor
		FROM shard_checkpoints
		WHERE shard_id = ?
	`, string(id))

	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint %s: %w", id, err)
	}
	return &cp, nil
}

// PutCheckpoint replaces or inserts cp in one statement.
func (s *SQLite) PutCheckpoint(ctx context.Context, cp checkpoint.ShardCheckpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shard_checkpoints (shard_id, last_created_at, last_event_id, cursor)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(shard_id) DO UPDATE SET
			last_created_at = excluded.last_created_at,
			last_event_id = excluded.last_event_id,
			cursor = excluded.cursor
	`, string(cp.ShardID), uint32(cp.LastCreatedAt), nullString(cp.LastEventID), nullString(cp.Cursor))
	if err != nil {
		return fmt.Errorf("put checkpoint %s: %w", cp.ShardID, err)
	}
	return nil
}

// CompareAndSwapCheckpoint writes next if the stored checkpoint still
// equals expected. NULL columns compare with IS.
func (s *SQLite) CompareAndSwapCheckpoint(ctx context.Context, expected *checkpoint.ShardCheckpoint, next checkpoint.ShardCheckpoint) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if expected == nil {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO shard_checkpoints (shard_id, last_created_at, last_event_id, cursor)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(shard_id) DO NOTHING
		`, string(next.ShardID), uint32(next.LastCreatedAt), nullString(next.LastEventID), nullString(next.Cursor))
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE shard_checkpoints
			SET last_created_at = ?, last_event_id = ?, cursor = ?
			WHERE shard_id = ? AND last_created_at = ? AND last_event_id IS ? AND cursor IS ?
		`,
			uint32(next.LastCreatedAt), nullString(next.LastEventID), nullString(next.Cursor),
			string(next.ShardID), uint32(expected.LastCreatedAt), nullString(expected.LastEventID), nullString(expected.Cursor),
		)
	}
	if err != nil {
		return false, fmt.Errorf("compare-and-swap checkpoint %s: %w", next.ShardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("compare-and-swap checkpoint %s: rows affected: %w", next.ShardID, err)
	}
	return n == 1, nil
}

// Checkpoints returns every checkpoint ordered by shard id.
func (s *SQLite) Checkpoints(ctx context.Context) ([]checkpoint.ShardCheckpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT shard_id, last_created_at, last_event_id, cursor
		FROM shard_checkpoints
		ORDER BY shard_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	cps := []checkpoint.ShardCheckpoint{}
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cps = append(cps, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return cps, nil
}

func scanCheckpoint(row scanner) (checkpoint.ShardCheckpoint, error) {
	var (
		cp              checkpoint.ShardCheckpoint
		id              string
		createdAt       uint32
		eventID, cursor sql.NullString
	)
	if err := row.Scan(&id, &createdAt, &eventID, &cursor); err != nil {
		return checkpoint.ShardCheckpoint{}, err
	}
	cp.ShardID = checkpoint.ShardID(id)
	cp.LastCreatedAt = checkpoint.EpochSeconds(createdAt)
	if eventID.Valid {
		cp.LastEventID = &eventID.String
	}
	if cursor.Valid {
		cp.Cursor = &cursor.String
	}
	return cp, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
