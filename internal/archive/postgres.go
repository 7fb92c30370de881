package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer pgxpool.Pool 的子集
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS game_archives (
		id           TEXT PRIMARY KEY,
		room_id      TEXT NOT NULL,
		script_id    TEXT NOT NULL,
		winner       TEXT NOT NULL DEFAULT '',
		reason       TEXT NOT NULL DEFAULT '',
		record       JSONB NOT NULL,
		archived_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_game_archives_room_id ON game_archives (room_id);
`

const insertSQL = `
	INSERT INTO game_archives (id, room_id, script_id, winner, reason, record, archived_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
`

// PostgresSink 写入 PostgreSQL game_archives 表
type PostgresSink struct {
	db Execer
}

// NewPostgresSink 创建 PostgreSQL 归档
func NewPostgresSink(db Execer) *PostgresSink {
	return &PostgresSink{db: db}
}

// EnsureSchema 创建归档表
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create game_archives: %w", err)
	}
	return nil
}

// Archive 插入一条归档，重复 ID 忽略
func (s *PostgresSink) Archive(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal archive: %w", err)
	}

	_, err = s.db.Exec(ctx, insertSQL,
		rec.ID,
		rec.RoomID,
		rec.ScriptID,
		string(rec.Winner),
		rec.Reason,
		data,
		rec.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert archive: %w", err)
	}
	return nil
}
