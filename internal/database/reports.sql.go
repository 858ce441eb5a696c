package database

import (
	"context"

	"github.com/google/uuid"
)

const createOrUpdateReport = `-- name: CreateOrUpdateReport :exec
INSERT INTO reports (
object_key, size_bytes, session_id)
VALUES ($1, $2, $3)
ON CONFLICT (session_id)
DO UPDATE SET
    object_key = EXCLUDED.object_key,
    size_bytes = EXCLUDED.size_bytes
`

type CreateOrUpdateReportParams struct {
	ObjectKey string
	SizeBytes int64
	SessionID uuid.UUID
}

func (q *Queries) CreateOrUpdateReport(ctx context.Context, arg CreateOrUpdateReportParams) error {
	_, err := q.db.ExecContext(ctx, createOrUpdateReport, arg.ObjectKey, arg.SizeBytes, arg.SessionID)
	return err
}

const getReportBySession = `-- name: GetReportBySession :one
SELECT id, object_key, size_bytes, session_id, created_at FROM reports WHERE session_id=$1
`

func (q *Queries) GetReportBySession(ctx context.Context, sessionID uuid.UUID) (Report, error) {
	row := q.db.QueryRowContext(ctx, getReportBySession, sessionID)
	var i Report
	err := row.Scan(
		&i.ID,
		&i.ObjectKey,
		&i.SizeBytes,
		&i.SessionID,
		&i.CreatedAt,
	)
	return i, err
}
