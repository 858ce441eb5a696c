package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saisaket2004/ai-resume-analyzer/internal/database"
)

// flakyDBTX fails the first n ExecContext calls, then succeeds. The other
// DBTX methods are never reached by status updates.
type flakyDBTX struct {
	failures int
	execs    int
}

func (d *flakyDBTX) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	d.execs++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection reset")
	}
	return driver.RowsAffected(1), nil
}

func (d *flakyDBTX) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, errors.New("not implemented")
}

func (d *flakyDBTX) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (d *flakyDBTX) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func TestDecodeSession(t *testing.T) {
	id := uuid.New()
	body, err := json.Marshal(Session{ID: id, Status: StatusQueued})
	require.NoError(t, err)

	got, err := decodeSession(body)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}

func TestDecodeSessionRejectsGarbage(t *testing.T) {
	_, err := decodeSession([]byte("not json"))
	assert.ErrorContains(t, err, "unmarshalling")
}

func TestDecodeSessionRejectsMissingID(t *testing.T) {
	// Valid JSON without a session id must be rejected, otherwise failure
	// handling would write status rows against the zero UUID.
	_, err := decodeSession([]byte(`{"status":"queued"}`))
	assert.ErrorContains(t, err, "no session id")
}

func TestSetSessionStatusRetriesTransientFailure(t *testing.T) {
	dbtx := &flakyDBTX{failures: 2}
	setSessionStatus(database.New(dbtx), zap.NewNop().Sugar(), uuid.New(), StatusCompleted)

	assert.Equal(t, 3, dbtx.execs)
	assert.Zero(t, dbtx.failures)
}
