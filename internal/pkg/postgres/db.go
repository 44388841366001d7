package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/persistence"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/processor"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	return &DB{pool: pool}, nil
}

// RunInTx opens one transaction, runs f with a tx scoped store,
// commits on nil and rolls back on error
func (db *DB) RunInTx(ctx context.Context, f func(ctx context.Context, st processor.Store) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("can't begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := f(ctx, &Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("can't commit: %w", err)
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'meetings_events')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}

// Secret loads the shared secret for a server origin, "" when unknown
func (db *DB) Secret(ctx context.Context, serverURL string) (string, error) {
	var res string
	err := db.pool.QueryRow(ctx, `SELECT secret FROM servers WHERE url = $1`, serverURL).Scan(&res)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("can't load secret: %w", err)
	}
	return res, nil
}

// RunningMeetingOverview loads the live meeting row for a status push,
// nil when the meeting is not running. No locking, read only
func (db *DB) RunningMeetingOverview(ctx context.Context, internalMeetingID string) (*persistence.Meeting, error) {
	return scanMeeting(db.pool.QueryRow(ctx, `SELECT `+meetingCols+` FROM meetings m
		JOIN meetings_events me ON m.meeting_event_id = me.id
		WHERE me.internal_meeting_id = $1`, internalMeetingID))
}

// Servers loads all known servers
func (db *DB) Servers(ctx context.Context) ([]persistence.Server, error) {
	rows, err := db.pool.Query(ctx, `SELECT guid, url, secret, shared_secret_guid,
		shared_secret_name, institution_guid FROM servers ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("can't load servers: %w", err)
	}
	defer rows.Close()
	var res []persistence.Server
	for rows.Next() {
		var s persistence.Server
		if err := rows.Scan(&s.GUID, &s.URL, &s.Secret, &s.SharedSecretGUID,
			&s.SharedSecretName, &s.InstitutionGUID); err != nil {
			return nil, fmt.Errorf("can't scan server: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
