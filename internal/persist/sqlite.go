package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// SQLiteJournal writes rounds to a local SQLite file.
type SQLiteJournal struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLiteJournal opens (or creates) the database at path and migrates it.
func OpenSQLiteJournal(ctx context.Context, path string, log *zap.Logger) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if err := runSQLiteMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db, log: log}, nil
}

func (j *SQLiteJournal) Append(ctx context.Context, records []RoundRecord) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		run := r.RunID.String()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO round_journal (run_id, round, passes, actions, fatal, cap_reached, took_us, digest, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run, r.Round, r.Passes, r.Actions, r.Fatal, r.CapReached, r.Took.Microseconds(), r.Digest,
			r.RecordedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("journal insert round %d: %w", r.Round, err)
		}
		for i, a := range r.Acts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO round_acts (run_id, round, seq, pass, actor, player, movement, died)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				run, r.Round, i, a.Pass, int64(a.Actor), a.Player, a.Movement, a.Died,
			); err != nil {
				return fmt.Errorf("journal insert act %d/%d: %w", r.Round, i, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal commit: %w", err)
	}
	j.log.Debug("journal flushed", zap.Int("rounds", len(records)))
	return nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
