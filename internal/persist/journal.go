package persist

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/turnloop/internal/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// ErrUnknownDriver is returned by Open for an unsupported journal driver.
var ErrUnknownDriver = errors.New("unknown journal driver")

// ActRecord is one completed action inside a round.
type ActRecord struct {
	Pass     int
	Actor    uint64
	Player   bool
	Movement bool
	Died     bool
}

// RoundRecord is the journal row for one finished round.
type RoundRecord struct {
	RunID      uuid.UUID
	Round      int
	Passes     int
	Actions    int
	Fatal      bool
	CapReached bool
	Took       time.Duration
	Acts       []ActRecord
	Digest     []byte // set by Chain.Seal
	RecordedAt time.Time
}

// JournalStore persists finished rounds. Append writes a batch atomically.
type JournalStore interface {
	Append(ctx context.Context, records []RoundRecord) error
	Close() error
}

// Open returns the store selected by cfg.Driver. Driver "none" returns a
// nil store and no error.
func Open(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (JournalStore, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "postgres":
		j, err := OpenPgJournal(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "sqlite":
		j, err := OpenSQLiteJournal(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		return j, nil
	}
	return nil, fmt.Errorf("journal driver %q: %w", cfg.Driver, ErrUnknownDriver)
}

// --- digest chain ---

// Chain links round records with blake2b-256: each digest covers the
// previous digest and the record's canonical bytes, so two runs with the
// same seed produce the same head.
type Chain struct {
	head [blake2b.Size256]byte
}

// Seal computes and stores r's digest and advances the chain.
func (c *Chain) Seal(r *RoundRecord) {
	buf := make([]byte, 0, blake2b.Size256+64+len(r.Acts)*16)
	buf = append(buf, c.head[:]...)
	buf = canonical(buf, r)
	c.head = blake2b.Sum256(buf)
	r.Digest = append([]byte(nil), c.head[:]...)
}

// Head returns the digest of the last sealed record.
func (c *Chain) Head() []byte {
	return append([]byte(nil), c.head[:]...)
}

// canonical encodes the replay-relevant fields. Wall time (Took,
// RecordedAt) and the run id are excluded.
func canonical(buf []byte, r *RoundRecord) []byte {
	buf = binary.AppendUvarint(buf, uint64(r.Round))
	buf = binary.AppendUvarint(buf, uint64(r.Passes))
	buf = binary.AppendUvarint(buf, uint64(r.Actions))
	buf = append(buf, flags(r.Fatal, r.CapReached, false))
	buf = binary.AppendUvarint(buf, uint64(len(r.Acts)))
	for _, a := range r.Acts {
		buf = binary.AppendUvarint(buf, uint64(a.Pass))
		buf = binary.AppendUvarint(buf, a.Actor)
		buf = append(buf, flags(a.Player, a.Movement, a.Died))
	}
	return buf
}

func flags(a, b, c bool) byte {
	var f byte
	if a {
		f |= 1
	}
	if b {
		f |= 2
	}
	if c {
		f |= 4
	}
	return f
}

// --- postgres ---

// PgJournal writes rounds to postgres through pgxpool.
type PgJournal struct {
	db *DB
}

// OpenPgJournal connects, migrates and returns a postgres journal.
func OpenPgJournal(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*PgJournal, error) {
	db, err := NewDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db.Pool); err != nil {
		db.Close()
		return nil, err
	}
	return &PgJournal{db: db}, nil
}

// Append atomically writes a batch of round records in a single transaction.
func (j *PgJournal) Append(ctx context.Context, records []RoundRecord) error {
	tx, err := j.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		run := r.RunID.String()
		if _, err := tx.Exec(ctx,
			`INSERT INTO round_journal (run_id, round, passes, actions, fatal, cap_reached, took_us, digest, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			run, r.Round, r.Passes, r.Actions, r.Fatal, r.CapReached, r.Took.Microseconds(), r.Digest, r.RecordedAt,
		); err != nil {
			return fmt.Errorf("journal insert round %d: %w", r.Round, err)
		}
		for i, a := range r.Acts {
			if _, err := tx.Exec(ctx,
				`INSERT INTO round_acts (run_id, round, seq, pass, actor, player, movement, died)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				run, r.Round, i, a.Pass, int64(a.Actor), a.Player, a.Movement, a.Died,
			); err != nil {
				return fmt.Errorf("journal insert act %d/%d: %w", r.Round, i, err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (j *PgJournal) Close() error {
	j.db.Close()
	return nil
}
