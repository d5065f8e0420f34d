package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/e1ixyz/ReportSystem-sub000/internal/config"
	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

// PostgresBackend persists tickets in a tickets table with a child
// ticket_evidence table. Save runs as a single transaction that upserts the
// ticket row and replaces its evidence rows.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresBackend establishes a connection pool from the storage config.
func NewPostgresBackend(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*PostgresBackend, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return &PostgresBackend{pool: pool, logger: logger}, nil
}

// Init creates the schema. Idempotent.
func (b *PostgresBackend) Init(ctx context.Context) error {
	const schema = `
        CREATE TABLE IF NOT EXISTS tickets (
            id               BIGINT PRIMARY KEY,
            reporter         TEXT NOT NULL,
            target           TEXT NOT NULL,
            type_key         TEXT NOT NULL,
            type_display     TEXT NOT NULL,
            category_key     TEXT NOT NULL,
            category_display TEXT NOT NULL,
            narrative        TEXT NOT NULL DEFAULT '',
            count            INT NOT NULL DEFAULT 1,
            status           TEXT NOT NULL,
            assignee         TEXT,
            created_at       TIMESTAMPTZ NOT NULL,
            last_activity_at TIMESTAMPTZ NOT NULL,
            closed_at        TIMESTAMPTZ
        );
        CREATE TABLE IF NOT EXISTS ticket_evidence (
            ticket_id BIGINT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
            seq       INT NOT NULL,
            ts        TIMESTAMPTZ NOT NULL,
            speaker   TEXT NOT NULL,
            channel   TEXT NOT NULL,
            body      TEXT NOT NULL,
            PRIMARY KEY (ticket_id, seq)
        );`
	if _, err := b.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// LoadAll scans every ticket row plus its ordered evidence. Rows that fail
// to scan are skipped with a warning.
func (b *PostgresBackend) LoadAll(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT id, reporter, target, type_key, type_display, category_key, category_display,
               narrative, count, status, assignee, created_at, last_activity_at, closed_at
        FROM tickets`
	rows, err := b.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*domain.Ticket)
	var order []int64
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(
			&t.ID,
			&t.Reporter,
			&t.Target,
			&t.Classification.TypeKey,
			&t.Classification.TypeDisplay,
			&t.Classification.CategoryKey,
			&t.Classification.CategoryDisplay,
			&t.Narrative,
			&t.Count,
			&t.Status,
			&t.Assignee,
			&t.CreatedAt,
			&t.LastActivityAt,
			&t.ClosedAt,
		); err != nil {
			b.logger.Warn("skipping corrupt ticket row", zap.Error(err))
			continue
		}
		tt := t
		byID[t.ID] = &tt
		order = append(order, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan tickets: %w", err)
	}

	if err := b.attachEvidence(ctx, byID); err != nil {
		return nil, err
	}

	tickets := make([]domain.Ticket, 0, len(order))
	for _, id := range order {
		tickets = append(tickets, *byID[id])
	}
	return tickets, nil
}

func (b *PostgresBackend) attachEvidence(ctx context.Context, byID map[int64]*domain.Ticket) error {
	const query = `
        SELECT ticket_id, ts, speaker, channel, body
        FROM ticket_evidence
        ORDER BY ticket_id, seq`
	rows, err := b.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ticketID int64
			entry    domain.EvidenceEntry
		)
		if err := rows.Scan(&ticketID, &entry.Timestamp, &entry.Speaker, &entry.Channel, &entry.Text); err != nil {
			b.logger.Warn("skipping corrupt evidence row", zap.Error(err))
			continue
		}
		ticket, ok := byID[ticketID]
		if !ok {
			continue
		}
		ticket.Evidence = append(ticket.Evidence, entry)
	}
	return rows.Err()
}

// Save persists one ticket's full current state in a single transaction:
// upsert the ticket row, then replace its evidence rows.
func (b *PostgresBackend) Save(ctx context.Context, ticket domain.Ticket) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save ticket %d: %w", ticket.ID, err)
	}
	defer tx.Rollback(ctx)

	const upsert = `
        INSERT INTO tickets (id, reporter, target, type_key, type_display, category_key, category_display,
                             narrative, count, status, assignee, created_at, last_activity_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (id) DO UPDATE SET
            reporter=EXCLUDED.reporter, target=EXCLUDED.target,
            type_key=EXCLUDED.type_key, type_display=EXCLUDED.type_display,
            category_key=EXCLUDED.category_key, category_display=EXCLUDED.category_display,
            narrative=EXCLUDED.narrative, count=EXCLUDED.count, status=EXCLUDED.status,
            assignee=EXCLUDED.assignee, last_activity_at=EXCLUDED.last_activity_at,
            closed_at=EXCLUDED.closed_at`
	if _, err := tx.Exec(ctx, upsert,
		ticket.ID,
		ticket.Reporter,
		ticket.Target,
		ticket.Classification.TypeKey,
		ticket.Classification.TypeDisplay,
		ticket.Classification.CategoryKey,
		ticket.Classification.CategoryDisplay,
		ticket.Narrative,
		ticket.Count,
		ticket.Status,
		ticket.Assignee,
		ticket.CreatedAt,
		ticket.LastActivityAt,
		ticket.ClosedAt,
	); err != nil {
		return fmt.Errorf("upsert ticket %d: %w", ticket.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM ticket_evidence WHERE ticket_id=$1`, ticket.ID); err != nil {
		return fmt.Errorf("clear evidence for ticket %d: %w", ticket.ID, err)
	}
	if len(ticket.Evidence) > 0 {
		batch := &pgx.Batch{}
		for seq, entry := range ticket.Evidence {
			batch.Queue(
				`INSERT INTO ticket_evidence (ticket_id, seq, ts, speaker, channel, body) VALUES ($1,$2,$3,$4,$5,$6)`,
				ticket.ID, seq, entry.Timestamp, entry.Speaker, entry.Channel, entry.Text,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert evidence for ticket %d: %w", ticket.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ticket %d: %w", ticket.ID, err)
	}
	return nil
}

// Close releases pool resources.
func (b *PostgresBackend) Close() error {
	if b.pool != nil {
		b.pool.Close()
	}
	return nil
}
