package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

// FileBackend stores one JSON document per ticket under a data directory.
// Writes go to a temp file in the same directory followed by an atomic
// rename, so a reader never observes a half-written record.
type FileBackend struct {
	dir    string
	logger *zap.Logger
}

// NewFileBackend constructs the flat-file backend.
func NewFileBackend(dir string, logger *zap.Logger) *FileBackend {
	return &FileBackend{dir: dir, logger: logger}
}

// Init creates the data directory. Idempotent.
func (b *FileBackend) Init(ctx context.Context) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// LoadAll decodes every ticket file in the directory. Unreadable or
// undecodable files are skipped with a warning; they never abort the load.
func (b *FileBackend) LoadAll(ctx context.Context) ([]domain.Ticket, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var tickets []domain.Ticket
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(b.dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("skipping unreadable ticket file", zap.String("file", name), zap.Error(err))
			continue
		}
		var ticket domain.Ticket
		if err := json.Unmarshal(raw, &ticket); err != nil {
			b.logger.Warn("skipping corrupt ticket file", zap.String("file", name), zap.Error(err))
			continue
		}
		if ticket.ID <= 0 {
			b.logger.Warn("skipping ticket file without valid id", zap.String("file", name))
			continue
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// Save writes the ticket's full current state, replacing any prior version.
func (b *FileBackend) Save(ctx context.Context, ticket domain.Ticket) error {
	raw, err := json.MarshalIndent(ticket, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ticket %d: %w", ticket.ID, err)
	}

	tmp, err := os.CreateTemp(b.dir, "ticket-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ticket %d: %w", ticket.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.ticketPath(ticket.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ticket %d: %w", ticket.ID, err)
	}
	return nil
}

// Close is a no-op for the flat-file backend.
func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) ticketPath(id int64) string {
	return filepath.Join(b.dir, fmt.Sprintf("ticket-%d.json", id))
}
