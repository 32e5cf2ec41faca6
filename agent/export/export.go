// Package export persists commercial leads produced by the conversation
// flows so the purchasing team can follow up outside the chat channel.
package export

import (
	"context"
	"sync"

	"github.com/uptrace/bun"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

type prospectRow struct {
	bun.BaseModel `bun:"table:vendor_prospects"`

	ID          int64        `bun:"id,pk,autoincrement"`
	SessionID   string       `bun:"session_id,notnull"`
	ServiceType string       `bun:"service_type,notnull"`
	ProfiledAt  bun.NullTime `bun:"profiled_at,notnull"`
}

// PostgresExporter appends vendor prospects to a table in the same
// database that holds sessions.
type PostgresExporter struct {
	db *bun.DB
}

func NewPostgresExporter(db *bun.DB) *PostgresExporter {
	return &PostgresExporter{db: db}
}

// Init creates the prospects table if it does not exist.
func (e *PostgresExporter) Init(ctx context.Context) error {
	_, err := e.db.NewCreateTable().
		Model((*prospectRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (e *PostgresExporter) AppendProspect(ctx context.Context, p contractx.VendorProspect) error {
	row := &prospectRow{
		SessionID:   p.SessionID,
		ServiceType: p.ServiceType,
		ProfiledAt:  bun.NullTime{Time: p.ProfiledAt},
	}
	_, err := e.db.NewInsert().Model(row).Exec(ctx)
	return err
}

// MemoryExporter collects prospects in memory. Used in tests and when no
// database is configured.
type MemoryExporter struct {
	mu        sync.Mutex
	prospects []contractx.VendorProspect
}

func NewMemoryExporter() *MemoryExporter {
	return &MemoryExporter{}
}

func (e *MemoryExporter) AppendProspect(_ context.Context, p contractx.VendorProspect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prospects = append(e.prospects, p)
	return nil
}

// Prospects returns a copy of everything appended so far.
func (e *MemoryExporter) Prospects() []contractx.VendorProspect {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]contractx.VendorProspect, len(e.prospects))
	copy(out, e.prospects)
	return out
}
