package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

// Store is the persistence contract used by the orchestrator. Save writes
// the full session atomically; a session is never half-persisted.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	// Reset archives the session under a re-keyed id so the next inbound
	// message starts a fresh conversation. Nothing is deleted.
	Reset(ctx context.Context, sessionID string) error
}

type PostgresConfig struct {
	DSN          string        `envconfig:"DSN" split_words:"true"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID                 string          `bun:"id,pk"`
	Category           string          `bun:"category"`
	State              string          `bun:"state"`
	Messages           json.RawMessage `bun:"messages,type:jsonb"`
	Data               json.RawMessage `bun:"data,type:jsonb"`
	TurnsAfterFinished int             `bun:"turns_after_finished"`
	UnclassifiedTurns  int             `bun:"unclassified_turns"`
	Archived           bool            `bun:"archived"`
	CreatedAt          time.Time       `bun:"created_at,nullzero,default:now()"`
	UpdatedAt          time.Time       `bun:"updated_at,nullzero,default:now()"`
}

// PostgresStore persists sessions in Postgres through bun.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(cfg.Timeout),
	)
	sqldb := sql.OpenDB(connector)
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// DB exposes the underlying handle so collaborators (vendor export) can
// share the connection pool.
func (s *PostgresStore) DB() *bun.DB {
	return s.db
}

// Init creates the sessions table when missing.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*sessionRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	row := new(sessionRow)
	err := s.db.NewSelect().
		Model(row).
		Where("s.id = ?", sessionID).
		Where("s.archived = FALSE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	sess, err := rowToSession(row)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(sess.ID) == "" {
		return ErrInvalidSession
	}
	sess.EnsureData()
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}

	row, err := sessionToRow(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}

	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("category = EXCLUDED.category").
		Set("state = EXCLUDED.state").
		Set("messages = EXCLUDED.messages").
		Set("data = EXCLUDED.data").
		Set("turns_after_finished = EXCLUDED.turns_after_finished").
		Set("unclassified_turns = EXCLUDED.unclassified_turns").
		Set("archived = EXCLUDED.archived").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *PostgresStore) Reset(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	archivedID := ArchiveKey(sessionID)
	res, err := s.db.NewUpdate().
		Model((*sessionRow)(nil)).
		Set("id = ?", archivedID).
		Set("archived = TRUE").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", sessionID).
		Where("archived = FALSE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveKey derives the re-keyed id an archived session is stored under.
func ArchiveKey(sessionID string) string {
	return sessionID + "#" + uuid.NewString()
}

func sessionToRow(sess *Session) (*sessionRow, error) {
	messages, err := json.Marshal(sess.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}
	data, err := json.Marshal(sess.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return &sessionRow{
		ID:                 sess.ID,
		Category:           string(sess.Category),
		State:              string(sess.State),
		Messages:           messages,
		Data:               data,
		TurnsAfterFinished: sess.TurnsAfterFinished,
		UnclassifiedTurns:  sess.UnclassifiedTurns,
		Archived:           sess.Archived,
		CreatedAt:          sess.CreatedAt,
		UpdatedAt:          sess.UpdatedAt,
	}, nil
}

func rowToSession(row *sessionRow) (*Session, error) {
	sess := &Session{
		ID:                 row.ID,
		Category:           contractx.Category(row.Category),
		State:              contractx.StateName(row.State),
		TurnsAfterFinished: row.TurnsAfterFinished,
		UnclassifiedTurns:  row.UnclassifiedTurns,
		Archived:           row.Archived,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if len(row.Messages) > 0 {
		if err := json.Unmarshal(row.Messages, &sess.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
	}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &sess.Data); err != nil {
			return nil, fmt.Errorf("unmarshal data: %w", err)
		}
	}
	sess.EnsureData()
	return sess, nil
}
