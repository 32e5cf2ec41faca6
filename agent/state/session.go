package state

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidSession = errors.New("session id is empty")
)

// Session is the persistent source-of-truth for one conversation. History
// is append-only; Category is set once by routing and only cleared through
// an explicit reset; Data accumulates the business fields captured by
// non-terminal tools.
type Session struct {
	ID       string              `json:"session_id"`
	Category contractx.Category  `json:"category,omitempty"`
	State    contractx.StateName `json:"state,omitempty"`
	Messages []contractx.Message `json:"messages"`
	Data     map[string]any      `json:"data,omitempty"`

	// TurnsAfterFinished counts user turns received while the conversation
	// sits in its finished state; crossing the category limit forces
	// escalation.
	TurnsAfterFinished int `json:"turns_after_finished,omitempty"`

	// UnclassifiedTurns counts turns spent without a routed category.
	UnclassifiedTurns int `json:"unclassified_turns,omitempty"`

	Archived  bool      `json:"archived,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Data:      make(map[string]any, 4),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) EnsureData() {
	if s.Data == nil {
		s.Data = make(map[string]any, 4)
	}
}

func (s *Session) Append(msgs ...contractx.Message) {
	s.Messages = append(s.Messages, msgs...)
}

func (s *Session) SetData(key string, val any) {
	s.EnsureData()
	s.Data[key] = val
}

func (s *Session) Classified() bool {
	return s.Category != ""
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.ID == "" {
		return ErrInvalidSession
	}
	if s.Category != "" && !s.Category.Valid() {
		return fmt.Errorf("unknown category %q", s.Category)
	}
	if s.State != "" && s.Category == "" {
		return fmt.Errorf("session %s has state %q without a category", s.ID, s.State)
	}
	for i, m := range s.Messages {
		if m.Role != contractx.RoleTool {
			continue
		}
		if i == 0 || len(s.Messages[i-1].ToolCalls) == 0 && s.Messages[i-1].Role != contractx.RoleTool {
			return fmt.Errorf("tool message at index %d does not follow a tool-calling assistant message", i)
		}
	}
	return nil
}
