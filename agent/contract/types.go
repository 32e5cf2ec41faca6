package contract

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Category is one of the fixed business classifications a session is routed
// into. Wire values match the classifier vocabulary used on WhatsApp.
type Category string

const (
	CategoryLead           Category = "CLIENTE_POTENCIAL"
	CategoryActiveCustomer Category = "CLIENTE_ACTIVO"
	CategoryCarrier        Category = "TRANSPORTISTA_TERCERO"
	CategoryVendor         Category = "PROVEEDOR_POTENCIAL"
	CategoryStaff          Category = "USUARIO_ADMINISTRATIVO"
	CategoryCandidate      Category = "CANDIDATO_A_EMPLEO"

	// CategoryOther is the reserved ambiguous bucket. Its only state is
	// human escalation; it is never guessed past.
	CategoryOther Category = "OTRO"
)

func AllCategories() []Category {
	return []Category{
		CategoryLead,
		CategoryActiveCustomer,
		CategoryCarrier,
		CategoryVendor,
		CategoryStaff,
		CategoryCandidate,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryLead, CategoryActiveCustomer, CategoryCarrier,
		CategoryVendor, CategoryStaff, CategoryCandidate, CategoryOther:
		return true
	}
	return false
}

// StateName identifies a state inside a category conversation flow.
type StateName string

// Message is one entry of a session history. Role "tool" entries always
// follow the assistant entry whose ToolCalls requested them.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	CallID string `json:"call_id,omitempty"`
	Name   string `json:"name"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// CategoryScore carries one classifier score. JSON field names are part of
// the classifier tool schema and must not change independently of it.
type CategoryScore struct {
	Category   Category `json:"categoria"`
	Confidence float64  `json:"puntuacionDeConfianza"`
	Rationale  string   `json:"razonamiento,omitempty"`
	KeyPhrases []string `json:"indicadoresClave,omitempty"`
}

// Classification is the full scoring of a conversation against all
// categories. Primary and Alternates are informational; routing only reads
// the score vector.
type Classification struct {
	Scores     []CategoryScore `json:"puntuacionesPorCategoria"`
	Primary    string          `json:"clasificacionPrimaria,omitempty"`
	Alternates []string        `json:"clasificacionesAlternativas,omitempty"`
}

func (c Classification) Empty() bool {
	return len(c.Scores) == 0
}

// AboveThreshold returns the distinct valid categories scored strictly above
// the threshold, in order of appearance.
func (c Classification) AboveThreshold(threshold float64) []Category {
	seen := make(map[Category]struct{}, len(c.Scores))
	var out []Category
	for _, s := range c.Scores {
		if s.Confidence <= threshold || !s.Category.Valid() || s.Category == CategoryOther {
			continue
		}
		if _, dup := seen[s.Category]; dup {
			continue
		}
		seen[s.Category] = struct{}{}
		out = append(out, s.Category)
	}
	return out
}

// Outcome is the result of one orchestration turn.
type Outcome struct {
	Messages  []Message      `json:"messages"`
	NextState StateName      `json:"next_state,omitempty"`
	ToolCall  string         `json:"tool_call,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ToolSpec describes a tool to the completion service. Parameters is a JSON
// schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// CompletionRequest is one call to the completion service. ForceTool, when
// set, requires the model to call that tool (used by the classifier).
// Tool auto-execution is always disabled; callers execute tool calls
// themselves.
type CompletionRequest struct {
	Instruction string
	History     []Message
	Tools       []ToolSpec
	Temperature float64
	ForceTool   string
}

type CompletionResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// NITRecord is the commercial record returned by the NIT directory.
type NITRecord struct {
	Cliente              string `json:"cliente"`
	Estado               string `json:"estado"`
	ResponsableComercial string `json:"responsable_comercial"`
}

// VendorProspect is one profiled vendor row exported for the purchasing
// team.
type VendorProspect struct {
	SessionID   string    `json:"session_id"`
	ServiceType string    `json:"service_type"`
	ProfiledAt  time.Time `json:"profiled_at"`
}
