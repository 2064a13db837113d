package domain

// Role identifies who produced a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ToolCall is a model-issued request to invoke a registered tool.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult carries a tool's envelope back to the conversation. Response is
// the tool payload wrapped under the protocol's fixed "result" key.
type ToolResult struct {
	Name     string
	Response map[string]any
}

// Part is one element of a message. Exactly one field is set: free text, a
// structured tool invocation, or a structured tool response.
type Part struct {
	Text   string
	Call   *ToolCall
	Result *ToolResult
}

// Message is a single turn in an agent run's conversation history. History is
// append-only for the duration of one run and discarded when the run ends.
type Message struct {
	Role  Role
	Parts []Part
}

// NewTextMessage builds a message holding a single text part.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Text: text}}}
}

// ModelTurn is one generative-endpoint response as classified by the client.
// A turn with no parts is an empty response; Malformed is set when the
// endpoint reported that the model emitted an undecodable function call.
type ModelTurn struct {
	Parts     []Part
	Malformed bool
}

// Empty reports whether the turn carried no usable content.
func (t ModelTurn) Empty() bool {
	return len(t.Parts) == 0
}

// RunOutcome is the terminal state of a successful agent run: either the
// model's final text answer, or an empty response surfaced as a
// non-exceptional outcome. Loop failures travel as errors instead.
type RunOutcome struct {
	Final string
	Empty bool
}
