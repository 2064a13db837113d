package domain

// ParamType is the primitive type of one tool parameter as advertised to the
// generative endpoint.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamObject  ParamType = "object"
)

// ParamSchema describes a single tool argument.
type ParamSchema struct {
	Type        ParamType
	Description string
}

// ToolSchema is the machine-readable declaration of one registered tool. The
// registry advertises these to the model and validates arguments against them
// before dispatch.
type ToolSchema struct {
	Name        string
	Description string
	Params      map[string]ParamSchema
	Required    []string
}
