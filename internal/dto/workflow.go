package dto

// CreateGraphRequest defines the data needed to create a workflow graph.
type CreateGraphRequest struct {
	Codename    string `json:"codename" validate:"required,max=64"`
	Description string `json:"description" validate:"max=1024"`
	UserID      string `json:"userID" validate:"required"` // needed for audit fields
}

type AddStateGroupRequest struct {
	GraphID  string `json:"graphID" validate:"required"`
	Codename string `json:"codename" validate:"required,max=64"`
}

type AddStateRequest struct {
	GroupID  string `json:"groupID" validate:"required"`
	Codename string `json:"codename" validate:"required,max=64"`
	Initial  bool   `json:"initial"`
	Terminal bool   `json:"terminal"`
}

// AddStatePathRequest declares an admissible transition. Both states must
// belong to the same graph.
type AddStatePathRequest struct {
	Codename      string `json:"codename" validate:"required,max=128"`
	SourceStateID string `json:"sourceStateID" validate:"required"`
	TargetStateID string `json:"targetStateID" validate:"required"`
}

// StartInstanceRequest creates a workflow instance. When InitialStateID is empty
// the graph's single initial state is used.
type StartInstanceRequest struct {
	GraphID        string `json:"graphID" validate:"required"`
	SegregationID  string `json:"segregationID" validate:"required"`
	EntityRef      string `json:"entityRef" validate:"max=255"`
	InitialStateID string `json:"initialStateID"` // Optional
	UserID         string `json:"userID" validate:"required"`
}
