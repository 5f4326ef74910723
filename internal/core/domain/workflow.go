package domain

import "time"

// WorkflowGraph is a named container of state groups and paths.
type WorkflowGraph struct {
	GraphID     string `json:"graphID"`
	Codename    string `json:"codename"` // Unique
	Description string `json:"description"`
	AuditFields
}

// StateGroup groups related states of one graph.
type StateGroup struct {
	GroupID  string `json:"groupID"`
	GraphID  string `json:"graphID"`
	Codename string `json:"codename"`
}

// State is a node of a workflow graph. Its codename is unique within its group.
type State struct {
	StateID  string `json:"stateID"`
	GroupID  string `json:"groupID"`
	GraphID  string `json:"graphID"` // denormalized from the group
	Codename string `json:"codename"`
	Initial  bool   `json:"initial"`
	Terminal bool   `json:"terminal"`
}

// StatePath is a declared, admissible transition between two states of the same graph.
type StatePath struct {
	PathID        string `json:"pathID"`
	GraphID       string `json:"graphID"`
	Codename      string `json:"codename"` // Unique
	SourceStateID string `json:"sourceStateID"`
	TargetStateID string `json:"targetStateID"`
}

// WorkflowInstance is an entity driven through a graph. Version increases on every
// executed transition and guards the current-state pointer against lost updates.
type WorkflowInstance struct {
	InstanceID     string    `json:"instanceID"`
	GraphID        string    `json:"graphID"`
	SegregationID  string    `json:"segregationID"`
	EntityRef      string    `json:"entityRef"` // caller's business key, informational
	CurrentStateID string    `json:"currentStateID"`
	Version        int64     `json:"version"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
	AuditFields
}

// Resource returns the authorization target for the instance.
func (w WorkflowInstance) Resource() Resource {
	return Resource{EntityID: w.InstanceID, SegregationID: w.SegregationID}
}

// StateTransition is the immutable record of one executed traversal.
type StateTransition struct {
	TransitionID string    `json:"transitionID"`
	InstanceID   string    `json:"instanceID"`
	PathID       string    `json:"pathID"`
	PathCodename string    `json:"pathCodename"`
	FromStateID  string    `json:"fromStateID"`
	ToStateID    string    `json:"toStateID"`
	Sequence     int64     `json:"sequence"` // instance version after the traversal
	ExecutedAt   time.Time `json:"executedAt"`
	Ownership
}

func (t StateTransition) OwnedKind() OwnedKind { return OwnedStateTransition }
func (t StateTransition) OwnedID() string      { return t.TransitionID }
