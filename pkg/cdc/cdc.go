// Package cdc defines the change-data-capture event published for every node or
// relationship change of a source graph, and consumed by the CDC ingestion strategies.
package cdc

// Operation represents the type of change that occurred
type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
	OpDeleted Operation = "deleted"
)

// EntityType tells whether a change concerns a node or a relationship
type EntityType string

const (
	EntityNode         EntityType = "node"
	EntityRelationship EntityType = "relationship"
)

// ConstraintType is the kind of schema constraint reported with a change
type ConstraintType string

const (
	ConstraintUnique            ConstraintType = "UNIQUE"
	ConstraintNodeKey           ConstraintType = "NODE_KEY"
	ConstraintPropertyExistence ConstraintType = "NODE_PROPERTY_EXISTS"
)

// Meta contains metadata about the transaction a change belongs to
type Meta struct {
	Timestamp     int64          `json:"timestamp"`
	Username      string         `json:"username"`
	TxID          int64          `json:"txId"`
	TxEventID     int            `json:"txEventId"`
	TxEventsCount int            `json:"txEventsCount"`
	Operation     Operation      `json:"operation"`
	Source        map[string]any `json:"source,omitempty"`
}

// State is an entity's labels and properties before or after the change.
// Labels are empty for relationships.
type State struct {
	Labels     []string       `json:"labels,omitempty"`
	Properties map[string]any `json:"properties"`
}

// RelationshipNode identifies one endpoint of a relationship
type RelationshipNode struct {
	ID     string         `json:"id"`
	Labels []string       `json:"labels,omitempty"`
	IDs    map[string]any `json:"ids,omitempty"`
}

// Payload represents the actual change data
type Payload struct {
	ID     string            `json:"id"`
	Type   EntityType        `json:"type"`
	Before *State            `json:"before"`
	After  *State            `json:"after"`
	Label  string            `json:"label,omitempty"`
	Start  *RelationshipNode `json:"start,omitempty"`
	End    *RelationshipNode `json:"end,omitempty"`
}

// Constraint is a schema constraint of the source graph
type Constraint struct {
	Label      string         `json:"label"`
	Properties []string       `json:"properties"`
	Type       ConstraintType `json:"type"`
}

// Schema describes the property types and constraints relevant to a change
type Schema struct {
	Properties  map[string]string `json:"properties,omitempty"`
	Constraints []Constraint      `json:"constraints,omitempty"`
}

// Event represents a complete change data capture event
type Event struct {
	Meta    Meta    `json:"meta"`
	Payload Payload `json:"payload"`
	Schema  Schema  `json:"schema"`
}

// Current returns the state that the change leaves behind: After, or Before for deletions.
func (e *Event) Current() *State {
	if e.Meta.Operation == OpDeleted {
		return e.Payload.Before
	}
	return e.Payload.After
}

// Labels returns the node labels of the change, whichever state carries them.
func (e *Event) Labels() []string {
	if s := e.Current(); s != nil && len(s.Labels) > 0 {
		return s.Labels
	}
	if e.Payload.Before != nil {
		return e.Payload.Before.Labels
	}
	return nil
}

// KeysFor returns the property names of the first UNIQUE or NODE_KEY constraint
// on label, or nil if there is none.
func (s Schema) KeysFor(label string) []string {
	for _, c := range s.Constraints {
		if c.Label != label {
			continue
		}
		if c.Type == ConstraintUnique || c.Type == ConstraintNodeKey {
			return c.Properties
		}
	}
	return nil
}
