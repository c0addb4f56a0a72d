package strategy

import (
	"fmt"
	"maps"
	"slices"

	"github.com/edgeflare/graphstreams/pkg/cdc"
	"github.com/edgeflare/graphstreams/pkg/graph"
)

const (
	DefaultSourceIDLabel = "SourceEvent"
	DefaultSourceIDField = "sourceId"
)

func decodeEvent(m Message) (*cdc.Event, error) {
	var e cdc.Event
	if err := decode(m.Value, &e); err != nil {
		return nil, invalid(m, "value is not a change event: %v", err)
	}
	switch e.Payload.Type {
	case cdc.EntityNode, cdc.EntityRelationship:
	default:
		return nil, invalid(m, "unknown payload type %q", e.Payload.Type)
	}
	if e.Current() == nil {
		return nil, invalid(m, "%s event without state", e.Meta.Operation)
	}
	return &e, nil
}

// changedProperties returns the properties to set and the ones to remove for e.
// Names in keep are the properties an entity is matched on; they are neither set
// nor removed.
func changedProperties(m Message, e *cdc.Event, keep ...string) (props map[string]any, removed []string, err error) {
	props = map[string]any{}
	if e.Payload.After != nil {
		maps.Copy(props, e.Payload.After.Properties)
	}
	for _, k := range keep {
		delete(props, k)
	}
	if err := checkKeys(m, "property", props); err != nil {
		return nil, nil, err
	}
	if e.Payload.Before != nil {
		for k := range e.Payload.Before.Properties {
			if _, ok := props[k]; ok || slices.Contains(keep, k) || !graph.ValidIdentifier(k) {
				continue
			}
			removed = append(removed, k)
		}
	}
	return props, removed, nil
}

// CDCSourceID replicates change events by matching entities on the source id,
// stored in a dedicated property.
type CDCSourceID struct {
	label string
	field string
}

func NewCDCSourceID(label, field string) (*CDCSourceID, error) {
	if err := graph.CheckIdentifier("label", label); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if err := graph.CheckIdentifier("property", field); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return &CDCSourceID{label: label, field: field}, nil
}

func (s *CDCSourceID) Statements(msgs []Message) ([]graph.Statement, error) {
	var u unwinder
	for _, m := range msgs {
		if m.Tombstone() {
			continue
		}
		e, err := decodeEvent(m)
		if err != nil {
			return nil, err
		}

		var query string
		var event map[string]any
		if e.Payload.Type == cdc.EntityNode {
			query, event, err = s.node(m, e)
		} else {
			query, event, err = s.relationship(m, e)
		}
		if err != nil {
			return nil, err
		}
		u.add(query, event)
	}
	return u.statements(), nil
}

func (s *CDCSourceID) node(m Message, e *cdc.Event) (string, map[string]any, error) {
	label, err := singleLabel(m, e.Labels(), s.label)
	if err != nil {
		return "", nil, err
	}
	node := fmt.Sprintf("(n:%s {%s: event.id})", label, s.field)
	event := map[string]any{"id": e.Payload.ID}

	if e.Meta.Operation == cdc.OpDeleted {
		return "MATCH " + node + " DETACH DELETE n", event, nil
	}

	props, removed, err := changedProperties(m, e, s.field)
	if err != nil {
		return "", nil, err
	}
	event["properties"] = props
	return "MERGE " + node + setClause("n", "properties", keysOf(props)) + removeClause("n", removed), event, nil
}

func (s *CDCSourceID) relationship(m Message, e *cdc.Event) (string, map[string]any, error) {
	if e.Payload.Start == nil || e.Payload.End == nil {
		return "", nil, invalid(m, "relationship without endpoints")
	}
	if err := graph.CheckIdentifier("relationship type", e.Payload.Label); err != nil {
		return "", nil, invalid(m, "%v", err)
	}
	event := map[string]any{"id": e.Payload.ID}

	if e.Meta.Operation == cdc.OpDeleted {
		return fmt.Sprintf("MATCH ()-[r:%s {%s: event.id}]->() DELETE r", e.Payload.Label, s.field), event, nil
	}

	startLabel, err := singleLabel(m, e.Payload.Start.Labels, s.label)
	if err != nil {
		return "", nil, err
	}
	endLabel, err := singleLabel(m, e.Payload.End.Labels, s.label)
	if err != nil {
		return "", nil, err
	}
	props, removed, err := changedProperties(m, e, s.field)
	if err != nil {
		return "", nil, err
	}
	event["start"] = e.Payload.Start.ID
	event["end"] = e.Payload.End.ID
	event["properties"] = props

	query := fmt.Sprintf("MERGE (s:%s {%s: event.start}) MERGE (e:%s {%s: event.end}) MERGE (s)-[r:%s {%s: event.id}]->(e)",
		startLabel, s.field, endLabel, s.field, e.Payload.Label, s.field)
	return query + setClause("r", "properties", keysOf(props)) + removeClause("r", removed), event, nil
}

// CDCSchema replicates change events by matching nodes on the properties of their
// UNIQUE or NODE_KEY constraint, and relationships on their endpoint ids.
type CDCSchema struct{}

func (CDCSchema) Statements(msgs []Message) ([]graph.Statement, error) {
	var u unwinder
	for _, m := range msgs {
		if m.Tombstone() {
			continue
		}
		e, err := decodeEvent(m)
		if err != nil {
			return nil, err
		}

		var query string
		var event map[string]any
		if e.Payload.Type == cdc.EntityNode {
			query, event, err = schemaNode(m, e)
		} else {
			query, event, err = schemaRelationship(m, e)
		}
		if err != nil {
			return nil, err
		}
		u.add(query, event)
	}
	return u.statements(), nil
}

func schemaNode(m Message, e *cdc.Event) (string, map[string]any, error) {
	label, err := singleLabel(m, e.Labels(), "")
	if err != nil {
		return "", nil, err
	}
	keyNames := e.Schema.KeysFor(label)
	if len(keyNames) == 0 {
		return "", nil, invalid(m, "no unique constraint for label %s", label)
	}

	keys := make(map[string]any, len(keyNames))
	current := e.Current().Properties
	for _, k := range keyNames {
		v, ok := current[k]
		if !ok || v == nil {
			return "", nil, invalid(m, "key property %q is missing", k)
		}
		keys[k] = v
	}
	if err := checkKeys(m, "key", keys); err != nil {
		return "", nil, err
	}

	node := fmt.Sprintf("(n:%s %s)", label, mapLiteral("keys", keyNames))
	event := map[string]any{"keys": keys}
	if e.Meta.Operation == cdc.OpDeleted {
		return "MATCH " + node + " DETACH DELETE n", event, nil
	}

	props, removed, err := changedProperties(m, e, keyNames...)
	if err != nil {
		return "", nil, err
	}
	event["properties"] = props
	return "MERGE " + node + setClause("n", "properties", keysOf(props)) + removeClause("n", removed), event, nil
}

func schemaEndpoint(m Message, v string, node *cdc.RelationshipNode) (string, error) {
	label, err := singleLabel(m, node.Labels, "")
	if err != nil {
		return "", err
	}
	if len(node.IDs) == 0 {
		return "", invalid(m, "relationship endpoint %s has no ids", node.ID)
	}
	if err := checkKeys(m, "id", node.IDs); err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s:%s %s)", v, label, mapLiteral(v, keysOf(node.IDs))), nil
}

func schemaRelationship(m Message, e *cdc.Event) (string, map[string]any, error) {
	if e.Payload.Start == nil || e.Payload.End == nil {
		return "", nil, invalid(m, "relationship without endpoints")
	}
	if err := graph.CheckIdentifier("relationship type", e.Payload.Label); err != nil {
		return "", nil, invalid(m, "%v", err)
	}
	start, err := schemaEndpoint(m, "s", e.Payload.Start)
	if err != nil {
		return "", nil, err
	}
	end, err := schemaEndpoint(m, "e", e.Payload.End)
	if err != nil {
		return "", nil, err
	}
	event := map[string]any{"s": e.Payload.Start.IDs, "e": e.Payload.End.IDs}

	if e.Meta.Operation == cdc.OpDeleted {
		return fmt.Sprintf("MATCH %s-[r:%s]->%s DELETE r", start, e.Payload.Label, end), event, nil
	}

	props, removed, err := changedProperties(m, e)
	if err != nil {
		return "", nil, err
	}
	event["properties"] = props
	query := fmt.Sprintf("MERGE %s MERGE %s MERGE (s)-[r:%s]->(e)", start, end, e.Payload.Label)
	return query + setClause("r", "properties", keysOf(props)) + removeClause("r", removed), event, nil
}
