package strategy

import (
	"fmt"
	"strings"

	"github.com/edgeflare/graphstreams/pkg/graph"
)

// CUD operations
const (
	OpCreate = "create"
	OpMerge  = "merge"
	OpUpdate = "update"
	OpDelete = "delete"
	OpMatch  = "match"
)

// CUDEvent is a message that spells out the change to apply:
//
//	{"op": "merge", "type": "node", "labels": ["Person"], "ids": {"id": 1}, "properties": {"name": "Joe"}}
//	{"op": "create", "type": "relationship", "rel_type": "KNOWS",
//	 "from": {"labels": ["Person"], "ids": {"id": 1}}, "to": {"labels": ["Person"], "ids": {"id": 2}, "op": "merge"}}
type CUDEvent struct {
	Op         string         `json:"op"`
	Type       string         `json:"type"`
	Labels     []string       `json:"labels,omitempty"`
	IDs        map[string]any `json:"ids,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Detach     bool           `json:"detach,omitempty"`
	RelType    string         `json:"rel_type,omitempty"`
	From       *CUDNode       `json:"from,omitempty"`
	To         *CUDNode       `json:"to,omitempty"`
}

// CUDNode is a relationship endpoint. Op is "match" (default) or "merge".
type CUDNode struct {
	Labels []string       `json:"labels,omitempty"`
	IDs    map[string]any `json:"ids"`
	Op     string         `json:"op,omitempty"`
}

// CUD applies CUDEvent messages.
type CUD struct{}

func (CUD) Statements(msgs []Message) ([]graph.Statement, error) {
	var u unwinder
	for _, m := range msgs {
		if m.Tombstone() {
			continue
		}
		var e CUDEvent
		if err := decode(m.Value, &e); err != nil {
			return nil, invalid(m, "value is not a CUD event: %v", err)
		}
		e.Op = strings.ToLower(e.Op)
		if err := checkKeys(m, "property", e.Properties); err != nil {
			return nil, err
		}

		var (
			query string
			event map[string]any
			err   error
		)
		switch strings.ToLower(e.Type) {
		case "node":
			query, event, err = cudNode(m, &e)
		case "relationship":
			query, event, err = cudRelationship(m, &e)
		default:
			err = invalid(m, "unknown CUD type %q", e.Type)
		}
		if err != nil {
			return nil, err
		}
		u.add(query, event)
	}
	return u.statements(), nil
}

func cudNode(m Message, e *CUDEvent) (string, map[string]any, error) {
	label, err := singleLabel(m, e.Labels, "")
	if err != nil {
		return "", nil, err
	}
	if err := checkKeys(m, "id", e.IDs); err != nil {
		return "", nil, err
	}
	event := map[string]any{"ids": e.IDs, "properties": e.Properties}
	set := setClause("n", "properties", keysOf(e.Properties))

	if e.Op == OpCreate {
		return fmt.Sprintf("CREATE (n:%s)", label) + set, event, nil
	}
	if len(e.IDs) == 0 {
		return "", nil, invalid(m, "%s of a node requires ids", e.Op)
	}
	node := fmt.Sprintf("(n:%s %s)", label, mapLiteral("ids", keysOf(e.IDs)))

	switch e.Op {
	case OpMerge:
		return "MERGE " + node + set, event, nil
	case OpUpdate:
		return "MATCH " + node + set, event, nil
	case OpDelete:
		if e.Detach {
			return "MATCH " + node + " DETACH DELETE n", event, nil
		}
		return "MATCH " + node + " DELETE n", event, nil
	default:
		return "", nil, invalid(m, "unknown CUD op %q", e.Op)
	}
}

func cudEndpoint(m Message, v string, n *CUDNode) (pattern, clause string, err error) {
	if n == nil {
		return "", "", invalid(m, "relationship without %s node", v)
	}
	label, err := singleLabel(m, n.Labels, "")
	if err != nil {
		return "", "", err
	}
	if len(n.IDs) == 0 {
		return "", "", invalid(m, "relationship endpoint without ids")
	}
	if err := checkKeys(m, "id", n.IDs); err != nil {
		return "", "", err
	}

	path := "from"
	if v == "e" {
		path = "to"
	}
	pattern = fmt.Sprintf("(%s:%s %s)", v, label, mapLiteral(path, keysOf(n.IDs)))

	switch strings.ToLower(n.Op) {
	case "", OpMatch:
		return pattern, "MATCH " + pattern, nil
	case OpMerge:
		return pattern, "MERGE " + pattern, nil
	default:
		return "", "", invalid(m, "unknown endpoint op %q", n.Op)
	}
}

func cudRelationship(m Message, e *CUDEvent) (string, map[string]any, error) {
	if err := graph.CheckIdentifier("relationship type", e.RelType); err != nil {
		return "", nil, invalid(m, "%v", err)
	}
	start, matchStart, err := cudEndpoint(m, "s", e.From)
	if err != nil {
		return "", nil, err
	}
	end, matchEnd, err := cudEndpoint(m, "e", e.To)
	if err != nil {
		return "", nil, err
	}
	if err := checkKeys(m, "id", e.IDs); err != nil {
		return "", nil, err
	}

	rel := "[r:" + e.RelType + "]"
	if len(e.IDs) > 0 {
		rel = fmt.Sprintf("[r:%s %s]", e.RelType, mapLiteral("ids", keysOf(e.IDs)))
	}
	event := map[string]any{"from": e.From.IDs, "to": e.To.IDs, "ids": e.IDs, "properties": e.Properties}
	set := setClause("r", "properties", keysOf(e.Properties))

	switch e.Op {
	case OpCreate:
		return fmt.Sprintf("%s %s CREATE (s)-%s->(e)", matchStart, matchEnd, rel) + set, event, nil
	case OpMerge:
		return fmt.Sprintf("%s %s MERGE (s)-%s->(e)", matchStart, matchEnd, rel) + set, event, nil
	case OpUpdate:
		return fmt.Sprintf("MATCH %s-%s->%s", start, rel, end) + set, event, nil
	case OpDelete:
		return fmt.Sprintf("MATCH %s-%s->%s DELETE r", start, rel, end), event, nil
	default:
		return "", nil, invalid(m, "unknown CUD op %q", e.Op)
	}
}
