package strategy

import (
	"fmt"
	"strings"

	"github.com/edgeflare/graphstreams/pkg/graph"
)

// CypherTemplate runs a user-supplied Cypher template with each message value bound
// to `event`. Tombstones are skipped.
type CypherTemplate struct {
	query string
}

func NewCypherTemplate(template string) (*CypherTemplate, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return nil, fmt.Errorf("%w: empty cypher template", ErrInvalidPattern)
	}
	return &CypherTemplate{query: unwindPrefix + template}, nil
}

func (c *CypherTemplate) Statements(msgs []Message) ([]graph.Statement, error) {
	events := make([]any, 0, len(msgs))
	for _, m := range msgs {
		if m.Tombstone() {
			continue
		}
		var v any
		if err := decode(m.Value, &v); err != nil {
			return nil, invalid(m, "value is not JSON: %v", err)
		}
		events = append(events, v)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return []graph.Statement{{Query: c.query, Params: map[string]any{"events": events}}}, nil
}
