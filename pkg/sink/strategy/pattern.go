package strategy

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/edgeflare/graphstreams/pkg/graph"
	"github.com/tidwall/gjson"
)

var (
	nodePatternRe = regexp.MustCompile(`^\(?\s*:?\s*([A-Za-z_][A-Za-z0-9_:]*)\s*\{([^{}]*)\}\s*\)?$`)
	relArrowRe    = regexp.MustCompile(`^\((.+?)\)\s*-\s*\[\s*:?\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:\{([^{}]*)\})?\s*\]\s*->\s*\((.+?)\)$`)
	relSimpleRe   = regexp.MustCompile(`^([^\s{]+\{[^{}]*\})\s+([A-Za-z_][A-Za-z0-9_]*)(?:\{([^{}]*)\})?\s+([^\s{]+\{[^{}]*\})$`)
)

// nodePattern is a parsed `Label{!key,prop,-excluded}` pattern.
type nodePattern struct {
	label   string
	keys    []string
	include []string
	exclude []string
}

func parseNodePattern(s string) (nodePattern, error) {
	s = strings.TrimSpace(s)
	m := nodePatternRe.FindStringSubmatch(s)
	if m == nil {
		return nodePattern{}, fmt.Errorf("%w: %q", ErrInvalidPattern, s)
	}

	labels := strings.Split(m[1], ":")
	if len(labels) != 1 {
		return nodePattern{}, fmt.Errorf("%w: %q: multiple labels are not supported by the graph store", ErrInvalidPattern, s)
	}
	if err := graph.CheckIdentifier("label", labels[0]); err != nil {
		return nodePattern{}, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, s, err)
	}

	keys, include, exclude, err := parsePropertyList(m[2], true)
	if err != nil {
		return nodePattern{}, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, s, err)
	}
	if len(keys) == 0 {
		return nodePattern{}, fmt.Errorf("%w: %q: at least one key (!name) is required", ErrInvalidPattern, s)
	}

	return nodePattern{label: labels[0], keys: keys, include: include, exclude: exclude}, nil
}

// parsePropertyList splits `!key, prop, -excluded, *`.
func parsePropertyList(body string, allowKeys bool) (keys, include, exclude []string, err error) {
	wildcard := false
	for _, raw := range strings.Split(body, ",") {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}

		var name string
		switch {
		case item == "*":
			wildcard = true
			continue
		case strings.HasPrefix(item, "!"):
			if !allowKeys {
				return nil, nil, nil, fmt.Errorf("keys are not allowed here: %s", item)
			}
			name = strings.TrimSpace(item[1:])
			keys = append(keys, name)
		case strings.HasPrefix(item, "-"):
			name = strings.TrimSpace(item[1:])
			exclude = append(exclude, name)
		default:
			name = item
			include = append(include, name)
		}
		if !graph.ValidIdentifier(name) {
			return nil, nil, nil, fmt.Errorf("invalid property name %q", name)
		}
	}

	if len(include) > 0 && len(exclude) > 0 {
		return nil, nil, nil, fmt.Errorf("included and excluded properties cannot be mixed")
	}
	if wildcard && len(include) > 0 {
		return nil, nil, nil, fmt.Errorf("wildcard and included properties cannot be mixed")
	}
	return keys, include, exclude, nil
}

// objectOf parses a message part that must be a JSON object.
func objectOf(m Message, data []byte, what string) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, invalid(m, "%s is not valid JSON", what)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return gjson.Result{}, invalid(m, "%s is not a JSON object", what)
	}
	return root, nil
}

// extractKeys reads every key from root.
func extractKeys(m Message, root gjson.Result, keys []string) (map[string]any, error) {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		r := root.Get(k)
		if !r.Exists() || r.Type == gjson.Null {
			return nil, invalid(m, "key %q is missing", k)
		}
		out[k] = valueOf(r)
	}
	return out, nil
}

// tombstoneKeys reads the keys of a tombstone from the message key. A scalar message
// key is accepted when the pattern has a single key.
func tombstoneKeys(m Message, keys []string) (map[string]any, error) {
	if len(m.Key) == 0 {
		return nil, invalid(m, "tombstone without key")
	}
	root := gjson.ParseBytes(m.Key)
	if !gjson.ValidBytes(m.Key) {
		if len(keys) == 1 {
			return map[string]any{keys[0]: string(m.Key)}, nil
		}
		return nil, invalid(m, "message key is not valid JSON")
	}
	if !root.IsObject() {
		if len(keys) == 1 {
			return map[string]any{keys[0]: valueOf(root)}, nil
		}
		return nil, invalid(m, "message key must be an object for %d keys", len(keys))
	}
	return extractKeys(m, root, keys)
}

// extractProperties selects the properties of root according to the pattern,
// leaving out any name in skip.
func extractProperties(m Message, root gjson.Result, include, exclude, skip []string) (map[string]any, error) {
	props := make(map[string]any)
	if len(include) > 0 {
		for _, p := range include {
			if r := root.Get(p); r.Exists() {
				props[p] = valueOf(r)
			}
		}
		return props, nil
	}

	var err error
	root.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if slices.Contains(skip, name) || slices.Contains(exclude, name) {
			return true
		}
		if !graph.ValidIdentifier(name) {
			err = invalid(m, "property %q is not a valid property name", name)
			return false
		}
		props[name] = valueOf(v)
		return true
	})
	return props, err
}

// NodePattern merges one node per message, keyed on the pattern's key properties.
type NodePattern struct {
	pattern nodePattern
	merge   string
	delete  string
}

func NewNodePattern(pattern string) (*NodePattern, error) {
	p, err := parseNodePattern(pattern)
	if err != nil {
		return nil, err
	}
	node := fmt.Sprintf("(n:%s %s)", p.label, mapLiteral("keys", p.keys))
	return &NodePattern{
		pattern: p,
		merge:   "MERGE " + node,
		delete:  "MATCH " + node + " DETACH DELETE n",
	}, nil
}

func (s *NodePattern) Statements(msgs []Message) ([]graph.Statement, error) {
	var u unwinder
	for _, m := range msgs {
		if m.Tombstone() {
			keys, err := tombstoneKeys(m, s.pattern.keys)
			if err != nil {
				return nil, err
			}
			u.add(s.delete, map[string]any{"keys": keys})
			continue
		}

		root, err := objectOf(m, m.Value, "value")
		if err != nil {
			return nil, err
		}
		keys, err := extractKeys(m, root, s.pattern.keys)
		if err != nil {
			return nil, err
		}
		props, err := extractProperties(m, root, s.pattern.include, s.pattern.exclude, s.pattern.keys)
		if err != nil {
			return nil, err
		}
		u.add(s.merge+setClause("n", "properties", keysOf(props)), map[string]any{"keys": keys, "properties": props})
	}
	return u.statements(), nil
}

// RelationshipPattern merges both endpoints by key and the relationship between them.
type RelationshipPattern struct {
	start   nodePattern
	end     nodePattern
	relType string
	include []string
	exclude []string
	merge   string
	delete  string
}

func NewRelationshipPattern(pattern string) (*RelationshipPattern, error) {
	pattern = strings.TrimSpace(pattern)
	m := relArrowRe.FindStringSubmatch(pattern)
	if m == nil {
		m = relSimpleRe.FindStringSubmatch(pattern)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	start, err := parseNodePattern(m[1])
	if err != nil {
		return nil, err
	}
	end, err := parseNodePattern(m[4])
	if err != nil {
		return nil, err
	}
	for _, ep := range []nodePattern{start, end} {
		if len(ep.include) > 0 || len(ep.exclude) > 0 {
			return nil, fmt.Errorf("%w: %q: relationship endpoints take key properties only", ErrInvalidPattern, pattern)
		}
	}
	for _, k := range start.keys {
		if slices.Contains(end.keys, k) {
			return nil, fmt.Errorf("%w: %q: key %q is used by both endpoints", ErrInvalidPattern, pattern, k)
		}
	}

	_, include, exclude, err := parsePropertyList(m[3], false)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}

	startNode := fmt.Sprintf("(s:%s %s)", start.label, mapLiteral("start", start.keys))
	endNode := fmt.Sprintf("(e:%s %s)", end.label, mapLiteral("end", end.keys))
	return &RelationshipPattern{
		start:   start,
		end:     end,
		relType: m[2],
		include: include,
		exclude: exclude,
		merge:   fmt.Sprintf("MERGE %s MERGE %s MERGE (s)-[r:%s]->(e)", startNode, endNode, m[2]),
		delete:  fmt.Sprintf("MATCH %s-[r:%s]->%s DELETE r", startNode, m[2], endNode),
	}, nil
}

func (s *RelationshipPattern) Statements(msgs []Message) ([]graph.Statement, error) {
	allKeys := append(slices.Clone(s.start.keys), s.end.keys...)

	var u unwinder
	for _, m := range msgs {
		if m.Tombstone() {
			if len(m.Key) == 0 {
				return nil, invalid(m, "tombstone without key")
			}
			root, err := objectOf(m, m.Key, "key")
			if err != nil {
				return nil, err
			}
			startKeys, err := extractKeys(m, root, s.start.keys)
			if err != nil {
				return nil, err
			}
			endKeys, err := extractKeys(m, root, s.end.keys)
			if err != nil {
				return nil, err
			}
			u.add(s.delete, map[string]any{"start": startKeys, "end": endKeys})
			continue
		}

		root, err := objectOf(m, m.Value, "value")
		if err != nil {
			return nil, err
		}
		startKeys, err := extractKeys(m, root, s.start.keys)
		if err != nil {
			return nil, err
		}
		endKeys, err := extractKeys(m, root, s.end.keys)
		if err != nil {
			return nil, err
		}
		props, err := extractProperties(m, root, s.include, s.exclude, allKeys)
		if err != nil {
			return nil, err
		}
		u.add(s.merge+setClause("r", "properties", keysOf(props)), map[string]any{
			"start":      startKeys,
			"end":        endKeys,
			"properties": props,
		})
	}
	return u.statements(), nil
}
