package strategy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/edgeflare/graphstreams/pkg/graph"
)

const unwindPrefix = "UNWIND $events AS event "

// unwinder collapses consecutive events sharing the same query into one UNWIND statement.
type unwinder struct {
	stmts  []graph.Statement
	events [][]any
	last   string
}

func (u *unwinder) add(query string, event map[string]any) {
	if len(u.stmts) > 0 && u.last == query {
		u.events[len(u.events)-1] = append(u.events[len(u.events)-1], event)
		return
	}
	u.stmts = append(u.stmts, graph.Statement{Query: unwindPrefix + query})
	u.events = append(u.events, []any{event})
	u.last = query
}

func (u *unwinder) statements() []graph.Statement {
	for i := range u.stmts {
		u.stmts[i].Params = map[string]any{"events": u.events[i]}
	}
	return u.stmts
}

// mapLiteral renders `{a: event.path.a, b: event.path.b}` for the sorted keys.
func mapLiteral(path string, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range sortedCopy(keys) {
		parts = append(parts, fmt.Sprintf("%s: event.%s.%s", k, path, k))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// setClause renders ` SET v.a = event.path.a, ...`, or "" when props is empty.
func setClause(v, path string, props []string) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, 0, len(props))
	for _, p := range sortedCopy(props) {
		parts = append(parts, fmt.Sprintf("%s.%s = event.%s.%s", v, p, path, p))
	}
	return " SET " + strings.Join(parts, ", ")
}

// removeClause renders ` REMOVE v.a, v.b`, or "" when props is empty.
func removeClause(v string, props []string) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, 0, len(props))
	for _, p := range sortedCopy(props) {
		parts = append(parts, v+"."+p)
	}
	return " REMOVE " + strings.Join(parts, ", ")
}

func sortedCopy(s []string) []string {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}

// checkKeys validates every map key as a property name.
func checkKeys[V any](m Message, kind string, values map[string]V) error {
	for k := range values {
		if !graph.ValidIdentifier(k) {
			return invalid(m, "%s %q is not a valid property name", kind, k)
		}
	}
	return nil
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// singleLabel returns the only label of labels. AGE vertices carry exactly one label.
func singleLabel(m Message, labels []string, fallback string) (string, error) {
	switch len(labels) {
	case 0:
		if fallback == "" {
			return "", invalid(m, "no label")
		}
		return fallback, nil
	case 1:
		if err := graph.CheckIdentifier("label", labels[0]); err != nil {
			return "", invalid(m, "%v", err)
		}
		return labels[0], nil
	default:
		return "", invalid(m, "multiple labels %v are not supported by the graph store", labels)
	}
}
