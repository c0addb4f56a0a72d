package strategy

import (
	"errors"
	"testing"

	"github.com/edgeflare/graphstreams/internal/testutil"
	"github.com/edgeflare/graphstreams/internal/testutil/graphtest"
	"github.com/edgeflare/graphstreams/pkg/graph"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(offset int64, key, value string) Message {
	m := Message{Topic: "test", Offset: offset}
	if key != "" {
		m.Key = []byte(key)
	}
	if value != "" {
		m.Value = []byte(value)
	}
	return m
}

func events(t *testing.T, stmt graph.Statement) []any {
	t.Helper()
	ev, ok := stmt.Params["events"].([]any)
	require.True(t, ok, "events param missing")
	return ev
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		typ     TopicType
		setting string
		wantErr error
	}{
		{"cypher", TopicCypher, "MERGE (n:Person {id: event.id})", nil},
		{"empty cypher", TopicCypher, "  ", ErrInvalidPattern},
		{"node pattern", TopicPatternNode, "Person{!id}", nil},
		{"relationship pattern", TopicPatternRelationship, "(:A{!a})-[:R]->(:B{!b})", nil},
		{"cud", TopicCUD, "", nil},
		{"cdc source id", TopicCDCSourceID, "", nil},
		{"cdc schema", TopicCDCSchema, "", nil},
		{"unknown", TopicType("AVRO"), "", ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.typ, tt.setting)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestNewCDCSourceIDOption(t *testing.T) {
	_, err := New(TopicCDCSourceID, "", WithSourceID("bad label", ""))
	require.ErrorIs(t, err, ErrInvalidPattern)

	s, err := New(TopicCDCSourceID, "", WithSourceID("Replica", "origin"))
	require.NoError(t, err)
	assert.Equal(t, &CDCSourceID{label: "Replica", field: "origin"}, s)
}

func TestCypherTemplate(t *testing.T) {
	s, err := NewCypherTemplate("MERGE (n:Person {id: event.id}) SET n.name = event.name")
	require.NoError(t, err)

	stmts, err := s.Statements([]Message{
		msg(0, "", `{"id": 1, "name": "Joe"}`),
		msg(1, "1", ""),
		msg(2, "", `{"id": 2, "name": "Jane"}`),
	})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "UNWIND $events AS event MERGE (n:Person {id: event.id}) SET n.name = event.name", stmts[0].Query)
	assert.Equal(t, []any{
		map[string]any{"id": json.Number("1"), "name": "Joe"},
		map[string]any{"id": json.Number("2"), "name": "Jane"},
	}, events(t, stmts[0]))

	stmts, err = s.Statements([]Message{msg(3, "1", "")})
	require.NoError(t, err)
	assert.Empty(t, stmts)

	_, err = s.Statements([]Message{msg(4, "", "not json")})
	var me *MessageError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, int64(4), me.Message.Offset)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestParseNodePattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    nodePattern
		wantErr bool
	}{
		{pattern: "Person{!id}", want: nodePattern{label: "Person", keys: []string{"id"}}},
		{pattern: "(:Person{!id, name, age})", want: nodePattern{label: "Person", keys: []string{"id"}, include: []string{"name", "age"}}},
		{pattern: "Person{!id,-password}", want: nodePattern{label: "Person", keys: []string{"id"}, exclude: []string{"password"}}},
		{pattern: "Person{!id,*}", want: nodePattern{label: "Person", keys: []string{"id"}}},
		{pattern: "Person{ !id , !tenant }", want: nodePattern{label: "Person", keys: []string{"id", "tenant"}}},
		{pattern: "Person:Admin{!id}", wantErr: true},
		{pattern: "Person{name}", wantErr: true},
		{pattern: "Person{!id,name,-age}", wantErr: true},
		{pattern: "Person{!id,*,name}", wantErr: true},
		{pattern: "Person{!my-id}", wantErr: true},
		{pattern: "Person", wantErr: true},
		{pattern: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := parseNodePattern(tt.pattern)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPattern)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNodePattern(t *testing.T) {
	s, err := NewNodePattern("Person{!id, name, age}")
	require.NoError(t, err)

	stmts, err := s.Statements([]Message{
		msg(0, "", `{"id": 1, "name": "Joe", "age": 42, "ignored": true}`),
		msg(1, "", `{"id": 2, "name": "Jane", "age": 37}`),
		msg(2, "", `{"id": 3, "name": "Jim"}`),
		msg(3, "4", ""),
	})
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	assert.Equal(t, "UNWIND $events AS event MERGE (n:Person {id: event.keys.id}) SET n.age = event.properties.age, n.name = event.properties.name", stmts[0].Query)
	assert.Equal(t, []any{
		map[string]any{"keys": map[string]any{"id": json.Number("1")}, "properties": map[string]any{"name": "Joe", "age": json.Number("42")}},
		map[string]any{"keys": map[string]any{"id": json.Number("2")}, "properties": map[string]any{"name": "Jane", "age": json.Number("37")}},
	}, events(t, stmts[0]))

	assert.Equal(t, "UNWIND $events AS event MERGE (n:Person {id: event.keys.id}) SET n.name = event.properties.name", stmts[1].Query)

	assert.Equal(t, "UNWIND $events AS event MATCH (n:Person {id: event.keys.id}) DETACH DELETE n", stmts[2].Query)
	assert.Equal(t, []any{map[string]any{"keys": map[string]any{"id": json.Number("4")}}}, events(t, stmts[2]))
}

func TestNodePatternWildcard(t *testing.T) {
	s, err := NewNodePattern("Person{!id,-password}")
	require.NoError(t, err)

	stmts, err := s.Statements([]Message{msg(0, "", `{"id": "a", "name": "Joe", "password": "secret"}`)})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "UNWIND $events AS event MERGE (n:Person {id: event.keys.id}) SET n.name = event.properties.name", stmts[0].Query)
}

func TestNodePatternTombstoneKeys(t *testing.T) {
	s, err := NewNodePattern("Person{!id,!tenant}")
	require.NoError(t, err)

	stmts, err := s.Statements([]Message{msg(0, `{"id": 1, "tenant": "acme"}`, "")})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"keys": map[string]any{"id": json.Number("1"), "tenant": "acme"}}}, events(t, stmts[0]))

	_, err = s.Statements([]Message{msg(1, "1", "")})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	single, err := NewNodePattern("Person{!id}")
	require.NoError(t, err)
	stmts, err = single.Statements([]Message{msg(2, "abc", "")})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"keys": map[string]any{"id": "abc"}}}, events(t, stmts[0]))
}

func TestNodePatternInvalidMessages(t *testing.T) {
	s, err := NewNodePattern("Person{!id}")
	require.NoError(t, err)

	for name, m := range map[string]Message{
		"missing key":       msg(7, "", `{"name": "Joe"}`),
		"null key":          msg(7, "", `{"id": null}`),
		"not an object":     msg(7, "", `[1, 2]`),
		"invalid json":      msg(7, "", `{"id": `),
		"bad property name": msg(7, "", `{"id": 1, "first name": "Joe"}`),
		"tombstone, no key": msg(7, "", ""),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Statements([]Message{msg(6, "", `{"id": 6}`), m})
			var me *MessageError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, int64(7), me.Message.Offset)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestRelationshipPattern(t *testing.T) {
	const want = "UNWIND $events AS event MERGE (s:Person {personId: event.start.personId}) MERGE (e:Company {companyId: event.end.companyId}) MERGE (s)-[r:WORKS_AT]->(e) SET r.since = event.properties.since"

	for _, pattern := range []string{
		"(:Person{!personId})-[:WORKS_AT{since}]->(:Company{!companyId})",
		"Person{!personId} WORKS_AT{since} Company{!companyId}",
	} {
		t.Run(pattern, func(t *testing.T) {
			s, err := NewRelationshipPattern(pattern)
			require.NoError(t, err)

			stmts, err := s.Statements([]Message{msg(0, "", `{"personId": 1, "companyId": 2, "since": 2020, "other": true}`)})
			require.NoError(t, err)
			require.Len(t, stmts, 1)
			assert.Equal(t, want, stmts[0].Query)
			assert.Equal(t, []any{map[string]any{
				"start":      map[string]any{"personId": json.Number("1")},
				"end":        map[string]any{"companyId": json.Number("2")},
				"properties": map[string]any{"since": json.Number("2020")},
			}}, events(t, stmts[0]))
		})
	}
}

func TestRelationshipPatternWildcardAndDelete(t *testing.T) {
	s, err := NewRelationshipPattern("(:Person{!a})-[:KNOWS]->(:Person{!b})")
	require.NoError(t, err)

	stmts, err := s.Statements([]Message{
		msg(0, "", `{"a": 1, "b": 2, "weight": 3}`),
		msg(1, `{"a": 1, "b": 2}`, ""),
	})
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "UNWIND $events AS event MERGE (s:Person {a: event.start.a}) MERGE (e:Person {b: event.end.b}) MERGE (s)-[r:KNOWS]->(e) SET r.weight = event.properties.weight", stmts[0].Query)
	assert.Equal(t, "UNWIND $events AS event MATCH (s:Person {a: event.start.a})-[r:KNOWS]->(e:Person {b: event.end.b}) DELETE r", stmts[1].Query)

	_, err = s.Statements([]Message{msg(2, "1", "")})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestRelationshipPatternInvalid(t *testing.T) {
	for _, pattern := range []string{
		"(:Person{!id})-[:KNOWS]->(:Person{!id})",
		"(:Person{!id,name})-[:KNOWS]->(:Company{!cid})",
		"(:Person{!id})-[:KNOWS{!since}]->(:Company{!cid})",
		"(:Person{!id})<-[:KNOWS]-(:Company{!cid})",
		"Person{!id}",
	} {
		t.Run(pattern, func(t *testing.T) {
			_, err := NewRelationshipPattern(pattern)
			assert.ErrorIs(t, err, ErrInvalidPattern)
		})
	}
}

func TestCUDNode(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{
			name:  "create",
			value: `{"op": "create", "type": "node", "labels": ["Person"], "properties": {"name": "Joe"}}`,
			want:  "UNWIND $events AS event CREATE (n:Person) SET n.name = event.properties.name",
		},
		{
			name:  "merge",
			value: `{"op": "MERGE", "type": "node", "labels": ["Person"], "ids": {"id": 1}, "properties": {"name": "Joe"}}`,
			want:  "UNWIND $events AS event MERGE (n:Person {id: event.ids.id}) SET n.name = event.properties.name",
		},
		{
			name:  "update",
			value: `{"op": "update", "type": "node", "labels": ["Person"], "ids": {"id": 1}, "properties": {"age": 3}}`,
			want:  "UNWIND $events AS event MATCH (n:Person {id: event.ids.id}) SET n.age = event.properties.age",
		},
		{
			name:  "delete",
			value: `{"op": "delete", "type": "node", "labels": ["Person"], "ids": {"id": 1}}`,
			want:  "UNWIND $events AS event MATCH (n:Person {id: event.ids.id}) DELETE n",
		},
		{
			name:  "detach delete",
			value: `{"op": "delete", "type": "node", "labels": ["Person"], "ids": {"id": 1}, "detach": true}`,
			want:  "UNWIND $events AS event MATCH (n:Person {id: event.ids.id}) DETACH DELETE n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := CUD{}.Statements([]Message{msg(0, "", tt.value)})
			require.NoError(t, err)
			require.Len(t, stmts, 1)
			assert.Equal(t, tt.want, stmts[0].Query)
		})
	}
}

func TestCUDRelationship(t *testing.T) {
	const endpoints = `"from": {"labels": ["Person"], "ids": {"id": 1}}, "to": {"labels": ["Company"], "ids": {"id": 2}, "op": "merge"}`
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{
			name:  "create",
			value: `{"op": "create", "type": "relationship", "rel_type": "WORKS_AT", "properties": {"since": 2020}, ` + endpoints + `}`,
			want:  "UNWIND $events AS event MATCH (s:Person {id: event.from.id}) MERGE (e:Company {id: event.to.id}) CREATE (s)-[r:WORKS_AT]->(e) SET r.since = event.properties.since",
		},
		{
			name:  "merge with ids",
			value: `{"op": "merge", "type": "relationship", "rel_type": "WORKS_AT", "ids": {"contract": "c1"}, ` + endpoints + `}`,
			want:  "UNWIND $events AS event MATCH (s:Person {id: event.from.id}) MERGE (e:Company {id: event.to.id}) MERGE (s)-[r:WORKS_AT {contract: event.ids.contract}]->(e)",
		},
		{
			name:  "update",
			value: `{"op": "update", "type": "relationship", "rel_type": "WORKS_AT", "properties": {"since": 2021}, ` + endpoints + `}`,
			want:  "UNWIND $events AS event MATCH (s:Person {id: event.from.id})-[r:WORKS_AT]->(e:Company {id: event.to.id}) SET r.since = event.properties.since",
		},
		{
			name:  "delete",
			value: `{"op": "delete", "type": "relationship", "rel_type": "WORKS_AT", ` + endpoints + `}`,
			want:  "UNWIND $events AS event MATCH (s:Person {id: event.from.id})-[r:WORKS_AT]->(e:Company {id: event.to.id}) DELETE r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := CUD{}.Statements([]Message{msg(0, "", tt.value)})
			require.NoError(t, err)
			require.Len(t, stmts, 1)
			assert.Equal(t, tt.want, stmts[0].Query)
		})
	}
}

func TestCUDInvalid(t *testing.T) {
	for name, value := range map[string]string{
		"unknown op":        `{"op": "upsert", "type": "node", "labels": ["Person"], "ids": {"id": 1}}`,
		"unknown type":      `{"op": "merge", "type": "edge"}`,
		"merge without ids": `{"op": "merge", "type": "node", "labels": ["Person"]}`,
		"no label":          `{"op": "merge", "type": "node", "ids": {"id": 1}}`,
		"two labels":        `{"op": "merge", "type": "node", "labels": ["A", "B"], "ids": {"id": 1}}`,
		"missing from":      `{"op": "create", "type": "relationship", "rel_type": "R", "to": {"labels": ["A"], "ids": {"id": 1}}}`,
		"bad rel type":      `{"op": "create", "type": "relationship", "rel_type": "R-1", "from": {"labels": ["A"], "ids": {"id": 1}}, "to": {"labels": ["A"], "ids": {"id": 2}}}`,
		"bad property":      `{"op": "create", "type": "node", "labels": ["A"], "properties": {"a b": 1}}`,
		"not json":          `nope`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := CUD{}.Statements([]Message{msg(0, "", value)})
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func fixtureMessage(t *testing.T, name string) Message {
	t.Helper()
	data, err := testutil.Fixture(name)
	require.NoError(t, err)
	return Message{Topic: "cdc", Value: data}
}

func TestCDCSourceID(t *testing.T) {
	s, err := NewCDCSourceID(DefaultSourceIDLabel, DefaultSourceIDField)
	require.NoError(t, err)

	stmts, err := s.Statements([]Message{
		fixtureMessage(t, "cdc_node.json"),
		fixtureMessage(t, "cdc_relationship.json"),
	})
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, "UNWIND $events AS event MERGE (n:Person {sourceId: event.id}) SET n.email = event.properties.email, n.first_name = event.properties.first_name, n.last_name = event.properties.last_name", stmts[0].Query)
	assert.Equal(t, "1004", events(t, stmts[0])[0].(map[string]any)["id"])

	assert.Equal(t, "UNWIND $events AS event MERGE (s:Person {sourceId: event.start}) MERGE (e:Person {sourceId: event.end}) MERGE (s)-[r:KNOWS {sourceId: event.id}]->(e) SET r.since = event.properties.since", stmts[1].Query)
	ev := events(t, stmts[1])[0].(map[string]any)
	assert.Equal(t, "123", ev["id"])
	assert.Equal(t, "1004", ev["start"])
	assert.Equal(t, "1005", ev["end"])
}

func TestCDCSourceIDDeleteAndRemovedProperties(t *testing.T) {
	s, err := NewCDCSourceID(DefaultSourceIDLabel, DefaultSourceIDField)
	require.NoError(t, err)

	stmts, err := s.Statements([]Message{
		msg(0, "", `{"meta": {"operation": "updated"}, "payload": {"id": "7", "type": "node",
			"before": {"labels": ["Person"], "properties": {"name": "Joe", "nick": "jj"}},
			"after": {"labels": ["Person"], "properties": {"name": "Joe"}}}}`),
		msg(1, "", `{"meta": {"operation": "deleted"}, "payload": {"id": "8", "type": "node",
			"before": {"properties": {"name": "Ann"}}}}`),
		msg(2, "", `{"meta": {"operation": "deleted"}, "payload": {"id": "9", "type": "relationship", "label": "KNOWS",
			"start": {"id": "7"}, "end": {"id": "8"}, "before": {"properties": {}}}}`),
	})
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, "UNWIND $events AS event MERGE (n:Person {sourceId: event.id}) SET n.name = event.properties.name REMOVE n.nick", stmts[0].Query)
	assert.Equal(t, "UNWIND $events AS event MATCH (n:SourceEvent {sourceId: event.id}) DETACH DELETE n", stmts[1].Query)
	assert.Equal(t, "UNWIND $events AS event MATCH ()-[r:KNOWS {sourceId: event.id}]->() DELETE r", stmts[2].Query)
}

func TestCDCSchema(t *testing.T) {
	stmts, err := CDCSchema{}.Statements([]Message{
		fixtureMessage(t, "cdc_node.json"),
		fixtureMessage(t, "cdc_relationship.json"),
	})
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, "UNWIND $events AS event MERGE (n:Person {email: event.keys.email}) SET n.first_name = event.properties.first_name, n.last_name = event.properties.last_name", stmts[0].Query)
	assert.Equal(t, map[string]any{"email": "annek@noanswer.org"}, events(t, stmts[0])[0].(map[string]any)["keys"])

	assert.Equal(t, "UNWIND $events AS event MERGE (s:Person {email: event.s.email}) MERGE (e:Person {email: event.e.email}) MERGE (s)-[r:KNOWS]->(e) SET r.since = event.properties.since", stmts[1].Query)
}

func TestCDCInvalid(t *testing.T) {
	sourceID, err := NewCDCSourceID(DefaultSourceIDLabel, DefaultSourceIDField)
	require.NoError(t, err)

	tests := map[string]struct {
		s     Strategy
		value string
	}{
		"unknown payload type": {sourceID, `{"meta": {"operation": "created"}, "payload": {"id": "1", "type": "edge", "after": {"properties": {}}}}`},
		"no state":             {sourceID, `{"meta": {"operation": "created"}, "payload": {"id": "1", "type": "node"}}`},
		"multiple labels":      {sourceID, `{"meta": {"operation": "created"}, "payload": {"id": "1", "type": "node", "after": {"labels": ["A", "B"], "properties": {}}}}`},
		"no endpoints":         {sourceID, `{"meta": {"operation": "created"}, "payload": {"id": "1", "type": "relationship", "label": "R", "after": {"properties": {}}}}`},
		"no constraint":        {CDCSchema{}, `{"meta": {"operation": "created"}, "payload": {"id": "1", "type": "node", "after": {"labels": ["A"], "properties": {"x": 1}}}}`},
		"not json":             {CDCSchema{}, `{`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tt.s.Statements([]Message{msg(0, "", tt.value)})
			assert.True(t, errors.Is(err, ErrInvalidEvent), "got %v", err)
		})
	}
}

func TestLargeIntegersKeepPrecision(t *testing.T) {
	exec, err := graph.NewExecutor(&graphtest.DB{}, "g", nil)
	require.NoError(t, err)

	node, err := NewNodePattern("Person{!id}")
	require.NoError(t, err)
	stmts, err := node.Statements([]Message{
		msg(0, "", `{"id": 9007199254740993, "score": 1.5}`),
		msg(1, "", `{"id": 9007199254740992, "score": 2}`),
	})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	_, args, err := exec.Render(stmts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"events": [
		{"keys": {"id": 9007199254740993}, "properties": {"score": 1.5}},
		{"keys": {"id": 9007199254740992}, "properties": {"score": 2}}
	]}`, args[0].(string))
	assert.Contains(t, args[0].(string), "9007199254740993")

	stmts, err = node.Statements([]Message{msg(2, "9007199254740993", "")})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"keys": map[string]any{"id": json.Number("9007199254740993")}}}, events(t, stmts[0]))

	cypher, err := NewCypherTemplate("MERGE (n:Person {id: event.id})")
	require.NoError(t, err)
	stmts, err = cypher.Statements([]Message{msg(3, "", `{"id": 1234567890123456789, "tags": [9007199254740993]}`)})
	require.NoError(t, err)
	_, args, err = exec.Render(stmts[0])
	require.NoError(t, err)
	assert.Contains(t, args[0].(string), `"id":1234567890123456789`)
	assert.Contains(t, args[0].(string), `[9007199254740993]`)

	stmts, err = CUD{}.Statements([]Message{msg(4, "", `{"op": "merge", "type": "node", "labels": ["Person"], "ids": {"id": 9007199254740993}}`)})
	require.NoError(t, err)
	_, args, err = exec.Render(stmts[0])
	require.NoError(t, err)
	assert.Contains(t, args[0].(string), `"id":9007199254740993`)

	stmts, err = CDCSchema{}.Statements([]Message{msg(5, "", `{"meta": {"operation": "created"}, "payload": {"id": "1", "type": "node",
		"after": {"labels": ["Person"], "properties": {"id": 9007199254740993}}},
		"schema": {"constraints": [{"label": "Person", "properties": ["id"], "type": "UNIQUE"}]}}`)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": json.Number("9007199254740993")}, events(t, stmts[0])[0].(map[string]any)["keys"])
}

func TestCDCSourceIDKeepsSourceField(t *testing.T) {
	s, err := NewCDCSourceID(DefaultSourceIDLabel, DefaultSourceIDField)
	require.NoError(t, err)

	stmts, err := s.Statements([]Message{
		msg(0, "", `{"meta": {"operation": "updated"}, "payload": {"id": "7", "type": "node",
			"before": {"labels": ["Person"], "properties": {"sourceId": "7", "name": "Joe", "nick": "jj"}},
			"after": {"labels": ["Person"], "properties": {"name": "Joe"}}}}`),
		msg(1, "", `{"meta": {"operation": "updated"}, "payload": {"id": "9", "type": "relationship", "label": "KNOWS",
			"start": {"id": "7", "labels": ["Person"]}, "end": {"id": "8", "labels": ["Person"]},
			"before": {"properties": {"sourceId": "9", "since": 2020}},
			"after": {"properties": {}}}}`),
	})
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "UNWIND $events AS event MERGE (n:Person {sourceId: event.id}) SET n.name = event.properties.name REMOVE n.nick", stmts[0].Query)
	assert.NotContains(t, stmts[1].Query, "r.sourceId")
	assert.Contains(t, stmts[1].Query, "REMOVE r.since")
}
