package cdc

// MetaBuilder helps construct Meta objects with reasonable defaults
type MetaBuilder struct {
	meta Meta
}

func NewMetaBuilder(op Operation) *MetaBuilder {
	return &MetaBuilder{
		meta: Meta{
			Operation:     op,
			TxEventsCount: 1,
		},
	}
}

func (b *MetaBuilder) WithTimestamp(ts int64) *MetaBuilder {
	b.meta.Timestamp = ts
	return b
}

func (b *MetaBuilder) WithUsername(username string) *MetaBuilder {
	b.meta.Username = username
	return b
}

func (b *MetaBuilder) WithTransaction(txID int64, eventID, eventsCount int) *MetaBuilder {
	b.meta.TxID = txID
	b.meta.TxEventID = eventID
	b.meta.TxEventsCount = eventsCount
	return b
}

func (b *MetaBuilder) WithSource(source map[string]any) *MetaBuilder {
	b.meta.Source = source
	return b
}

func (b *MetaBuilder) Build() Meta {
	return b.meta
}

// EventBuilder helps construct complete CDC events
type EventBuilder struct {
	event Event
}

func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		event: Event{
			Meta: Meta{Operation: OpCreated, TxEventsCount: 1},
		},
	}
}

func (b *EventBuilder) WithMeta(meta Meta) *EventBuilder {
	b.event.Meta = meta
	return b
}

// Node marks the event as a node change with the given source id.
func (b *EventBuilder) Node(id string) *EventBuilder {
	b.event.Payload.ID = id
	b.event.Payload.Type = EntityNode
	return b
}

// Relationship marks the event as a relationship change between start and end.
func (b *EventBuilder) Relationship(id, label string, start, end RelationshipNode) *EventBuilder {
	b.event.Payload.ID = id
	b.event.Payload.Type = EntityRelationship
	b.event.Payload.Label = label
	b.event.Payload.Start = &start
	b.event.Payload.End = &end
	return b
}

func (b *EventBuilder) WithBefore(labels []string, props map[string]any) *EventBuilder {
	b.event.Payload.Before = &State{Labels: labels, Properties: props}
	return b
}

func (b *EventBuilder) WithAfter(labels []string, props map[string]any) *EventBuilder {
	b.event.Payload.After = &State{Labels: labels, Properties: props}
	return b
}

func (b *EventBuilder) WithConstraint(label string, typ ConstraintType, props ...string) *EventBuilder {
	b.event.Schema.Constraints = append(b.event.Schema.Constraints, Constraint{
		Label:      label,
		Properties: props,
		Type:       typ,
	})
	return b
}

func (b *EventBuilder) Build() Event {
	return b.event
}
