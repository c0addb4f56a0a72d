// Package streams holds the configuration plumbing shared by graphstreams components.
//
// User configuration arrives as a flat string map whose keys may carry
// user-facing namespaces (eg `kafka.bootstrap.servers`, `streams.sink.enabled`).
// A `KeyMapper` rewrites those keys to their canonical names and merges them over
// a base configuration:
//
//	m := streams.NewConfigMapper(streams.DefaultConfig, streams.DefaultAliases)
//	cfg := m.Convert(map[string]string{"kafka.bootstrap.servers": "kafka1:9092"})
//	// cfg["bootstrap.servers"] == "kafka1:9092"
//
// Overrides always win over the base, and the base held by a mapper is never
// modified, so one mapper can be shared by concurrent callers.
package streams
