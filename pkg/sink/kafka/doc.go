// Package kafka runs the consumer group of a graph sink.
//
// A Consumer drains every claimed partition in batches bounded by size and time,
// hands each batch to a Processor and commits the batch's offsets only once the
// Processor has written it. Offsets are never auto-committed.
//
// Failures follow the ErrorPolicy:
//   - a failed batch is retried with exponential backoff for up to errors.retry.timeout;
//     malformed messages (strategy.ErrInvalidEvent) are not retried
//   - with errors.tolerance=none the claim fails and Run returns the error
//   - with errors.tolerance=all the offending messages are skipped, optionally logged
//     and sent to the dead letter topic with `__streams.errors.*` context headers
//
// Topic naming follows Kafka's rules: case-sensitive, alphanumerics plus `.`, `-`
// and `_`, at most 249 bytes.
package kafka
