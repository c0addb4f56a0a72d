// Package sink ingests Kafka topics into an Apache AGE graph.
//
// A sink is built by a registered Factory, bound to an open database handle:
//
//	mapper := sink.NewConfigMapper()
//	cfg := mapper.Convert(map[string]string{
//		"kafka.bootstrap.servers":          "kafka1:9092",
//		"streams.sink.topic.cypher.people": "MERGE (p:Person {id: event.id}) SET p.name = event.name",
//	})
//
//	s := sink.GetSink(cfg, logger, pool).WithLogger(logger)
//	if err := s.Start(ctx, cfg); err != nil {
//		return err
//	}
//	defer s.Stop()
//
// Building a sink does no I/O. Start decodes the configuration, creates the graph
// when missing and runs the consumer group in the background; every consumed batch
// is converted by its topic's strategy (see package strategy) and written in one
// transaction before its offsets are committed.
package sink
