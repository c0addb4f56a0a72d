package streams

// Canonical configuration keys.
const (
	KeyBootstrapServers = "bootstrap.servers"
	KeyGroupID          = "group.id"
	KeyClientID         = "client.id"
	KeyAutoOffsetReset  = "auto.offset.reset"
	KeyKafkaVersion     = "kafka.version"

	KeySASLEnable    = "sasl.enable"
	KeySASLMechanism = "sasl.mechanism"
	KeySASLUsername  = "sasl.username"
	KeySASLPassword  = "sasl.password"

	KeyTLSEnable     = "tls.enable"
	KeyTLSCAFile     = "tls.ca.file"
	KeyTLSCertFile   = "tls.cert.file"
	KeyTLSKeyFile    = "tls.key.file"
	KeyTLSSkipVerify = "tls.skip.verify"

	KeySinkEnabled      = "sink.enabled"
	KeySinkGraph        = "sink.graph"
	KeySinkBatchSize    = "sink.batch.size"
	KeySinkBatchTimeout = "sink.batch.timeout"

	KeyErrorsTolerance        = "errors.tolerance"
	KeyErrorsRetryTimeout     = "errors.retry.timeout"
	KeyErrorsRetryMaxDelay    = "errors.retry.delay.max"
	KeyErrorsDLQTopic         = "errors.deadletterqueue.topic.name"
	KeyErrorsDLQHeaders       = "errors.deadletterqueue.context.headers.enable"
	KeyErrorsLogEnable        = "errors.log.enable"
	KeyErrorsLogIncludeValues = "errors.log.include.messages"

	// Topic bindings. The per-topic forms are suffixed with the topic name,
	// eg `sink.topic.cypher.people`.
	KeyTopicCypherPrefix              = "sink.topic.cypher."
	KeyTopicPatternNodePrefix         = "sink.topic.pattern.node."
	KeyTopicPatternRelationshipPrefix = "sink.topic.pattern.relationship."
	KeyTopicCDCSourceID               = "sink.topic.cdc.sourceId"
	KeyTopicCDCSchema                 = "sink.topic.cdc.schema"
	KeyTopicCUD                       = "sink.topic.cud"
	KeyCDCSourceIDLabel               = "sink.topic.cdc.sourceId.labelName"
	KeyCDCSourceIDField               = "sink.topic.cdc.sourceId.idName"
)

// DefaultAliases maps the user-facing, namespaced keys onto canonical keys.
var DefaultAliases = map[string]string{
	"kafka.bootstrap.servers": KeyBootstrapServers,
	"kafka.group.id":          KeyGroupID,
	"kafka.client.id":         KeyClientID,
	"kafka.auto.offset.reset": KeyAutoOffsetReset,
	"kafka.sasl.enable":       KeySASLEnable,
	"kafka.sasl.mechanism":    KeySASLMechanism,
	"kafka.sasl.username":     KeySASLUsername,
	"kafka.sasl.password":     KeySASLPassword,
	"kafka.tls.enable":        KeyTLSEnable,
	"kafka.tls.ca.file":       KeyTLSCAFile,
	"kafka.tls.cert.file":     KeyTLSCertFile,
	"kafka.tls.key.file":      KeyTLSKeyFile,
	"kafka.tls.skip.verify":   KeyTLSSkipVerify,

	"streams.sink.enabled":    KeySinkEnabled,
	"streams.sink.graph":      KeySinkGraph,
	"streams.sink.batch.size": KeySinkBatchSize,

	"streams.sink.errors.tolerance":                              KeyErrorsTolerance,
	"streams.sink.errors.retry.timeout":                          KeyErrorsRetryTimeout,
	"streams.sink.errors.retry.delay.max":                        KeyErrorsRetryMaxDelay,
	"streams.sink.errors.deadletterqueue.topic.name":             KeyErrorsDLQTopic,
	"streams.sink.errors.deadletterqueue.context.headers.enable": KeyErrorsDLQHeaders,
	"streams.sink.errors.log.enable":                             KeyErrorsLogEnable,
	"streams.sink.errors.log.include.messages":                   KeyErrorsLogIncludeValues,

	"streams.sink.topic.cdc.sourceId": KeyTopicCDCSourceID,
	"streams.sink.topic.cdc.schema":   KeyTopicCDCSchema,
	"streams.sink.topic.cud":          KeyTopicCUD,
}

// DefaultConfig is the base configuration every sink starts from.
var DefaultConfig = map[string]string{
	KeyBootstrapServers:    "localhost:9092",
	KeyGroupID:             "graphstreams",
	KeyAutoOffsetReset:     "earliest",
	KeyKafkaVersion:        "2.1.1",
	KeySinkEnabled:         "true",
	KeySinkGraph:           "streams",
	KeySinkBatchSize:       "1000",
	KeySinkBatchTimeout:    "1s",
	KeyErrorsTolerance:     "none",
	KeyErrorsRetryTimeout:  "0s",
	KeyErrorsRetryMaxDelay: "1s",
}
