package sink

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/edgeflare/graphstreams/pkg/graph"
	"github.com/edgeflare/graphstreams/pkg/sink/kafka"
	"github.com/edgeflare/graphstreams/pkg/sink/strategy"
	"github.com/edgeflare/graphstreams/pkg/streams"
	"github.com/mitchellh/mapstructure"
)

var (
	ErrInvalidConfig = errors.New("invalid sink configuration")
	ErrTopicConflict = errors.New("topic bound to more than one strategy")
)

// Config is the decoded sink configuration. Field tags are the canonical keys of
// package streams.
type Config struct {
	Kafka  kafka.Config      `mapstructure:",squash"`
	Errors kafka.ErrorPolicy `mapstructure:",squash"`

	Enabled      bool          `mapstructure:"sink.enabled"`
	Graph        string        `mapstructure:"sink.graph"`
	BatchSize    int           `mapstructure:"sink.batch.size"`
	BatchTimeout time.Duration `mapstructure:"sink.batch.timeout"`

	SourceIDLabel string `mapstructure:"sink.topic.cdc.sourceId.labelName"`
	SourceIDField string `mapstructure:"sink.topic.cdc.sourceId.idName"`

	// Topics binds every subscribed topic to its ingestion strategy.
	Topics map[string]Binding `mapstructure:"-"`
}

// ParseConfig decodes a canonical configuration map, as returned by
// ConfigMapper.Convert, on top of streams.DefaultConfig.
func ParseConfig(m map[string]string) (Config, error) {
	merged := maps.Clone(streams.DefaultConfig)
	maps.Copy(merged, m)

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisecondsHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(merged); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Kafka.Brokers = splitList(strings.Join(cfg.Kafka.Brokers, ","))

	topics := NewTopicService()
	if err := bindTopics(topics, merged); err != nil {
		return Config{}, err
	}
	cfg.Topics = topics.All()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks a configuration that is enabled. A disabled configuration is
// always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("%s is required", streams.KeyBootstrapServers))
	}
	if c.Kafka.GroupID == "" {
		errs = append(errs, fmt.Errorf("%s is required", streams.KeyGroupID))
	}
	if !graph.ValidIdentifier(c.Graph) {
		errs = append(errs, fmt.Errorf("%s %q is not a valid graph name", streams.KeySinkGraph, c.Graph))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", streams.KeySinkBatchSize))
	}
	if c.BatchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", streams.KeySinkBatchTimeout))
	}
	if err := c.Errors.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Topics) == 0 {
		errs = append(errs, errors.New("no topic is bound to a strategy"))
	}
	if _, ok := c.Topics[c.Errors.DLQTopic]; ok {
		errs = append(errs, fmt.Errorf("dead letter topic %s is also consumed", c.Errors.DLQTopic))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Strategies builds the strategy of every bound topic.
func (c *Config) Strategies() (map[string]strategy.Strategy, error) {
	out := make(map[string]strategy.Strategy, len(c.Topics))
	for topic, b := range c.Topics {
		s, err := strategy.New(b.Type, b.Setting, strategy.WithSourceID(c.SourceIDLabel, c.SourceIDField))
		if err != nil {
			return nil, fmt.Errorf("%w: topic %s: %w", ErrInvalidConfig, topic, err)
		}
		out[topic] = s
	}
	return out, nil
}

// bindTopics reads the sink.topic.* keys. Keys are visited in sorted order so a
// conflict is always reported for the same pair.
func bindTopics(topics *TopicService, m map[string]string) error {
	prefixed := []struct {
		prefix string
		typ    strategy.TopicType
	}{
		{streams.KeyTopicCypherPrefix, strategy.TopicCypher},
		{streams.KeyTopicPatternNodePrefix, strategy.TopicPatternNode},
		{streams.KeyTopicPatternRelationshipPrefix, strategy.TopicPatternRelationship},
	}
	listed := map[string]strategy.TopicType{
		streams.KeyTopicCDCSourceID: strategy.TopicCDCSourceID,
		streams.KeyTopicCDCSchema:   strategy.TopicCDCSchema,
		streams.KeyTopicCUD:         strategy.TopicCUD,
	}

	for _, key := range slices.Sorted(maps.Keys(m)) {
		value := m[key]
		if typ, ok := listed[key]; ok {
			for _, topic := range splitList(value) {
				if err := topics.Set(topic, Binding{Type: typ}); err != nil {
					return err
				}
			}
			continue
		}
		for _, p := range prefixed {
			topic, ok := strings.CutPrefix(key, p.prefix)
			if !ok {
				continue
			}
			if topic == "" {
				return fmt.Errorf("%w: %s has no topic name", ErrInvalidConfig, key)
			}
			if err := topics.Set(topic, Binding{Type: p.typ, Setting: value}); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// millisecondsHookFunc reads bare integers as milliseconds, eg
// errors.retry.timeout=30000.
func millisecondsHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		ms, err := strconv.ParseInt(strings.TrimSpace(data.(string)), 10, 64)
		if err != nil {
			return data, nil
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
}
