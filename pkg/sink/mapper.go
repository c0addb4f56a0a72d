package sink

import (
	"slices"
	"strings"

	"github.com/edgeflare/graphstreams/pkg/streams"
	"github.com/google/uuid"
)

// Namespaces stripped from keys the alias table does not know.
var namespaces = []string{"streams.", "kafka."}

// ConfigMapper is the sink's streams.KeyMapper: the base merge over
// streams.DefaultConfig and streams.DefaultAliases, plus
//   - dynamic namespaced keys (eg `streams.sink.topic.cypher.<topic>`) are moved to
//     their canonical form (`sink.topic.cypher.<topic>`)
//   - client.id is derived from group.id when absent
type ConfigMapper struct {
	*streams.ConfigMapper
	canonical map[string]bool
}

func NewConfigMapper() *ConfigMapper {
	canonical := make(map[string]bool)
	for _, k := range streams.DefaultAliases {
		canonical[k] = true
	}
	for k := range streams.DefaultConfig {
		canonical[k] = true
	}
	return &ConfigMapper{
		ConfigMapper: streams.NewConfigMapper(streams.DefaultConfig, streams.DefaultAliases),
		canonical:    canonical,
	}
}

var _ streams.KeyMapper = (*ConfigMapper)(nil)

func (m *ConfigMapper) Convert(overrides map[string]string) map[string]string {
	out := m.ConfigMapper.Convert(overrides)

	// sorted, so the namespaced form of a key is applied after the bare one
	var moved []string
	for k := range out {
		if m.canonical[k] {
			continue
		}
		for _, ns := range namespaces {
			if strings.HasPrefix(k, ns) {
				moved = append(moved, k)
				break
			}
		}
	}
	slices.Sort(moved)
	for _, k := range moved {
		v := out[k]
		delete(out, k)
		out[stripNamespace(k)] = v
	}

	if out[streams.KeyClientID] == "" {
		out[streams.KeyClientID] = ClientID(out[streams.KeyGroupID])
	}
	return out
}

func stripNamespace(k string) string {
	for _, ns := range namespaces {
		if rest, ok := strings.CutPrefix(k, ns); ok {
			return rest
		}
	}
	return k
}

// ClientID derives a stable Kafka client id from a consumer group id.
func ClientID(groupID string) string {
	return "graphstreams-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(groupID)).String()
}
