package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/edgeflare/graphstreams/pkg/streams"
	"github.com/magiconair/properties"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../pkg/config.Version=..."
var Version = "dev"

// Config holds application-wide configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	// Streams holds sink properties, eg `kafka.bootstrap.servers`, read from the
	// `streams` section. Keys are lowercased by viper; keys the sink knows are
	// restored to their canonical case. Use StreamsFile for case-sensitive topic names.
	Streams map[string]string `mapstructure:"-"`
	// StreamsFile is a Java properties file with sink properties. Its entries
	// override Streams.
	StreamsFile string `mapstructure:"streamsFile"`
}

type DatabaseConfig struct {
	ConnString string `mapstructure:"connString"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

func DefaultConfig() Config {
	return Config{
		Metrics: MetricsConfig{Addr: ":9100"},
		Streams: map[string]string{},
	}
}

// Load reads config from file or environment. Environment variables are
// prefixed with GRAPHSTREAMS, eg GRAPHSTREAMS_DATABASE_CONNSTRING.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("graphstreams")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	def := DefaultConfig()
	v.SetDefault("database.connString", def.Database.ConnString)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("streamsFile", "")

	v.SetEnvPrefix("GRAPHSTREAMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := def
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Streams = streamsSection(v)

	if cfg.StreamsFile != "" {
		props, err := LoadProperties(cfg.StreamsFile)
		if err != nil {
			return nil, err
		}
		maps.Copy(cfg.Streams, props)
	}
	return &cfg, nil
}

// LoadProperties reads sink properties from a Java properties file.
func LoadProperties(path string) (map[string]string, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("error reading streams properties: %w", err)
	}
	return p.Map(), nil
}

// knownKeys maps lowercased sink keys to their canonical spelling.
var knownKeys = func() map[string]string {
	out := make(map[string]string)
	add := func(k string) { out[strings.ToLower(k)] = k }
	for alias, canonical := range streams.DefaultAliases {
		add(alias)
		add(canonical)
	}
	for k := range streams.DefaultConfig {
		add(k)
	}
	for _, k := range []string{
		streams.KeyCDCSourceIDLabel,
		streams.KeyCDCSourceIDField,
		"streams." + streams.KeyCDCSourceIDLabel,
		"streams." + streams.KeyCDCSourceIDField,
	} {
		add(k)
	}
	return out
}()

// streamsSection flattens the `streams` section into dotted keys.
func streamsSection(v *viper.Viper) map[string]string {
	out := make(map[string]string)
	for _, key := range v.AllKeys() {
		k, ok := strings.CutPrefix(key, "streams.")
		if !ok {
			continue
		}
		if known, ok := knownKeys[k]; ok {
			k = known
		}
		out[k] = v.GetString(key)
	}
	return out
}
