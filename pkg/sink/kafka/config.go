package kafka

import (
	"cmp"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

const (
	DefaultClientID = "graphstreams"
	DefaultVersion  = "2.1.1"

	MechanismPlain  = "PLAIN"
	MechanismSHA256 = "SCRAM-SHA-256"
	MechanismSHA512 = "SCRAM-SHA-512"

	ToleranceNone = "none"
	ToleranceAll  = "all"
)

// Config is the connection configuration of the sink's consumer group. Field tags
// are the canonical streams keys.
type Config struct {
	Brokers       []string `mapstructure:"bootstrap.servers"`
	GroupID       string   `mapstructure:"group.id"`
	ClientID      string   `mapstructure:"client.id"`
	Version       string   `mapstructure:"kafka.version"`
	InitialOffset string   `mapstructure:"auto.offset.reset"`
	SASL          SASL     `mapstructure:",squash"`
	TLS           TLS      `mapstructure:",squash"`
}

// SASL represents SASL authentication configuration
type SASL struct {
	Enable    bool   `mapstructure:"sasl.enable"`
	Mechanism string `mapstructure:"sasl.mechanism"`
	Username  string `mapstructure:"sasl.username"`
	Password  string `mapstructure:"sasl.password"`
}

// TLS represents TLS configuration
type TLS struct {
	Enable     bool   `mapstructure:"tls.enable"`
	CAFile     string `mapstructure:"tls.ca.file"`
	CertFile   string `mapstructure:"tls.cert.file"`
	KeyFile    string `mapstructure:"tls.key.file"`
	SkipVerify bool   `mapstructure:"tls.skip.verify"`
}

// ErrorPolicy decides what happens to messages that cannot be written to the graph.
type ErrorPolicy struct {
	// Tolerance is "none" (stop the sink) or "all" (skip the message).
	Tolerance string `mapstructure:"errors.tolerance"`
	// RetryTimeout bounds the retries of a failed batch. Zero disables retries.
	RetryTimeout  time.Duration `mapstructure:"errors.retry.timeout"`
	RetryMaxDelay time.Duration `mapstructure:"errors.retry.delay.max"`

	DLQTopic   string `mapstructure:"errors.deadletterqueue.topic.name"`
	DLQHeaders bool   `mapstructure:"errors.deadletterqueue.context.headers.enable"`

	LogEnable        bool `mapstructure:"errors.log.enable"`
	LogIncludeValues bool `mapstructure:"errors.log.include.messages"`
}

func (p ErrorPolicy) Validate() error {
	switch p.Tolerance {
	case ToleranceNone, ToleranceAll:
	default:
		return fmt.Errorf("invalid errors.tolerance %q: want %q or %q", p.Tolerance, ToleranceNone, ToleranceAll)
	}
	if p.RetryTimeout < 0 || p.RetryMaxDelay < 0 {
		return errors.New("retry durations must not be negative")
	}
	return nil
}

// SaramaConfig builds the sarama configuration shared by the consumer group and the
// dead letter queue producer. Offsets are committed manually once a batch is written.
func (c *Config) SaramaConfig() (*sarama.Config, error) {
	conf := sarama.NewConfig()

	version, err := sarama.ParseKafkaVersion(cmp.Or(c.Version, DefaultVersion))
	if err != nil {
		return nil, fmt.Errorf("error parsing Kafka version: %w", err)
	}
	conf.Version = version
	conf.ClientID = cmp.Or(c.ClientID, DefaultClientID)

	switch strings.ToLower(c.InitialOffset) {
	case "", "earliest":
		conf.Consumer.Offsets.Initial = sarama.OffsetOldest
	case "latest":
		conf.Consumer.Offsets.Initial = sarama.OffsetNewest
	default:
		return nil, fmt.Errorf("invalid auto.offset.reset %q", c.InitialOffset)
	}
	conf.Consumer.Offsets.AutoCommit.Enable = false

	conf.Producer.RequiredAcks = sarama.WaitForAll
	conf.Producer.Retry.Max = 5
	conf.Producer.Retry.Backoff = time.Second
	conf.Producer.Return.Successes = true

	if c.SASL.Enable {
		conf.Net.SASL.Enable = true
		conf.Net.SASL.User = c.SASL.Username
		conf.Net.SASL.Password = c.SASL.Password
		conf.Net.SASL.Handshake = true

		mechanism := strings.ToUpper(c.SASL.Mechanism)
		scramMech, isSCRAM := scramMechanisms[mechanism]
		switch {
		case mechanism == "" || mechanism == MechanismPlain:
			conf.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		case isSCRAM:
			conf.Net.SASL.Mechanism = scramMech.mechanism
			conf.Net.SASL.SCRAMClientGeneratorFunc = scramClientGenerator(scramMech.hash)
		default:
			return nil, fmt.Errorf("invalid SASL mechanism: %s", c.SASL.Mechanism)
		}
	}

	if c.TLS.Enable {
		tlsConf, err := createTLSConfiguration(c.TLS)
		if err != nil {
			return nil, err
		}
		conf.Net.TLS.Enable = true
		conf.Net.TLS.Config = tlsConf
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka configuration: %w", err)
	}
	return conf, nil
}

func createTLSConfiguration(tlsCfg TLS) (*tls.Config, error) {
	t := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: tlsCfg.SkipVerify, //nolint:gosec // opt-in
	}

	if tlsCfg.CAFile != "" {
		caCert, err := os.ReadFile(tlsCfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", tlsCfg.CAFile)
		}
		t.RootCAs = pool
	}

	if tlsCfg.CertFile != "" || tlsCfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsCfg.CertFile, tlsCfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		t.Certificates = []tls.Certificate{cert}
	}

	return t, nil
}
