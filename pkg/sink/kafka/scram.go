package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

// scramMechanisms maps the accepted sasl.mechanism spellings to sarama's
// mechanism and the hash it is computed with.
var scramMechanisms = map[string]struct {
	mechanism sarama.SASLMechanism
	hash      scram.HashGeneratorFcn
}{
	MechanismSHA256: {sarama.SASLTypeSCRAMSHA256, scram.SHA256},
	"SHA256":        {sarama.SASLTypeSCRAMSHA256, scram.SHA256},
	MechanismSHA512: {sarama.SASLTypeSCRAMSHA512, scram.SHA512},
	"SHA512":        {sarama.SASLTypeSCRAMSHA512, scram.SHA512},
}

// scramClient runs one SCRAM conversation for sarama. sarama asks the generator
// for a fresh client on every broker connection.
type scramClient struct {
	hash scram.HashGeneratorFcn
	conv *scram.ClientConversation
}

var _ sarama.SCRAMClient = (*scramClient)(nil)

func scramClientGenerator(hash scram.HashGeneratorFcn) func() sarama.SCRAMClient {
	return func() sarama.SCRAMClient { return &scramClient{hash: hash} }
}

func (c *scramClient) Begin(user, password, authzID string) error {
	client, err := c.hash.NewClient(user, password, authzID)
	if err != nil {
		return fmt.Errorf("scram: prepare credentials for %s: %w", user, err)
	}
	c.conv = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	if c.conv == nil {
		return "", errors.New("scram: conversation not started")
	}
	resp, err := c.conv.Step(challenge)
	if err != nil {
		return "", fmt.Errorf("scram: %w", err)
	}
	return resp, nil
}

func (c *scramClient) Done() bool {
	return c.conv != nil && c.conv.Done()
}
