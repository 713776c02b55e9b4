package serde

import "fmt"

// SubjectNameStrategy derives the registry subject for a topic.
type SubjectNameStrategy func(topic string, isKey bool) string

// TopicNameStrategy is the Confluent default: "<topic>-key" / "<topic>-value".
func TopicNameStrategy(topic string, isKey bool) string {
	if isKey {
		return topic + "-key"
	}
	return topic + "-value"
}

// Logger is the logging contract used by the serde.
// *logger.LoggerClient satisfies it.
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Config binds a serde to a topic.
type Config struct {
	// Topic is the channel whose key and value subjects the serde uses.
	Topic string `yaml:"topic" envconfig:"SERDE_TOPIC"`

	// SubjectNameStrategy overrides how subjects are derived from Topic.
	// Default: TopicNameStrategy
	SubjectNameStrategy SubjectNameStrategy `yaml:"-" ignored:"true"`

	// Logger is optional.
	Logger Logger `yaml:"-" ignored:"true"`
}

func (c *Config) applyDefaults() error {
	if c.Topic == "" {
		return fmt.Errorf("serde topic is required")
	}
	if c.SubjectNameStrategy == nil {
		c.SubjectNameStrategy = TopicNameStrategy
	}
	return nil
}
