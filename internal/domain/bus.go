package domain

import "context"

// EventBus publishes analysis events. Go channels in the default deployment,
// NATS when a broker is configured.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is an event envelope.
type Message struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Subscription is an active subscription.
type Subscription interface {
	Unsubscribe() error
	Topic() string
}

// Topics for the analysis pipeline.
const (
	TopicAnalysisCompleted = "linkguard.analysis.completed"
	TopicHighRiskAlert     = "linkguard.alert.highrisk"
	TopicReportReceived    = "linkguard.report.received"
)

// EventBusConfig selects the bus backend.
type EventBusConfig struct {
	// Type is "channel" or "nats".
	Type string `yaml:"type"`

	ChannelBufferSize int `yaml:"channelBufferSize"`

	NATSUrl           string `yaml:"natsUrl"`
	NATSToken         string `yaml:"natsToken"`
	NATSMaxReconnects int    `yaml:"natsMaxReconnects"`
	NATSReconnectWait int    `yaml:"natsReconnectWait"` // seconds
}
