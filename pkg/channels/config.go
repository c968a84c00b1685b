package channels

import "time"

// Config holds the broker settings for the push and sms channels. An empty
// URL leaves both channels on NoOpSender.
type Config struct {
	AMQPURL        string        `env:"AMQP_URL"`
	Exchange       string        `env:"AMQP_EXCHANGE" envDefault:"notifications"`
	PublishTimeout time.Duration `env:"AMQP_PUBLISH_TIMEOUT" envDefault:"5s"`
}
