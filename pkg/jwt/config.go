package jwt

import "time"

// Config holds the token settings shared by the REST middleware and the
// websocket authenticator.
type Config struct {
	SigningKey string        `env:"JWT_SIGNING_KEY,required"`
	Issuer     string        `env:"JWT_ISSUER" envDefault:"wealthcrm"`
	TTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// NewFromConfig builds a Service from Config.
func NewFromConfig(cfg Config) (*Service, error) {
	return NewFromString(cfg.SigningKey, WithIssuer(cfg.Issuer), WithTTL(cfg.TTL))
}
