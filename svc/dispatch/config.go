package dispatch

import "time"

type Config struct {
	Timezone    string        `env:"NOTIFICATIONS_TIMEZONE" envDefault:"UTC"`
	SendTimeout time.Duration `env:"NOTIFICATIONS_SEND_TIMEOUT" envDefault:"10s"`
}

// Location loads Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}
