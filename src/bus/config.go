package bus

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Defaults
const (
	DefaultHeartbeatFreq = 1
	DefaultSystem        = 0
)

// Config ...
type Config struct {
	// System is the routing tag this node puts in the From field of the
	// packets it originates.
	System uint8

	// HeartbeatFreq is the number of heartbeats per second.
	HeartbeatFreq int

	Clock  clock.Clock
	Logger *logrus.Entry
}

// DefaultConfig ...
func DefaultConfig() *Config {
	return &Config{
		System:        DefaultSystem,
		HeartbeatFreq: DefaultHeartbeatFreq,
		Clock:         clock.New(),
		Logger:        logrus.NewEntry(logrus.New()),
	}
}

// HeartbeatPeriod is the minimum time between two heartbeats.
func (c *Config) HeartbeatPeriod() time.Duration {
	freq := c.HeartbeatFreq
	if freq <= 0 {
		freq = DefaultHeartbeatFreq
	}
	return time.Duration(1000/freq) * time.Millisecond
}
