package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/uartbus/src/bus"
	"github.com/mosaicnetworks/uartbus/src/common"
	"github.com/sirupsen/logrus"
)

// DefaultTickInterval is the period of the main loop timer.
const DefaultTickInterval = 10 * time.Millisecond

// Config ...
type Config struct {
	Bus *bus.Config

	// TickInterval is how often the bus layer gets a chance to send a
	// heartbeat.
	TickInterval time.Duration `mapstructure:"tick"`

	// TestPackets enables the test packet generator.
	TestPackets bool `mapstructure:"test-packets"`

	Logger *logrus.Logger
}

// NewConfig ...
func NewConfig(busConf *bus.Config,
	tick time.Duration,
	testPackets bool,
	logger *logrus.Logger) *Config {

	return &Config{
		Bus:          busConf,
		TickInterval: tick,
		TestPackets:  testPackets,
		Logger:       logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	busConf := bus.DefaultConfig()
	busConf.Logger = logrus.NewEntry(logger)

	return &Config{
		Bus:          busConf,
		TickInterval: DefaultTickInterval,
		Logger:       logger,
	}
}

// TestConfig returns a configuration whose loggers write through t.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestLogger(t, logrus.DebugLevel)
	config.Bus.Logger = logrus.NewEntry(config.Logger)
	return config
}
