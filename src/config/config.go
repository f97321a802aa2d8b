package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/uartbus/src/common"
	"github.com/mosaicnetworks/uartbus/src/hwid"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the node's
	// private key, from which the unique identifier is derived.
	DefaultKeyfile = hwid.DefaultKeyfile

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database that stands in for the EEPROM.
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel      = "debug"
	DefaultHeartbeatFreq = 1
	DefaultSystem        = 0
	DefaultHubAddr       = "127.0.0.1:1337"
	DefaultServiceAddr   = "127.0.0.1:8000"
	DefaultTCPTimeout    = 1000 * time.Millisecond
	DefaultTickInterval  = 10 * time.Millisecond
	DefaultStore         = false
	DefaultTestPackets   = false
	DefaultMaxVariables  = 64
)

// Config contains all the configuration properties of a bus node.
type Config struct {
	// DataDir is the top-level directory containing configuration and data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// System is the routing tag written in the From field of the packets this
	// node originates.
	System uint8 `mapstructure:"system"`

	// HeartbeatFreq is the number of heartbeats per second.
	HeartbeatFreq int `mapstructure:"heartbeat-freq"`

	// TickInterval is the period of the main loop.
	TickInterval time.Duration `mapstructure:"tick"`

	// HubAddr is the address of the TCP hub emulating the bus. When empty, the
	// node runs on a private in-memory bus, which is only useful for trying
	// things out.
	HubAddr string `mapstructure:"hub"`

	// TCPTimeout is the timeout of the connection to the hub.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Store activates persistant storage of the slot.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Unique overrides the unique identifier. Zero means the identifier is
	// derived from the keyfile in DataDir.
	Unique uint32 `mapstructure:"unique"`

	// TestPackets enables the test packet generator.
	TestPackets bool `mapstructure:"test-packets"`

	// MaxVariables is the capacity of the shared variable registry.
	MaxVariables int `mapstructure:"max-variables"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:       DefaultDataDir(),
		LogLevel:      DefaultLogLevel,
		System:        DefaultSystem,
		HeartbeatFreq: DefaultHeartbeatFreq,
		TickInterval:  DefaultTickInterval,
		HubAddr:       DefaultHubAddr,
		TCPTimeout:    DefaultTCPTimeout,
		ServiceAddr:   DefaultServiceAddr,
		Store:         DefaultStore,
		DatabaseDir:   DefaultDatabaseDir(),
		TestPackets:   DefaultTestPackets,
		MaxVariables:  DefaultMaxVariables,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// SetLogger replaces the logger returned by Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Logger returns a formatted logrus Entry, with prefix set to "busnode".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "busnode")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Busnode")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Busnode")
		} else {
			return filepath.Join(home, ".busnode")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
