package commands

import (
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/uartbus/src/config"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Busnode config.Config `mapstructure:",squash"`

	// LogFile, when set, receives a copy of every log line at info level and
	// above. A relative path is taken from the data directory.
	LogFile string `mapstructure:"log-file"`

	// HubListen is the bind address of the hub command.
	HubListen string `mapstructure:"hub-listen"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Busnode:   *config.NewDefaultConfig(),
		LogFile:   "",
		HubListen: config.DefaultHubAddr,
	}
}

// newLogger builds the logger shared by every component. Console output uses
// the prefixed formatter; the optional log file gets plain text lines.
func newLogger(c *CLIConfig) *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(c.Busnode.LogLevel)
	logger.Formatter = new(prefixed.TextFormatter)

	if c.LogFile == "" {
		return logger
	}

	path := c.LogFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.Busnode.DataDir, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		logger.WithError(err).Info("Failed to create log directory, using default stderr")
		return logger
	}

	_, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		logger.Infof("Failed to open %s, using default stderr", path)
		return logger
	}

	pathMap := lfshook.PathMap{
		logrus.InfoLevel:  path,
		logrus.WarnLevel:  path,
		logrus.ErrorLevel: path,
		logrus.FatalLevel: path,
		logrus.PanicLevel: path,
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))

	return logger
}
