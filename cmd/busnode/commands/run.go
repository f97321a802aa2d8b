package commands

import (
	"github.com/mosaicnetworks/uartbus/src/busnode"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a bus node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runBusnode,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runBusnode(cmd *cobra.Command, args []string) error {
	engine := busnode.NewBusnode(&_config.Busnode)

	if err := engine.Init(); err != nil {
		_config.Busnode.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Busnode.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Busnode.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write info and above to this file")

	// Identity
	cmd.Flags().Uint32("unique", _config.Busnode.Unique, "Unique id override (0: derive from keyfile)")
	cmd.Flags().Uint8("system", _config.Busnode.System, "Routing tag of the packets this node originates")

	// Bus
	cmd.Flags().StringP("hub", "H", _config.Busnode.HubAddr, "IP:Port of the bus hub (empty: private in-memory bus)")
	cmd.Flags().DurationP("timeout", "t", _config.Busnode.TCPTimeout, "TCP Timeout")
	cmd.Flags().Int("heartbeat-freq", _config.Busnode.HeartbeatFreq, "Heartbeats per second")
	cmd.Flags().Duration("tick", _config.Busnode.TickInterval, "Main loop period")
	cmd.Flags().Bool("test-packets", _config.Busnode.TestPackets, "Send test packets")
	cmd.Flags().Int("max-variables", _config.Busnode.MaxVariables, "Capacity of the shared variable registry")

	// Service
	cmd.Flags().Bool("no-service", _config.Busnode.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Busnode.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Busnode.Store, "Persist the slot in badgerDB instead of memory")
	cmd.Flags().String("db", _config.Busnode.DatabaseDir, "Dabatabase directory")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Busnode.SetDataDir(_config.Busnode.DataDir)

	_config.Busnode.SetLogger(newLogger(_config))

	logFields := logrus.Fields{
		"busnode.DataDir":       _config.Busnode.DataDir,
		"busnode.HubAddr":       _config.Busnode.HubAddr,
		"busnode.ServiceAddr":   _config.Busnode.ServiceAddr,
		"busnode.NoService":     _config.Busnode.NoService,
		"busnode.Store":         _config.Busnode.Store,
		"busnode.LogLevel":      _config.Busnode.LogLevel,
		"busnode.System":        _config.Busnode.System,
		"busnode.HeartbeatFreq": _config.Busnode.HeartbeatFreq,
		"busnode.TickInterval":  _config.Busnode.TickInterval,
		"busnode.TCPTimeout":    _config.Busnode.TCPTimeout,
		"busnode.TestPackets":   _config.Busnode.TestPackets,
		"busnode.MaxVariables":  _config.Busnode.MaxVariables,
		"LogFile":               _config.LogFile,
	}

	if _config.Busnode.Store {
		logFields["busnode.DatabaseDir"] = _config.Busnode.DatabaseDir
	}

	if _config.Busnode.Unique != 0 {
		logFields["busnode.Unique"] = _config.Busnode.Unique
	}

	_config.Busnode.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/busnode.toml (.json, .yaml also work)
	viper.SetConfigName("busnode")               // name of config file (without extension)
	viper.AddConfigPath(_config.Busnode.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Busnode.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Busnode.Logger().Debugf("No config file found in: %s", _config.Busnode.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
