package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/uartbus/src/net"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewHubCmd returns the command that starts a TCP hub emulating the bus
func NewHubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Run a TCP hub relaying packets between nodes",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return viper.Unmarshal(_config)
		},
		RunE: runHub,
	}

	cmd.Flags().String("hub-listen", _config.HubListen, "Listen IP:Port for the hub")
	cmd.Flags().Duration("timeout", _config.Busnode.TCPTimeout, "Write timeout towards each node")
	cmd.Flags().String("log", _config.Busnode.LogLevel, "debug, info, warn, error, fatal, panic")

	return cmd
}

func runHub(cmd *cobra.Command, args []string) error {
	logger := newLogger(_config).WithField("prefix", "hub")

	hub, err := net.NewHub(_config.HubListen, _config.Busnode.TCPTimeout, logger)
	if err != nil {
		logger.WithError(err).Error("Cannot start hub")
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.WithFields(logrus.Fields{
			"frames": hub.Frames(),
		}).Info("Stopping hub")
		hub.Close()
	}()

	hub.Serve()

	return nil
}
