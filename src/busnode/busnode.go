package busnode

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/mosaicnetworks/uartbus/src/bus"
	"github.com/mosaicnetworks/uartbus/src/config"
	"github.com/mosaicnetworks/uartbus/src/hwid"
	"github.com/mosaicnetworks/uartbus/src/net"
	"github.com/mosaicnetworks/uartbus/src/node"
	"github.com/mosaicnetworks/uartbus/src/service"
	"github.com/mosaicnetworks/uartbus/src/shared"
	"github.com/mosaicnetworks/uartbus/src/store"
	"github.com/mosaicnetworks/uartbus/src/telemetry"
	"github.com/mosaicnetworks/uartbus/src/version"
	"github.com/sirupsen/logrus"
)

// Busnode is a struct containing the key objects of a bus node: the store
// holding the persisted slot, the identity provider, the transport, the
// shared variable registry, the node itself and the optional HTTP service.
type Busnode struct {
	Config    *config.Config
	Node      *node.Node
	Transport net.Transport
	Store     store.Store
	Hardware  hwid.Provider
	Registry  *shared.Registry
	Metrics   *telemetry.Metrics
	Service   *service.Service

	clock        clock.Clock
	logger       *logrus.Entry
	shutdownOnce sync.Once
}

// NewBusnode is a factory method to produce a Busnode instance. Shared
// variables can be registered with the Registry between NewBusnode and Run.
func NewBusnode(c *config.Config) *Busnode {
	cl := clock.New()

	engine := &Busnode{
		Config:   c,
		Registry: shared.NewRegistry(cl, c.MaxVariables),
		clock:    cl,
		logger:   c.Logger(),
	}
	engine.Registry.SetLogger(engine.logger.WithField("component", "shared"))

	return engine
}

// Init initialises the engine from the configuration. Every component that is
// already set is kept, which lets callers inject their own transport, store or
// identity provider.
func (b *Busnode) Init() error {
	if err := b.initStore(); err != nil {
		b.logger.WithError(err).Error("busnode.go:Init() initStore")
		return err
	}

	if err := b.initHardware(); err != nil {
		b.logger.WithError(err).Error("busnode.go:Init() initHardware")
		return err
	}

	if err := b.initTransport(); err != nil {
		b.logger.WithError(err).Error("busnode.go:Init() initTransport")
		return err
	}

	if err := b.initNode(); err != nil {
		b.logger.WithError(err).Error("busnode.go:Init() initNode")
		return err
	}

	if err := b.initService(); err != nil {
		b.logger.WithError(err).Error("busnode.go:Init() initService")
		return err
	}

	return nil
}

func (b *Busnode) initStore() error {
	if b.Store != nil {
		return nil
	}

	if !b.Config.Store {
		b.Store = store.NewInmemStore()
		b.logger.Debug("created new in-mem store")
		return nil
	}

	b.logger.WithField("path", b.Config.DatabaseDir).Debug("Attempting to load or create database")

	if err := os.MkdirAll(b.Config.DatabaseDir, 0700); err != nil {
		return err
	}

	s, err := store.NewBadgerStore(b.Config.DatabaseDir, b.logger.WithField("component", "store"))
	if err != nil {
		return err
	}
	b.Store = s

	return nil
}

func (b *Busnode) initHardware() error {
	if b.Hardware != nil {
		return nil
	}

	if b.Config.Unique != 0 {
		b.Hardware = hwid.Static(b.Config.Unique)
		b.logger.WithField("unique", b.Config.Unique).Debug("Using configured unique id")
		return nil
	}

	if err := os.MkdirAll(b.Config.DataDir, 0700); err != nil {
		return err
	}

	key, created, err := hwid.LoadOrCreate(b.Config.Keyfile())
	if err != nil {
		return err
	}

	if created {
		b.logger.WithField("public_key", key.PublicKeyHex()).Info("Created a new key")
	}

	b.Hardware = key

	return nil
}

func (b *Busnode) initTransport() error {
	if b.Transport != nil {
		return nil
	}

	if b.Config.HubAddr == "" {
		_, trans := net.NewInmemTransport("")
		b.Transport = trans
		b.logger.Warn("No hub address, running on a private in-memory bus")
		return nil
	}

	trans, err := net.NewTCPTransport(
		b.Config.HubAddr,
		b.Config.TCPTimeout,
		b.logger.WithField("component", "transport"),
	)
	if err != nil {
		return fmt.Errorf("connecting to hub %s: %v", b.Config.HubAddr, err)
	}

	b.Transport = trans

	return nil
}

func (b *Busnode) initNode() error {
	busConf := &bus.Config{
		System:        b.Config.System,
		HeartbeatFreq: b.Config.HeartbeatFreq,
		Clock:         b.clock,
		Logger:        b.logger,
	}

	conf := node.NewConfig(
		busConf,
		b.Config.TickInterval,
		b.Config.TestPackets,
		b.logger.Logger,
	)

	b.Node = node.NewNode(conf, b.Store, b.Hardware, b.Transport, b.Registry)

	if err := b.Node.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %s", err)
	}

	return nil
}

func (b *Busnode) initService() error {
	b.Metrics = telemetry.New(b.Node)
	b.Metrics.SetBuildInfo(version.Version)

	if !b.Config.NoService {
		b.Service = service.NewService(b.Config.ServiceAddr, b.Node, b.Metrics, b.logger)
	}
	return nil
}

// Run starts the service and the node. It blocks until the node is shut down,
// either by Shutdown or by SIGINT/SIGTERM.
func (b *Busnode) Run() {
	if b.Service != nil {
		go b.Service.Serve()
	}

	sigintCh := make(chan os.Signal, 1)
	signal.Notify(sigintCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigintCh)

	b.Node.RunAsync()

	select {
	case <-sigintCh:
		b.logger.Debug("Reacting to SIGINT")
		b.Shutdown()
	case <-b.Node.Done():
	}
}

// Shutdown stops the node, then closes the service and the store.
func (b *Busnode) Shutdown() {
	b.shutdownOnce.Do(b.shutdown)
}

func (b *Busnode) shutdown() {
	b.Node.Shutdown()

	if b.Service != nil {
		if err := b.Service.Close(); err != nil {
			b.logger.WithError(err).Error("Closing service")
		}
	}

	if err := b.Store.Close(); err != nil {
		b.logger.WithError(err).Error("Closing store")
	}
}
