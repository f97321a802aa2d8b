package busnode

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicnetworks/uartbus/src/common"
	"github.com/mosaicnetworks/uartbus/src/config"
	"github.com/mosaicnetworks/uartbus/src/net"
	"github.com/mosaicnetworks/uartbus/src/shared"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, dir string, unique uint32, hub string) *config.Config {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.SetDataDir(dir)
	conf.Unique = unique
	conf.HubAddr = hub
	conf.Store = true
	conf.NoService = true
	conf.HeartbeatFreq = 100
	conf.TickInterval = 2 * time.Millisecond
	return conf
}

func startEngine(t *testing.T, conf *config.Config) *Busnode {
	engine := NewBusnode(conf)
	require.NoError(t, engine.Init())
	go engine.Run()
	return engine
}

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSlotSurvivesRestart(t *testing.T) {
	hub, err := net.NewHub("127.0.0.1:0", time.Second, common.NewTestEntry(t, logrus.DebugLevel))
	require.NoError(t, err)
	go hub.Serve()
	defer hub.Close()

	dirA := t.TempDir()
	dirB := t.TempDir()

	a := startEngine(t, newTestConfig(t, dirA, 100, hub.Addr()))
	b := startEngine(t, newTestConfig(t, dirB, 200, hub.Addr()))

	waitFor(t, "slot conflict resolution", func() bool {
		return a.Node.Slot() != 0 || b.Node.Slot() != 0
	})

	assert.Equal(t, uint8(1), a.Node.Slot())
	assert.Equal(t, uint8(0), b.Node.Slot())

	a.Shutdown()
	b.Shutdown()

	// the slot is read back from the badger database
	restarted := startEngine(t, newTestConfig(t, dirA, 100, hub.Addr()))
	defer restarted.Shutdown()

	assert.Equal(t, uint8(1), restarted.Node.Slot())
	assert.Equal(t, filepath.Join(dirA, config.DefaultBadgerFile), restarted.Config.DatabaseDir)
}

func TestKeyfileIdentity(t *testing.T) {
	dir := t.TempDir()

	conf := newTestConfig(t, dir, 0, "")
	conf.Store = false

	first := NewBusnode(conf)
	require.NoError(t, first.Init())
	unique := first.Node.BusStats().Unique
	first.Shutdown()

	second := NewBusnode(newTestConfig(t, dir, 0, ""))
	second.Config.Store = false
	require.NoError(t, second.Init())
	defer second.Shutdown()

	assert.Equal(t, unique, second.Node.BusStats().Unique, "the keyfile should be reused")
}

func TestSharedVariableOverHub(t *testing.T) {
	hub, err := net.NewHub("127.0.0.1:0", time.Second, common.NewTestEntry(t, logrus.DebugLevel))
	require.NoError(t, err)
	go hub.Serve()
	defer hub.Close()

	sender := startEngine(t, newTestConfig(t, t.TempDir(), 1, hub.Addr()))
	defer sender.Shutdown()

	receiverConf := newTestConfig(t, t.TempDir(), 2, hub.Addr())
	receiverConf.Store = false
	receiver := NewBusnode(receiverConf)

	// heartbeats are telemetry 'h' packets carrying the unique id in entry 'u'
	peerUnique := shared.NewVariable[uint32]()
	receiver.Registry.MustAdd(peerUnique, 'h', 'u', shared.Named("peer_unique"), shared.Timeout(time.Second))

	require.NoError(t, receiver.Init())
	go receiver.Run()
	defer receiver.Shutdown()

	waitFor(t, "heartbeat from sender", func() bool {
		valid := false
		receiver.Node.WithLock(func() { valid = peerUnique.IsValid() && peerUnique.Value() == 1 })
		return valid
	})
}

func TestShutdownTwice(t *testing.T) {
	conf := newTestConfig(t, t.TempDir(), 5, "")
	engine := startEngine(t, conf)

	engine.Shutdown()
	engine.Shutdown()
}
