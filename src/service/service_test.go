package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mosaicnetworks/uartbus/src/bus"
	"github.com/mosaicnetworks/uartbus/src/common"
	"github.com/mosaicnetworks/uartbus/src/peers"
	"github.com/mosaicnetworks/uartbus/src/shared"
	"github.com/mosaicnetworks/uartbus/src/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ugorji/go/codec"
)

type fakeNode struct{}

func (fakeNode) BusStats() bus.Stats {
	return bus.Stats{Slot: 2, Unique: 77}
}

func (fakeNode) Variables() []shared.Info {
	return []shared.Info{{Name: "speed", PacketID: "s", EntryType: "S", Raw: 12, Valid: true}}
}

func (fakeNode) GetStats() map[string]string {
	return map[string]string{"slot": "2", "state": "Running"}
}

func (fakeNode) Peers() []peers.Stats {
	return []peers.Stats{{Slot: 5, Received: 3, Lost: 1, LossRate: 0.25, Age: time.Second}}
}

func (fakeNode) Alive(slot uint8) bool {
	return slot == 5 || slot == 9
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	jh := new(codec.JsonHandle)
	dec := codec.NewDecoderBytes(data, jh)
	require.NoError(t, dec.Decode(v))
}

func newTestService(t *testing.T) *Service {
	var n fakeNode
	return NewService("127.0.0.1:0", n, telemetry.New(n), common.NewTestEntry(t, logrus.DebugLevel))
}

func get(t *testing.T, s *Service, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", url, nil))
	return rec
}

func TestGetStats(t *testing.T) {
	rec := get(t, newTestService(t), "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var stats map[string]string
	decodeJSON(t, rec.Body.Bytes(), &stats)
	assert.Equal(t, "Running", stats["state"])
}

func TestGetPeers(t *testing.T) {
	rec := get(t, newTestService(t), "/peers")
	require.Equal(t, http.StatusOK, rec.Code)

	var res []peers.Stats
	decodeJSON(t, rec.Body.Bytes(), &res)
	require.Len(t, res, 1)
	assert.Equal(t, 5, res[0].Slot)
	assert.Equal(t, uint32(1), res[0].Lost)
}

func TestGetVariables(t *testing.T) {
	rec := get(t, newTestService(t), "/variables")
	require.Equal(t, http.StatusOK, rec.Code)

	var res []shared.Info
	decodeJSON(t, rec.Body.Bytes(), &res)
	require.Len(t, res, 1)
	assert.Equal(t, "speed", res[0].Name)
	assert.Equal(t, uint32(12), res[0].Raw)
	assert.True(t, res[0].Valid)
}

func TestGetAlive(t *testing.T) {
	s := newTestService(t)

	var all []int
	decodeJSON(t, get(t, s, "/alive").Body.Bytes(), &all)
	assert.Equal(t, []int{5, 9}, all)

	var one map[string]bool
	decodeJSON(t, get(t, s, "/alive?slot=9").Body.Bytes(), &one)
	assert.True(t, one["alive"])

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/alive?slot=32").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/alive?slot=x").Code)
}

func TestMetrics(t *testing.T) {
	s := newTestService(t)
	get(t, s, "/stats")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `busnode_slot{unique="77"} 2`)
	assert.Contains(t, rec.Body.String(), `busnode_requests_total{op="stats",status="2xx"} 1`)
}
