package service

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/mosaicnetworks/uartbus/src/node"
	"github.com/mosaicnetworks/uartbus/src/packet"
	"github.com/mosaicnetworks/uartbus/src/peers"
	"github.com/mosaicnetworks/uartbus/src/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

// Node is the part of node.Node the service reads from.
type Node interface {
	telemetry.Source
	GetStats() map[string]string
	Peers() []peers.Stats
	Alive(slot uint8) bool
}

var _ Node = (*node.Node)(nil)

// Service exposes the state of a node over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	node        Node
	metrics     *telemetry.Metrics
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n Node, metrics *telemetry.Metrics, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		metrics:     metrics,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.handle("stats", "/stats", s.GetStats)
	s.handle("peers", "/peers", s.GetPeers)
	s.handle("alive", "/alive", s.GetAlive)
	s.handle("variables", "/variables", s.GetVariables)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}
}

func (s *Service) handle(op, pattern string, fn func(http.ResponseWriter, *http.Request)) {
	var h http.Handler = s.makeHandler(fn)
	if s.metrics != nil {
		h = s.metrics.Instrument(op, h)
	}
	s.mux.Handle(pattern, h)
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the handler serving every endpoint.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	s.Lock()
	s.server = &http.Server{Addr: s.bindAddress, Handler: s.mux}
	server := s.server
	s.Unlock()

	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Close stops the server started by Serve.
func (s *Service) Close() error {
	s.Lock()
	defer s.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	s.encode(w, s.node.GetStats())
}

// GetPeers returns the loss statistics of every slot heard from.
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	s.encode(w, s.node.Peers())
}

// GetAlive returns the slots heard from recently. With a slot query parameter,
// it answers for that slot only.
func (s *Service) GetAlive(w http.ResponseWriter, r *http.Request) {
	if param := r.URL.Query().Get("slot"); param != "" {
		slot, err := strconv.Atoi(param)
		if err != nil || slot < 0 || slot >= packet.NodeMax {
			s.logger.WithField("slot", param).Debug("Bad slot parameter")
			http.Error(w, "slot must be between 0 and 31", http.StatusBadRequest)
			return
		}
		s.encode(w, map[string]bool{"alive": s.node.Alive(uint8(slot))})
		return
	}

	alive := []int{}
	for slot := 0; slot < packet.NodeMax; slot++ {
		if s.node.Alive(uint8(slot)) {
			alive = append(alive, slot)
		}
	}
	s.encode(w, alive)
}

// GetVariables returns every registered shared variable.
func (s *Service) GetVariables(w http.ResponseWriter, r *http.Request) {
	s.encode(w, s.node.Variables())
}

func (s *Service) encode(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	jh := new(codec.JsonHandle)
	enc := codec.NewEncoder(w, jh)

	if err := enc.Encode(v); err != nil {
		s.logger.WithError(err).Error("Encoding response")
	}
}
