package node

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a node: Running or Shutdown.
type State uint32

const (
	// Initialised is the state before Run is called.
	Initialised State = iota
	// Running is the state of the main loop.
	Running
	// Shutdown is shutdown
	Shutdown
)

// String ...
func (s State) String() string {
	switch s {
	case Initialised:
		return "Initialised"
	case Running:
		return "Running"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

type state struct {
	state State
	wg    sync.WaitGroup
}

func (s *state) getState() State {
	stateAddr := (*uint32)(&s.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (s *state) setState(st State) {
	stateAddr := (*uint32)(&s.state)
	atomic.StoreUint32(stateAddr, uint32(st))
}

// Start a goroutine and add it to waitgroup
func (s *state) goFunc(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

func (s *state) waitRoutines() {
	s.wg.Wait()
}
