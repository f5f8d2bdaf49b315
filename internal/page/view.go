package page

import (
	"sync"

	"stopdesk/internal/domain"
)

type State string

const (
	StateLoading  State = "loading"
	StateNotFound State = "not_found"
	StateFound    State = "found"
)

// Token identifies one lookup started on a View.
type Token uint64

// View holds the render state of a single page request. Lookup results are
// applied only when their token is current and the view is still live.
type View struct {
	mu        sync.Mutex
	gen       uint64
	delivered bool
	disposed  bool
	state     State
	stop      domain.Stop
	settled   chan struct{}
}

func NewView() *View {
	return &View{
		state:   StateLoading,
		settled: make(chan struct{}),
	}
}

// Begin starts a new lookup generation and puts the view back into loading.
// Tokens from earlier generations stop being accepted.
func (v *View) Begin() Token {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.gen++
	v.delivered = false
	v.state = StateLoading
	v.stop = domain.Stop{}
	select {
	case <-v.settled:
		v.settled = make(chan struct{})
	default:
	}
	return Token(v.gen)
}

// Deliver applies a lookup result. Any error is treated as not found. It
// returns false and leaves the view untouched when the token is stale, was
// already delivered, or the view has been disposed.
func (v *View) Deliver(t Token, stop domain.Stop, err error) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.disposed || v.delivered || uint64(t) != v.gen {
		return false
	}
	v.delivered = true
	if err != nil {
		v.state = StateNotFound
		v.stop = domain.Stop{}
	} else {
		v.state = StateFound
		v.stop = stop
	}
	close(v.settled)
	return true
}

// Settled is closed once the current generation has received its result.
func (v *View) Settled() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settled
}

// Dispose freezes the view. Later deliveries are dropped.
func (v *View) Dispose() {
	v.mu.Lock()
	v.disposed = true
	v.mu.Unlock()
}

func (v *View) Snapshot() (State, domain.Stop) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state, v.stop
}
