// Package portpool implements the "parked port" scheme for the native
// provider (spec.md §4.A, §9): reserve an ephemeral bind, release it just
// before the consuming process binds. This is inherently racy on a busy
// host and is documented as best-effort (spec.md §9 design notes).
package portpool

import (
	"fmt"
	"net"
	"sync"
)

// Pool tracks parked ports so concurrent reservations within one process
// don't hand out the same port twice, even though the underlying OS bind
// is released before hand-off.
type Pool struct {
	mu     sync.Mutex
	parked map[int]net.Listener
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{parked: make(map[int]net.Listener)}
}

// Reserve binds an ephemeral TCP port on the loopback interface and parks
// it: the listener stays open (preventing the OS from handing the same
// port to a concurrent Reserve call) until Release is called.
func (p *Pool) Reserve() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("reserve ephemeral port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	p.parked[port] = l
	return port, nil
}

// ReserveN reserves n distinct ports in one call.
func (p *Pool) ReserveN(n int) ([]int, error) {
	ports := make([]int, 0, n)
	for i := 0; i < n; i++ {
		port, err := p.Reserve()
		if err != nil {
			// best-effort unwind of what we already parked
			for _, pr := range ports {
				p.Release(pr)
			}
			return nil, err
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// Release closes the parked listener, freeing the port for the consuming
// process to bind. Safe to call more than once or on an unknown port.
func (p *Pool) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.parked[port]; ok {
		l.Close()
		delete(p.parked, port)
	}
}

// ReleaseAll releases every still-parked port, used on teardown/failure unwind.
func (p *Pool) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for port, l := range p.parked {
		l.Close()
		delete(p.parked, port)
	}
}
