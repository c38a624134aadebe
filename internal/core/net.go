package core

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// NetConfig sizes a net. The arena is measured in 64-bit words (one word per
// auxiliary slot or variable).
type NetConfig struct {
	// HeapWords is the initial arena capacity.
	HeapWords uint64
	// MaxHeapWords bounds growth. Growth only happens on single-worker
	// nets; a multi-worker arena is fixed at HeapWords because the slice
	// backing it cannot be reallocated under concurrent atomic access.
	MaxHeapWords uint64
	// Workers is the number of Mem views the net hands out.
	Workers int
}

// DefaultNetConfig returns a single-worker net with a 64K-word arena growable
// to 64M words.
func DefaultNetConfig() NetConfig {
	return NetConfig{
		HeapWords:    1 << 16,
		MaxHeapWords: 1 << 26,
		Workers:      1,
	}
}

// Redex is an ordered pair of ports meeting at their principal connections.
type Redex struct {
	A, B Port
}

// Net is the mutable graph of one running instance: the node arena plus the
// pending-redex bag. The bag is safe for concurrent push/pop. Arena slots are
// accessed atomically; a slot is written only between its allocation and the
// publication of a port referencing it, then read-only until the one rewrite
// that consumes it, so rewrites with disjoint footprints never race.
//
// Addressing a slot that was never allocated is a programming-contract
// violation and panics via the runtime bounds check; it is not a recoverable
// condition.
type Net struct {
	heap []uint64
	next atomic.Uint64
	max  uint64

	mu      sync.Mutex
	redexes []Redex

	mems []Mem
}

// NewNet builds a net per cfg. Slot 0 is reserved as the root variable.
func NewNet(cfg NetConfig) (*Net, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be >= 1, got %d", ErrBadConfig, cfg.Workers)
	}
	if cfg.HeapWords < 2 {
		return nil, fmt.Errorf("%w: heap of %d words is too small", ErrBadConfig, cfg.HeapWords)
	}
	max := cfg.MaxHeapWords
	if cfg.Workers > 1 || max < cfg.HeapWords {
		max = cfg.HeapWords
	}
	n := &Net{
		heap: make([]uint64, cfg.HeapWords),
		max:  max,
	}
	n.heap[0] = uint64(Hole)
	n.next.Store(1)
	n.mems = make([]Mem, cfg.Workers)
	for i := range n.mems {
		n.mems[i] = Mem{net: n, id: i}
	}
	return n, nil
}

// Root returns the variable port for the reserved root slot. Drivers link the
// program's result wire here and read it back after reduction.
func (n *Net) Root() Port { return Var(0) }

// Result reads the root slot: the normal-form port once reduction has
// resolved it, Hole otherwise.
func (n *Net) Result() Port { return n.Port(0) }

// Port reads the port stored at addr.
func (n *Net) Port(addr uint64) Port {
	return Port(atomic.LoadUint64(&n.heap[addr]))
}

// SetPort writes the port at addr. External layers use this to translate a
// net to a device-submittable form and to write device results back.
func (n *Net) SetPort(addr uint64, p Port) {
	atomic.StoreUint64(&n.heap[addr], uint64(p))
}

func (n *Net) swapPort(addr uint64, p Port) Port {
	return Port(atomic.SwapUint64(&n.heap[addr], uint64(p)))
}

// Used returns the high-water mark of allocated arena words.
func (n *Net) Used() uint64 { return n.next.Load() }

// Cap returns the current arena capacity in words.
func (n *Net) Cap() uint64 { return uint64(len(n.heap)) }

// Workers returns the number of Mem views the net was built for.
func (n *Net) Workers() int { return len(n.mems) }

// Reserve bumps the allocation frontier by words without going through a Mem
// free list. Used when loading a prebuilt arena image.
func (n *Net) Reserve(words uint64) (uint64, error) {
	return n.bump(words)
}

func (n *Net) bump(words uint64) (uint64, error) {
	for {
		cur := n.next.Load()
		if cur+words > uint64(len(n.heap)) {
			if !n.grow(cur + words) {
				return 0, fmt.Errorf("%w: need %d words, capacity %d",
					ErrArenaFull, cur+words, n.max)
			}
			continue
		}
		if n.next.CompareAndSwap(cur, cur+words) {
			return cur, nil
		}
	}
}

// grow doubles the arena up to max. Only legal on single-worker nets, where
// no other goroutine can be touching the slice.
func (n *Net) grow(need uint64) bool {
	if len(n.mems) > 1 || need > n.max {
		return false
	}
	size := uint64(len(n.heap))
	for size < need {
		size *= 2
	}
	if size > n.max {
		size = n.max
	}
	heap := make([]uint64, size)
	copy(heap, n.heap)
	n.heap = heap
	return true
}

// PushRedex appends a pending redex. Safe for concurrent use.
func (n *Net) PushRedex(r Redex) {
	n.mu.Lock()
	n.redexes = append(n.redexes, r)
	n.mu.Unlock()
}

// PopRedex removes and returns the most recently pushed redex. Safe for
// concurrent use.
func (n *Net) PopRedex() (Redex, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.redexes) == 0 {
		return Redex{}, false
	}
	r := n.redexes[len(n.redexes)-1]
	n.redexes = n.redexes[:len(n.redexes)-1]
	return r, true
}

// Pending returns the number of pending redexes.
func (n *Net) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.redexes)
}

// PendingRedexes returns a snapshot copy of the pending-redex bag.
func (n *Net) PendingRedexes() []Redex {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Redex, len(n.redexes))
	copy(out, n.redexes)
	return out
}

// Mem returns worker i's view of the net. Each Mem is exclusive to one
// goroutine; Mems of distinct workers may be used concurrently.
func (n *Net) Mem(i int) *Mem { return &n.mems[i] }

// Rewrites sums the rewrite counters of all workers.
func (n *Net) Rewrites() uint64 {
	var total uint64
	for i := range n.mems {
		total += atomic.LoadUint64(&n.mems[i].Count)
	}
	return total
}

// maxBucket is the largest block size kept on a Mem free list. Larger blocks
// (definition instantiations) are bump-allocated only.
const maxBucket = 16

// Mem is one worker's allocation view of a shared net: size-bucketed free
// lists over the common arena plus the worker's rewrite counter. A rewrite
// frees the nodes it consumed into the popping worker's own lists, so reuse
// never crosses goroutines without a happens-before edge.
type Mem struct {
	net  *Net
	id   int
	free [maxBucket + 1][]uint64

	// Count is the number of rewrites performed through this view. Read
	// it with atomics if the worker may still be running.
	Count uint64
}

// Net returns the shared net this view belongs to.
func (m *Mem) Net() *Net { return m.net }

// Alloc returns the base address of size consecutive slots. The caller owns
// the block until a port referencing it is published.
func (m *Mem) Alloc(size int) (uint64, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: allocation of %d words", ErrBadConfig, size)
	}
	if size <= maxBucket {
		if l := len(m.free[size]); l > 0 {
			addr := m.free[size][l-1]
			m.free[size] = m.free[size][:l-1]
			return addr, nil
		}
	}
	return m.net.bump(uint64(size))
}

// Free returns a fully disconnected block to the reuse pool. The caller must
// guarantee no live port still references it.
func (m *Mem) Free(addr uint64, size int) {
	for i := uint64(0); i < uint64(size); i++ {
		m.net.SetPort(addr+i, Hole)
	}
	if size >= 1 && size <= maxBucket {
		m.free[size] = append(m.free[size], addr)
	}
}

// FreshVar allocates an unresolved variable slot and returns its port. The
// same port is stored at both endpoints of the wire it stands for.
func (m *Mem) FreshVar() (Port, error) {
	addr, err := m.Alloc(1)
	if err != nil {
		return 0, err
	}
	m.net.SetPort(addr, Hole)
	return Var(addr), nil
}

// Link connects two ports. Two non-variable ports become a pending redex.
// A variable resolves by swapping the other port into its slot: the first
// side to arrive parks its port there; the second swaps it out, frees the
// slot, and continues linking with whatever was parked. The single swap is
// what makes substitution atomic under concurrent rewriting.
func (m *Mem) Link(a, b Port) {
	for {
		if a.Tag() != TagVar {
			if b.Tag() != TagVar {
				m.net.PushRedex(Redex{a, b})
				return
			}
			a, b = b, a
		}
		got := m.net.swapPort(a.Addr(), b)
		if got == Hole {
			return
		}
		m.Free(a.Addr(), 1)
		a = got
	}
}
