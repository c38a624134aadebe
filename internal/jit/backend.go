package jit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/scoobiii/HVMx/internal/core"
	"github.com/scoobiii/HVMx/internal/sched"
)

// Backend executes a compiled program to quiescence and hands back the
// resulting net for readback.
type Backend interface {
	Name() string
	Execute(ctx context.Context, p *Program, bk *core.Book) (*core.Net, sched.Result, error)
}

// CPUBackend replays a program into a fresh arena and reduces it through the
// scheduler. It is the universal fallback: always available, no device
// required.
type CPUBackend struct {
	Workers  int
	MaxSteps uint64
	Logger   *zap.Logger
}

// NewCPUBackend returns a single-worker CPU backend.
func NewCPUBackend() *CPUBackend {
	return &CPUBackend{Workers: 1}
}

func (b *CPUBackend) Name() string { return sched.BackendCPU.String() }

// Execute replays p and drives the net to normal form.
func (b *CPUBackend) Execute(ctx context.Context, p *Program, bk *core.Book) (*core.Net, sched.Result, error) {
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	heap := p.Words * 2
	if heap < 1<<12 {
		heap = 1 << 12
	}
	n, err := core.NewNet(core.NetConfig{
		HeapWords:    heap,
		MaxHeapWords: 1 << 26,
		Workers:      workers,
	})
	if err != nil {
		return nil, sched.Result{}, fmt.Errorf("building execution net: %w", err)
	}
	if err := p.Replay(n); err != nil {
		return nil, sched.Result{}, err
	}
	r, err := sched.New(sched.Config{
		Workers:  workers,
		MaxSteps: b.MaxSteps,
		Logger:   b.Logger,
	})
	if err != nil {
		return nil, sched.Result{}, err
	}
	res, err := r.Reduce(ctx, n, bk)
	return n, res, err
}

// Detect returns the best available backend. Device backends register out of
// tree; without one the CPU path is the answer.
func Detect() Backend {
	return NewCPUBackend()
}
