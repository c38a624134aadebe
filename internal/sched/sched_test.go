package sched

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/scoobiii/HVMx/internal/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// incrNet builds a net with count independent increment redexes and returns
// the result wires. Each redex adds one to its numeral.
func incrNet(t *testing.T, workers, count int) (*core.Net, []core.Port) {
	t.Helper()
	n, err := core.NewNet(core.NetConfig{
		HeapWords:    1 << 14,
		MaxHeapWords: 1 << 14,
		Workers:      workers,
	})
	require.NoError(t, err)

	m := n.Mem(0)
	outs := make([]core.Port, count)
	for i := 0; i < count; i++ {
		v, err := m.FreshVar()
		require.NoError(t, err)
		o, err := m.Alloc(2)
		require.NoError(t, err)
		n.SetPort(o, core.Num(core.Numb(i)))
		n.SetPort(o+1, v)
		n.PushRedex(core.Redex{A: core.Num(1), B: core.Opr(core.OpAdd, o)})
		outs[i] = v
	}
	return n, outs
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Workers: 0})
	assert.ErrorIs(t, err, core.ErrBadConfig)

	r, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestReduce_Sequential(t *testing.T) {
	n, outs := incrNet(t, 1, 16)
	r, err := New(Config{Workers: 1, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	res, err := r.Reduce(context.Background(), n, nil)
	require.NoError(t, err)
	assert.True(t, res.Quiescent)
	assert.EqualValues(t, 16, res.Rewrites)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", res.RunID.String())

	for i, v := range outs {
		assert.Equal(t, core.Num(core.Numb(i+1)), n.Port(v.Addr()))
	}
}

func TestReduce_SequentialWithBook(t *testing.T) {
	n, err := core.NewNet(core.DefaultNetConfig())
	require.NoError(t, err)
	bk := core.NewBook()
	id := bk.Insert("id", core.Def{
		Name:  "id",
		Arity: 1,
		Root:  core.Lam(0),
		Slots: []core.Port{core.Var(2), core.Var(2), core.Hole},
	})

	m := n.Mem(0)
	app, err := m.Alloc(2)
	require.NoError(t, err)
	n.SetPort(app, core.Num(42))
	n.SetPort(app+1, n.Root())
	n.PushRedex(core.Redex{A: core.Ref(id), B: core.App(app)})

	r, err := New(DefaultConfig())
	require.NoError(t, err)
	res, err := r.Reduce(context.Background(), n, bk)
	require.NoError(t, err)
	assert.True(t, res.Quiescent)
	assert.Equal(t, core.Num(42), n.Result())
}

func TestReduce_Parallel(t *testing.T) {
	n, outs := incrNet(t, 4, 256)
	r, err := New(Config{Workers: 4, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	res, err := r.Reduce(context.Background(), n, nil)
	require.NoError(t, err)
	assert.True(t, res.Quiescent)
	assert.EqualValues(t, 256, res.Rewrites)
	assert.Equal(t, 0, n.Pending())

	for i, v := range outs {
		assert.Equal(t, core.Num(core.Numb(i+1)), n.Port(v.Addr()))
	}
}

func TestReduce_WorkersExceedViews(t *testing.T) {
	n, _ := incrNet(t, 1, 1)
	r, err := New(Config{Workers: 4})
	require.NoError(t, err)
	_, err = r.Reduce(context.Background(), n, nil)
	assert.ErrorIs(t, err, core.ErrBadConfig)
}

func TestReduce_StepBudget(t *testing.T) {
	n, _ := incrNet(t, 1, 8)
	r, err := New(Config{Workers: 1, MaxSteps: 3})
	require.NoError(t, err)

	res, err := r.Reduce(context.Background(), n, nil)
	require.NoError(t, err)
	assert.False(t, res.Quiescent, "budgeted run stops with work left")
	assert.EqualValues(t, 3, res.Rewrites)
	assert.Equal(t, 5, n.Pending())

	// The net is resumable: an unbounded run finishes the job.
	r2, err := New(DefaultConfig())
	require.NoError(t, err)
	res, err = r2.Reduce(context.Background(), n, nil)
	require.NoError(t, err)
	assert.True(t, res.Quiescent)
}

func TestReduce_ParallelStepBudget(t *testing.T) {
	n, _ := incrNet(t, 2, 64)
	r, err := New(Config{Workers: 2, MaxSteps: 10})
	require.NoError(t, err)

	res, err := r.Reduce(context.Background(), n, nil)
	require.NoError(t, err)
	assert.False(t, res.Quiescent)
	assert.EqualValues(t, 10, res.Rewrites)
}

func TestReduce_ContextCancel(t *testing.T) {
	n, _ := incrNet(t, 1, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := New(DefaultConfig())
	require.NoError(t, err)
	_, err = r.Reduce(ctx, n, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 8, n.Pending(), "cancellation halts between rewrites")
}

func TestReduce_DefectPropagates(t *testing.T) {
	n, err := core.NewNet(core.DefaultNetConfig())
	require.NoError(t, err)
	n.PushRedex(core.Redex{A: core.Lam(1), B: core.Lam(2)})

	r, err := New(DefaultConfig())
	require.NoError(t, err)
	res, err := r.Reduce(context.Background(), n, nil)
	assert.ErrorIs(t, err, core.ErrNoRule)
	assert.False(t, res.Quiescent)
}

func TestReduce_ParallelDefectStopsPool(t *testing.T) {
	n, _ := incrNet(t, 2, 4)
	n.PushRedex(core.Redex{A: core.Lam(1), B: core.Lam(2)})

	r, err := New(Config{Workers: 2})
	require.NoError(t, err)
	_, err = r.Reduce(context.Background(), n, nil)
	assert.ErrorIs(t, err, core.ErrNoRule)
}
