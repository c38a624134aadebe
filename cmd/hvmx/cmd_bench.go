package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoobiii/HVMx/internal/core"
	"github.com/scoobiii/HVMx/internal/jit"
	"github.com/scoobiii/HVMx/internal/sched"
)

var benchIters int

// benchCmd measures reduction throughput over the book's main definition.
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark reduction throughput",
	Long: `Compiles the book's main definition to a program, executes it repeatedly
on the detected backend and reports rewrites per second.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchIters, "iterations", 100, "number of executions")
}

func runBench(cmd *cobra.Command, args []string) error {
	bk, err := loadBook()
	if err != nil {
		return err
	}
	ref, ok := bk.Ref("main")
	if !ok {
		return fmt.Errorf("%w: bench needs a %q definition", core.ErrUndefinedRef, "main")
	}

	// One template net, compiled once and replayed per iteration.
	n, err := core.NewNet(cfg.NetConfig())
	if err != nil {
		return err
	}
	if err := apply(n, bk, ref, nil); err != nil {
		return err
	}
	prog := jit.Compile(n)

	detected := jit.Detect()
	if cb, ok := detected.(*jit.CPUBackend); ok {
		cb.Workers = cfg.Runtime.Workers
		cb.Logger = zap.NewNop()
	}
	// Device backends register out of tree; today the map only ever holds
	// the CPU entry and everything else falls back to it.
	backends := map[sched.Backend]jit.Backend{sched.BackendCPU: detected}
	var ad sched.Adaptive
	for b := range backends {
		ad.Register(b)
	}
	logger.Info("bench started",
		zap.String("backend", detected.Name()), zap.Int("iterations", benchIters))

	tasks := make([]sched.Task, benchIters)
	for i := range tasks {
		tasks[i] = sched.Task{ID: uint64(i), Size: prog.Words}
	}
	strategy := sched.AllCPU
	if _, ok := backends[sched.BackendGPU]; ok {
		strategy = sched.RoundRobin
	}
	part := sched.Partitioner{Strategy: strategy}.Split(tasks)

	var total uint64
	start := time.Now()
	run := func(queue []sched.Task) error {
		for _, task := range queue {
			b := ad.Choose(task)
			exec, ok := backends[b]
			if !ok {
				b, exec = sched.BackendCPU, backends[sched.BackendCPU]
			}
			out, res, err := exec.Execute(cmd.Context(), prog, bk)
			if err != nil {
				return err
			}
			if !res.Quiescent {
				return fmt.Errorf("iteration %d stopped with %d redexes pending", task.ID, out.Pending())
			}
			ad.Observe(b, res.Duration, res.Rewrites)
			total += res.Rewrites
		}
		return nil
	}
	if err := run(part.CPU); err != nil {
		return err
	}
	if err := run(part.GPU); err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := ad.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "backend: %s\n", detected.Name())
	fmt.Fprintf(cmd.OutOrStdout(), "iterations: %d  rewrites: %d\n", benchIters, total)
	fmt.Fprintf(cmd.OutOrStdout(), "total: %s  avg: %s  rps: %.0f\n",
		elapsed, st.AvgTime(), float64(total)/elapsed.Seconds())
	return nil
}
