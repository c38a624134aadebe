package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoobiii/HVMx/internal/bookio"
	"github.com/scoobiii/HVMx/internal/core"
	"github.com/scoobiii/HVMx/internal/sched"
)

// runCmd reduces one definition applied to numeral arguments.
var runCmd = &cobra.Command{
	Use:   "run [def] [args...]",
	Short: "Reduce a definition to normal form",
	Long: `Instantiates a definition, applies it to the given numeral arguments
and rewrites until quiescent.

Example:
  hvmx run add 10 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDef,
}

var watchBook bool

func init() {
	runCmd.Flags().BoolVar(&watchBook, "watch", false, "hot-reload the book file while running")
}

func runDef(cmd *cobra.Command, args []string) error {
	bk, err := loadBook()
	if err != nil {
		return err
	}
	if watchBook || cfg.Book.Watch {
		if cfg.Book.Path == "" {
			return fmt.Errorf("--watch needs a book file")
		}
		w, err := bookio.NewWatcher(cfg.Book.Path, bk, logger)
		if err != nil {
			return err
		}
		if err := w.Start(cmd.Context()); err != nil {
			return err
		}
		defer w.Stop()
	}

	ref, ok := bk.Ref(args[0])
	if !ok {
		return fmt.Errorf("%w: %q (book has %v)", core.ErrUndefinedRef, args[0], bk.Names())
	}
	nums := make([]core.Numb, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return fmt.Errorf("argument %q is not a numeral: %w", a, err)
		}
		nums = append(nums, core.NewNumb(v))
	}

	n, err := core.NewNet(cfg.NetConfig())
	if err != nil {
		return err
	}
	if err := apply(n, bk, ref, nums); err != nil {
		return err
	}

	r, err := sched.New(sched.Config{
		Workers:  cfg.Runtime.Workers,
		MaxSteps: cfg.Runtime.MaxSteps,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	res, err := r.Reduce(cmd.Context(), n, bk)
	if err != nil {
		return err
	}
	if !res.Quiescent {
		logger.Warn("stopped before normal form",
			zap.Uint64("rewrites", res.Rewrites), zap.Int("pending", n.Pending()))
	}

	fmt.Fprintln(cmd.OutOrStdout(), core.Readback(n, bk, n.Result()))
	fmt.Fprintf(cmd.OutOrStdout(), "rewrites: %d  time: %s  rps: %.0f\n",
		res.Rewrites, res.Duration, float64(res.Rewrites)/res.Duration.Seconds())
	return nil
}

// apply builds the application spine (f a1 a2 ... ak) against the root and
// queues the initial redex. An unapplied definition is expanded directly;
// linking its reference to the root wire would only substitute it.
func apply(n *core.Net, bk *core.Book, ref core.Port, args []core.Numb) error {
	m := n.Mem(0)
	if len(args) == 0 {
		root, err := bk.Expand(m, ref.DefID())
		if err != nil {
			return err
		}
		m.Link(root, n.Root())
		return nil
	}
	ret := n.Root()
	// Built innermost-out: each application's result wire feeds the next.
	addrs := make([]uint64, len(args))
	for i := range args {
		a, err := m.Alloc(2)
		if err != nil {
			return err
		}
		addrs[i] = a
	}
	for i, arg := range args {
		n.SetPort(addrs[i], core.Num(arg))
		if i == len(args)-1 {
			n.SetPort(addrs[i]+1, ret)
		} else {
			n.SetPort(addrs[i]+1, core.App(addrs[i+1]))
		}
	}
	m.Link(ref, core.App(addrs[0]))
	return nil
}
