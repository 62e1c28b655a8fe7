package cmd

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ryhazerus/throttle"
	"github.com/ryhazerus/throttle/store"
)

var (
	checkCalls       int
	checkConcurrency int
	checkSpacing     time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check <limiter>",
	Short: "Fire calls at a configured limiter and count admissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkCalls <= 0 || checkConcurrency <= 0 {
			return fmt.Errorf("--calls and --concurrency must be positive")
		}

		cfg, err := throttle.LoadConfig(viper.GetString("config"))
		if err != nil {
			return err
		}

		opts := []throttle.Option{throttle.WithLogger(logger)}
		if path := viper.GetString("ledger"); path != "" {
			ledger, err := store.NewSQLiteStore(path)
			if err != nil {
				return err
			}
			opts = append(opts, throttle.WithLedger(ledger, time.Minute))
		}

		registry, err := throttle.NewRegistryFromConfig(cfg, opts...)
		if err != nil {
			return err
		}
		defer func() {
			if err := registry.Close(); err != nil {
				logger.Warn("closing registry", zap.Error(err))
			}
		}()

		l, err := registry.Limiter(args[0])
		if err != nil {
			return err
		}

		admitted, rejected := fire(cmd.Context(), l, checkCalls, checkConcurrency, checkSpacing)

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Limiter", "Policy", "Limit", "Admitted", "Rejected"})
		t.AppendRow(table.Row{
			l.Name(),
			l.Policy().String(),
			fmt.Sprintf("%d / %s", l.MaxCalls(), l.Period()),
			admitted,
			rejected,
		})
		t.Render()
		return nil
	},
}

// fire issues calls spread over workers, each pausing spacing between its
// calls, and counts the outcomes.
func fire(ctx context.Context, l *throttle.RateLimiter, calls, workers int, spacing time.Duration) (admitted, rejected int64) {
	var (
		wg        sync.WaitGroup
		remaining atomic.Int64
		ok, no    atomic.Int64
	)
	remaining.Store(int64(calls))

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for remaining.Add(-1) >= 0 {
				if ctx != nil && ctx.Err() != nil {
					return
				}
				if l.TryAcquire() {
					ok.Add(1)
				} else {
					no.Add(1)
				}
				if spacing > 0 {
					time.Sleep(spacing)
				}
			}
		}()
	}
	wg.Wait()
	return ok.Load(), no.Load()
}

func init() {
	checkCmd.Flags().IntVarP(&checkCalls, "calls", "n", 100, "number of calls to make")
	checkCmd.Flags().IntVarP(&checkConcurrency, "concurrency", "c", 1, "number of concurrent callers")
	checkCmd.Flags().DurationVar(&checkSpacing, "spacing", 0, "pause between calls of one caller")
	rootCmd.AddCommand(checkCmd)
}
