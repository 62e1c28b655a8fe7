package cmd

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryhazerus/throttle"
)

var demoRounds int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run bursts of calls through 10/1s and 1/100ms limiters",
	Long: `demo fires bursts of 20 calls at two guarded functions, one allowed 10 runs
per second and one allowed a single run per 100ms, pausing one period
between bursts. It then repeats the 10/1s bursts from 20 goroutines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if demoRounds <= 0 {
			return fmt.Errorf("--rounds must be positive")
		}
		runDemo(cmd.OutOrStdout(), demoRounds, time.Sleep)
		return nil
	},
}

type demoTarget struct {
	label   string
	limiter *throttle.RateLimiter
}

// runDemo prints how many calls of each burst actually ran. sleep waits
// out the limiter's period between bursts; opts are applied to both
// limiters.
func runDemo(w io.Writer, rounds int, sleep func(time.Duration), opts ...throttle.Option) {
	newLimiter := func(name string, maxCalls int64, period time.Duration) *throttle.RateLimiter {
		all := []throttle.Option{throttle.WithLogger(logger), throttle.WithName(name)}
		return throttle.MustNew(maxCalls, period, append(all, opts...)...)
	}
	targets := []demoTarget{
		{"10 per second", newLimiter("ten-per-second", 10, time.Second)},
		{"1 per 100ms", newLimiter("one-per-100ms", 1, 100*time.Millisecond)},
	}

	const burst = 20
	for _, tg := range targets {
		run := throttle.Wrap1(tg.limiter, func(i int) int { return i })
		for r := 1; r <= rounds; r++ {
			ran := 0
			for i := 0; i < burst; i++ {
				if _, ok := run(i); ok {
					ran++
				}
			}
			fmt.Fprintf(w, "%-14s round %d: %d/%d calls ran\n", tg.label, r, ran, burst)
			sleep(tg.limiter.Period())
		}
	}

	tg := targets[0]
	for r := 1; r <= rounds; r++ {
		var (
			wg  sync.WaitGroup
			ran atomic.Int64
		)
		for i := 0; i < burst; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := throttle.Call(tg.limiter, func() struct{} { return struct{}{} }); ok {
					ran.Add(1)
				}
			}()
		}
		wg.Wait()
		fmt.Fprintf(w, "%-14s threaded round %d: %d/%d calls ran\n", tg.label, r, ran.Load(), burst)
		sleep(tg.limiter.Period())
	}
}

func init() {
	demoCmd.Flags().IntVar(&demoRounds, "rounds", 3, "bursts per limiter")
	rootCmd.AddCommand(demoCmd)
}
