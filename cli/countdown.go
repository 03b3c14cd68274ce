package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vclock/clock"
	"github.com/sarchlab/vclock/shim"
)

func newCountdownCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "countdown DURATION",
		Short: "Run a countdown and exit when it completes.",
		Long: `Run a countdown of DURATION (for example 90s or 1m30s) and exit ` +
			`when it reaches zero. With --monitor the process keeps serving ` +
			`until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := time.ParseDuration(args[0])
			if err != nil {
				return err
			}

			s, err := newSession(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			return s.run(cmd.Context(), func() (runnable, error) {
				return s.buildCountdown(total)
			})
		},
	}
}

func (s *session) buildCountdown(total time.Duration) (*clock.Countdown, error) {
	c, err := s.builder().BuildCountdown(shim.DurationToMs(total))
	if err != nil {
		return nil, err
	}

	_, err = c.OnComplete("report", func(c *clock.Countdown) {
		fmt.Fprintf(s.out, "%s complete\n", c.ID())

		if s.monitor == nil {
			s.finish()
		}
	}, true)
	if err != nil {
		c.Dispose()
		return nil, err
	}

	if s.opts.tickMs == 0 {
		return c, nil
	}

	err = c.RegisterCallbacks(clock.CountdownCallback{
		Kind:          clock.KindTick,
		TimeMs:        s.opts.tickMs,
		Name:          "print",
		LogExecutions: true,
		Action: func(c *clock.Countdown) {
			remaining, err := c.TimeRemainingMs()
			if err != nil {
				return
			}

			fmt.Fprintf(s.out, "%s remaining %dms\n", c.ID(), remaining)
		},
	})
	if err != nil {
		c.Dispose()
		return nil, err
	}

	return c, nil
}
