package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vclock/clock"
)

func newTimerCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "timer",
		Short: "Run a timer that counts up.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			return s.run(cmd.Context(), func() (runnable, error) {
				return s.buildTimer()
			})
		},
	}
}

func (s *session) buildTimer() (*clock.Timer, error) {
	t, err := s.builder().BuildTimer()
	if err != nil {
		return nil, err
	}

	if s.opts.tickMs == 0 {
		return t, nil
	}

	err = t.RegisterCallbacks(clock.TimerCallback{
		Kind:          clock.KindTick,
		TimeMs:        s.opts.tickMs,
		Name:          "print",
		LogExecutions: true,
		Action: func(t *clock.Timer) {
			elapsed, err := t.ElapsedMs()
			if err != nil {
				return
			}

			fmt.Fprintf(s.out, "%s elapsed %dms\n", t.ID(), elapsed)
		},
	})
	if err != nil {
		t.Dispose()
		return nil, err
	}

	return t, nil
}
