package monitoring

import (
	"net/http"
	"sort"

	"github.com/sarchlab/vclock/clock"
)

// A ProgressBar reports how far a countdown has run.
type ProgressBar struct {
	ID          string  `json:"id"`
	TotalMs     int64   `json:"total_ms"`
	RemainingMs int64   `json:"remaining_ms"`
	Percent     float64 `json:"percent"`
	Done        bool    `json:"done"`
	Paused      bool    `json:"paused"`
}

type countdownClock interface {
	CountdownState() (clock.CountdownState, error)
}

func newProgressBar(s clock.CountdownState) ProgressBar {
	bar := ProgressBar{
		ID:          s.ID,
		TotalMs:     s.TotalMs,
		RemainingMs: s.RemainingMs,
		Done:        s.Done,
		Paused:      s.IsPaused,
		Percent:     100,
	}

	if s.TotalMs > 0 && !s.Done {
		finished := s.TotalMs - s.RemainingMs
		bar.Percent = 100 * float64(finished) / float64(s.TotalMs)
	}

	return bar
}

// listProgress reports every registered countdown. Disposed countdowns are
// left out.
func (m *Monitor) listProgress(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	countdowns := make([]countdownClock, 0)
	for _, c := range m.clocks {
		if cd, ok := c.(countdownClock); ok {
			countdowns = append(countdowns, cd)
		}
	}
	m.lock.Unlock()

	bars := make([]ProgressBar, 0, len(countdowns))
	err := m.executor.Do(func() {
		for _, cd := range countdowns {
			s, err := cd.CountdownState()
			if err != nil {
				continue
			}

			bars = append(bars, newProgressBar(s))
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].ID < bars[j].ID })
	m.writeJSON(w, bars)
}
