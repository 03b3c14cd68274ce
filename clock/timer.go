package clock

// TimerCallback is a callback registered on a Timer.
type TimerCallback = Callback[*Timer]

// Timer is a clock whose public value is the elapsed time counting up.
type Timer struct {
	*Engine[*Timer]
}

func newTimer(cfg config) *Timer {
	t := &Timer{}
	t.Engine = newEngine[*Timer](cfg, nil)
	t.owner = t

	return t
}
