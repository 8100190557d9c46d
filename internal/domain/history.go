package domain

// DefaultHistoryCap is the number of turns kept per session (10 exchanges).
const DefaultHistoryCap = 20

// HistoryWindow is a bounded, chronologically ordered list of turns. Once the
// cap is exceeded the oldest turns are evicted first.
type HistoryWindow struct {
	cap   int
	turns []Turn
}

func NewHistoryWindow(cap int, turns ...Turn) *HistoryWindow {
	if cap <= 0 {
		cap = DefaultHistoryCap
	}
	w := &HistoryWindow{cap: cap}
	w.Append(turns...)
	return w
}

func (w *HistoryWindow) Cap() int {
	return w.cap
}

func (w *HistoryWindow) Len() int {
	return len(w.turns)
}

// Append adds turns to the end of the window and evicts from the front until
// the window fits its cap again.
func (w *HistoryWindow) Append(turns ...Turn) {
	w.turns = append(w.turns, turns...)
	if over := len(w.turns) - w.cap; over > 0 {
		kept := make([]Turn, w.cap)
		copy(kept, w.turns[over:])
		w.turns = kept
	}
}

// Turns returns a copy of the stored turns, oldest first.
func (w *HistoryWindow) Turns() []Turn {
	out := make([]Turn, len(w.turns))
	copy(out, w.turns)
	return out
}
