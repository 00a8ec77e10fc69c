package transcript

import "log/slog"

// Accumulator keeps finalized turns in arrival order plus a single
// streaming slot. It is not safe for concurrent use.
type Accumulator struct {
	turns     []Turn
	streaming *Turn
}

func NewAccumulator(turns []Turn) *Accumulator {
	a := &Accumulator{}
	a.Replace(turns)
	return a
}

// AppendFinal records a finalized turn and clears the streaming slot.
// Malformed turns are dropped.
func (a *Accumulator) AppendFinal(turn Turn) bool {
	if !turn.valid() {
		slog.Warn("dropping malformed final turn", "speaker", string(turn.Speaker), "text_len", len(turn.Text))
		return false
	}
	a.turns = append(a.turns, turn)
	a.streaming = nil
	return true
}

// SetStreaming replaces the in-flight partial turn. nil clears it.
func (a *Accumulator) SetStreaming(turn *Turn) {
	if turn == nil {
		a.streaming = nil
		return
	}
	if !turn.valid() {
		slog.Warn("dropping malformed partial turn", "speaker", string(turn.Speaker))
		return
	}
	t := *turn
	a.streaming = &t
}

func (a *Accumulator) Streaming() *Turn {
	if a.streaming == nil {
		return nil
	}
	t := *a.streaming
	return &t
}

func (a *Accumulator) Turns() []Turn {
	out := make([]Turn, len(a.turns))
	copy(out, a.turns)
	return out
}

func (a *Accumulator) Len() int {
	return len(a.turns)
}

func (a *Accumulator) Replace(turns []Turn) {
	a.turns = make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.valid() {
			a.turns = append(a.turns, t)
		}
	}
	a.streaming = nil
}

func (a *Accumulator) Reset() {
	a.turns = nil
	a.streaming = nil
}
