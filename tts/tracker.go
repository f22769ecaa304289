package tts

import (
	"sync"

	"github.com/rs/xid"
)

// finishedWindow bounds how many finished utterances stay queryable.
const finishedWindow = 32

type utterance struct {
	id       string
	reason   Reason
	chunks   int
	finished int
	machine  *StateMachine
}

// tracker follows utterances from submission to a terminal state.
type tracker struct {
	mu       sync.Mutex
	inFlight map[string]*utterance
	order    []string // in-flight IDs in submission order
	finished map[string]UtteranceState
	history  []string // finished IDs, oldest first
}

func newTracker() *tracker {
	return &tracker{
		inFlight: make(map[string]*utterance),
		finished: make(map[string]UtteranceState),
	}
}

// newUtteranceID returns a process-unique utterance identity.
func newUtteranceID() string {
	return "utt-" + xid.New().String()
}

// submit registers a new utterance in StateSubmitted.
func (t *tracker) submit(id string, reason Reason, chunks int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := &utterance{
		id:      id,
		reason:  reason,
		chunks:  chunks,
		machine: NewStateMachine(),
	}
	for _, s := range []UtteranceState{StateDone, StateError, StateSuperseded} {
		state := s
		u.machine.OnEnter(state, func() { t.finish(u.id, state) })
	}

	t.inFlight[id] = u
	t.order = append(t.order, id)
}

// supersede moves every in-flight utterance to StateSuperseded.
func (t *tracker) supersede() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := append([]string(nil), t.order...)
	for _, id := range ids {
		t.inFlight[id].machine.Transition(StateSuperseded)
	}
	return ids
}

// start records an OnStart callback. It returns false for unknown IDs.
func (t *tracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.inFlight[id]
	if !ok {
		return false
	}
	return u.machine.Transition(StatePlaying)
}

// done records an OnDone callback; the utterance becomes StateDone once
// all of its chunks have finished.
func (t *tracker) done(id string) (UtteranceState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.inFlight[id]
	if !ok {
		return 0, false
	}
	u.finished++
	if u.finished >= u.chunks {
		u.machine.Transition(StateDone)
	}
	return u.machine.Current(), true
}

// fail moves the utterance to StateError.
func (t *tracker) fail(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.inFlight[id]
	if !ok {
		return false
	}
	return u.machine.Transition(StateError)
}

// state looks up an in-flight or recently finished utterance.
func (t *tracker) state(id string) (UtteranceState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if u, ok := t.inFlight[id]; ok {
		return u.machine.Current(), true
	}
	s, ok := t.finished[id]
	return s, ok
}

// pending returns the number of in-flight utterances.
func (t *tracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inFlight)
}

// finish is called from OnEnter with t.mu held.
func (t *tracker) finish(id string, state UtteranceState) {
	delete(t.inFlight, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	t.finished[id] = state
	t.history = append(t.history, id)
	if len(t.history) > finishedWindow {
		delete(t.finished, t.history[0])
		t.history = t.history[1:]
	}
}
