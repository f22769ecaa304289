package tts

// EngineState tracks whether the engine handle is usable.
type EngineState int32

const (
	// EngineUninitialized means initialization has not completed yet.
	EngineUninitialized EngineState = iota
	// EngineReady means the engine accepted initialization.
	EngineReady
	// EngineFailed is terminal; the handle has been dropped.
	EngineFailed
)

// String returns the string representation of the engine state.
func (s EngineState) String() string {
	switch s {
	case EngineUninitialized:
		return "uninitialized"
	case EngineReady:
		return "ready"
	case EngineFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UtteranceState is the lifecycle position of a single utterance.
type UtteranceState int

const (
	// StateSubmitted means chunks were handed to the engine.
	StateSubmitted UtteranceState = iota
	// StatePlaying means the engine reported the first start.
	StatePlaying
	// StateDone means every chunk finished.
	StateDone
	// StateError means the engine reported a failure.
	StateError
	// StateSuperseded means a newer utterance cancelled this one.
	StateSuperseded
)

// String returns the string representation of the state.
func (s UtteranceState) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StatePlaying:
		return "playing"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	case StateSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if no further transitions are possible.
func (s UtteranceState) IsTerminal() bool {
	return s == StateDone || s == StateError || s == StateSuperseded
}

// StateMachine manages state transitions for one utterance.
type StateMachine struct {
	current     UtteranceState
	transitions map[UtteranceState][]UtteranceState
	onEnter     map[UtteranceState]func()
}

// NewStateMachine creates a state machine in StateSubmitted.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateSubmitted,
		transitions: map[UtteranceState][]UtteranceState{
			StateSubmitted: {StatePlaying, StateError, StateSuperseded},
			StatePlaying:   {StatePlaying, StateDone, StateError, StateSuperseded},
		},
		onEnter: make(map[UtteranceState]func()),
	}
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to UtteranceState) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to

	if enterFn, ok := sm.onEnter[to]; ok && enterFn != nil {
		enterFn()
	}

	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() UtteranceState {
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state UtteranceState, fn func()) {
	sm.onEnter[state] = fn
}
