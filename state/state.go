package state

import (
	"errors"
)

// Phase is the step of the current turn.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseAwaitingRoll Phase = "awaiting_roll"
	PhaseRolled       Phase = "rolled"
)

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// TurnManager tracks who holds the turn in one room and which phase that turn
// is in. It is owned by the room goroutine and does no locking of its own.
type TurnManager struct {
	holder      string
	phase       Phase
	transitions map[Phase]map[Phase]bool // fromPhase -> toPhase
}

func NewTurnManager() *TurnManager {
	tm := &TurnManager{
		phase:       PhaseIdle,
		transitions: make(map[Phase]map[Phase]bool),
	}
	tm.allow(PhaseIdle, PhaseAwaitingRoll)
	tm.allow(PhaseAwaitingRoll, PhaseRolled)
	tm.allow(PhaseAwaitingRoll, PhaseAwaitingRoll)
	tm.allow(PhaseRolled, PhaseAwaitingRoll)
	tm.allow(PhaseAwaitingRoll, PhaseIdle)
	tm.allow(PhaseRolled, PhaseIdle)
	return tm
}

func (tm *TurnManager) allow(from, to Phase) {
	if _, exists := tm.transitions[from]; !exists {
		tm.transitions[from] = make(map[Phase]bool)
	}
	tm.transitions[from][to] = true
}

func (tm *TurnManager) changePhase(to Phase) error {
	if !tm.transitions[tm.phase][to] {
		return ErrTransitionNotAllowed
	}
	tm.phase = to
	return nil
}

// Holder returns the current turn-holder, or false when nobody holds the turn.
func (tm *TurnManager) Holder() (string, bool) {
	return tm.holder, tm.holder != ""
}

func (tm *TurnManager) Phase() Phase {
	return tm.phase
}

// Assign hands the turn to id and starts a fresh turn.
func (tm *TurnManager) Assign(id string) {
	tm.holder = id
	// every phase may start a new turn
	_ = tm.changePhase(PhaseAwaitingRoll)
}

// Clear drops the turn; used when the room empties.
func (tm *TurnManager) Clear() {
	tm.holder = ""
	if tm.phase != PhaseIdle {
		_ = tm.changePhase(PhaseIdle)
	}
}

// MarkRolled records that the holder has rolled this turn. A second roll in
// the same turn fails with ErrTransitionNotAllowed.
func (tm *TurnManager) MarkRolled() error {
	return tm.changePhase(PhaseRolled)
}

// Successor returns the member after the holder in rotation order. With no
// holder, or a holder missing from order, the first member is returned.
func (tm *TurnManager) Successor(order []string) (string, bool) {
	if len(order) == 0 {
		return "", false
	}
	for i, id := range order {
		if id == tm.holder {
			return order[(i+1)%len(order)], true
		}
	}
	return order[0], true
}

// HandOff picks the next holder when leaving quits the room. order is the
// membership before leaving is removed. The result is empty when leaving was
// the last member.
func (tm *TurnManager) HandOff(order []string, leaving string) string {
	idx := -1
	remaining := make([]string, 0, len(order))
	for i, id := range order {
		if id == leaving {
			idx = i
			continue
		}
		remaining = append(remaining, id)
	}
	if len(remaining) == 0 {
		return ""
	}
	if idx < 0 {
		return remaining[0]
	}
	return remaining[idx%len(remaining)]
}
