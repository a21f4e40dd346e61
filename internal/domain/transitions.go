package domain

import "fmt"

var transitionTable = map[TicketStatus][]TicketStatus{
	StatusPending:    {StatusAssigned, StatusRejected},
	StatusAssigned:   {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
	StatusResolved:   {StatusClosed},
	StatusClosed:     nil,
	StatusRejected:   nil,
}

func CanTransition(from, to TicketStatus) bool {
	for _, next := range transitionTable[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition wrapped with both states
// when the table does not allow from -> to.
func ValidateTransition(from, to TicketStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func AllowedTransitions(from TicketStatus) []TicketStatus {
	out := make([]TicketStatus, len(transitionTable[from]))
	copy(out, transitionTable[from])
	return out
}
