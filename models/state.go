package models

import "fmt"

// TargetState is the lifecycle position of one QueryTarget within a run.
type TargetState int

const (
	StatePending TargetState = iota
	StateRunning
	StateRecorded
)

func (s TargetState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateRunning:
		return "RUNNING"
	case StateRecorded:
		return "RECORDED"
	default:
		return fmt.Sprintf("TargetState(%d)", int(s))
	}
}

// Next returns the only legal successor state. RECORDED is terminal.
func (s TargetState) Next() (TargetState, error) {
	switch s {
	case StatePending:
		return StateRunning, nil
	case StateRunning:
		return StateRecorded, nil
	default:
		return s, fmt.Errorf("no transition out of %s", s)
	}
}
