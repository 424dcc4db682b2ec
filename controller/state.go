package controller

import "strings"

// PanelState is the panel state as reported by its log output
type PanelState int

const (
	PanelStateUnknown PanelState = iota
	PanelStateRunning
	PanelStateStopped
	PanelStateFaulted
)

func (s PanelState) String() string {
	switch s {
	case PanelStateRunning:
		return "Running"
	case PanelStateStopped:
		return "E-Stop"
	case PanelStateFaulted:
		return "Fault"
	default:
		return "Unknown"
	}
}

// ParsePanelState reads the state from a line of device output. It returns false if the
// line does not tell anything about the state
func ParsePanelState(line string) (PanelState, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return PanelStateUnknown, false
	}

	// skip the timestamp
	fields = fields[1:]

	switch fields[0] {
	case "ESTOP":
		return PanelStateStopped, true
	case "FAULT":
		return PanelStateFaulted, true
	case "RESET":
		if len(fields) == 1 {
			return PanelStateRunning, true
		}
		return PanelStateUnknown, false
	}

	for _, f := range fields {
		switch f {
		case "state=running":
			return PanelStateRunning, true
		case "state=estop":
			return PanelStateStopped, true
		case "state=fault":
			return PanelStateFaulted, true
		}
	}

	return PanelStateUnknown, false
}
