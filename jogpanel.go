package jogpanel

import "errors"

const TerminationChar = 0x04 // ascii EOT (End of Transmission)

// Console command flags understood by the firmware
const (
	FlagJog           byte = 'J'
	FlagEmergencyStop byte = 'E'
	FlagReset         byte = 'R'
	FlagDebug         byte = 'D'
	FlagFaults        byte = 'F'
	FlagVerbose       byte = 'V'
	FlagHelp          byte = 'H'
)

// InputSize is the number of input bytes that follow a command flag. ok is false for
// bytes that are not commands
func InputSize(flag byte) (size uint, ok bool) {
	switch flag {
	case FlagJog:
		return 2, true
	case FlagEmergencyStop, FlagReset, FlagDebug, FlagFaults, FlagVerbose, FlagHelp:
		return 0, true
	default:
		return 0, false
	}
}

var (
	ErrUnknownAxis      = errors.New("unknown axis")
	ErrUnknownDirection = errors.New("unknown direction")
)

// Axis is one of the things the panel can move
type Axis int

const (
	AxisUnknown Axis = iota
	AxisStepper1
	AxisStepper2
	AxisActuator
)

// Axes lists every movable axis in the order the panel polls them
var Axes = []Axis{AxisStepper1, AxisStepper2, AxisActuator}

func (a Axis) String() string {
	switch a {
	case AxisStepper1:
		return "sm1"
	case AxisStepper2:
		return "sm2"
	case AxisActuator:
		return "act"
	default:
		fallthrough
	case AxisUnknown:
		return "unknown"
	}
}

// Byte is the console representation of the Axis
func (a Axis) Byte() byte {
	switch a {
	case AxisStepper1:
		return '1'
	case AxisStepper2:
		return '2'
	case AxisActuator:
		return 'A'
	default:
		return '?'
	}
}

// AxisFromByte parses the console representation of an Axis
func AxisFromByte(b byte) (Axis, error) {
	switch b {
	case '1':
		return AxisStepper1, nil
	case '2':
		return AxisStepper2, nil
	case 'A', 'a':
		return AxisActuator, nil
	default:
		return AxisUnknown, ErrUnknownAxis
	}
}

func (a Axis) MarshalText() ([]byte, error) {
	if a == AxisUnknown {
		return nil, ErrUnknownAxis
	}
	return []byte(a.String()), nil
}

func (a *Axis) UnmarshalText(text []byte) error {
	switch string(text) {
	case "sm1", "1":
		*a = AxisStepper1
	case "sm2", "2":
		*a = AxisStepper2
	case "act", "actuator", "A":
		*a = AxisActuator
	default:
		return ErrUnknownAxis
	}
	return nil
}

// Direction is the way an Axis moves. For the actuator CW is up and CCW is down
type Direction int

const (
	DirectionNone Direction = iota
	DirectionCW
	DirectionCCW
)

func (d Direction) String() string {
	switch d {
	case DirectionCW:
		return "cw"
	case DirectionCCW:
		return "ccw"
	default:
		return "none"
	}
}

// Inverted returns the opposite direction
func (d Direction) Inverted() Direction {
	switch d {
	case DirectionCW:
		return DirectionCCW
	case DirectionCCW:
		return DirectionCW
	default:
		return DirectionNone
	}
}

// Byte is the console representation of the Direction
func (d Direction) Byte() byte {
	switch d {
	case DirectionCW:
		return '+'
	case DirectionCCW:
		return '-'
	default:
		return '0'
	}
}

// DirectionFromByte parses the console representation of a Direction
func DirectionFromByte(b byte) (Direction, error) {
	switch b {
	case '+':
		return DirectionCW, nil
	case '-':
		return DirectionCCW, nil
	default:
		return DirectionNone, ErrUnknownDirection
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	if d == DirectionNone {
		return nil, ErrUnknownDirection
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "cw", "up", "+":
		*d = DirectionCW
	case "ccw", "down", "-":
		*d = DirectionCCW
	default:
		return ErrUnknownDirection
	}
	return nil
}

// JogCommand builds the console command that jogs an axis once
func JogCommand(a Axis, d Direction) []byte {
	return []byte{FlagJog, a.Byte(), d.Byte()}
}
