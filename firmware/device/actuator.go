package device

import (
	"time"

	"github.com/calvinmclean/jogpanel"
)

// ActuatorState is what the actuator H-bridge is currently doing
type ActuatorState int

const (
	ActuatorCoast ActuatorState = iota
	// ActuatorUp is reverse drive: IN1 low, IN2 high
	ActuatorUp
	// ActuatorDown is forward drive: IN1 high, IN2 low
	ActuatorDown
)

func (s ActuatorState) String() string {
	switch s {
	case ActuatorUp:
		return "up"
	case ActuatorDown:
		return "down"
	default:
		return "coast"
	}
}

// Actuator is the linear actuator. It has no limit switches of its own; the
// actuator's internal end stops protect it
type Actuator struct {
	bridge HBridge
	state  ActuatorState

	clock        Clock
	pollInterval time.Duration
}

func newActuator(cfg ActuatorConfig, clock Clock, pollInterval time.Duration) *Actuator {
	return &Actuator{
		bridge:       cfg.Bridge,
		state:        ActuatorCoast,
		clock:        clock,
		pollInterval: pollInterval,
	}
}

// State returns the last state written to the H-bridge
func (a *Actuator) State() ActuatorState {
	return a.state
}

// Set drives the H-bridge. It returns true if the state changed
func (a *Actuator) Set(s ActuatorState) bool {
	switch s {
	case ActuatorUp:
		a.bridge.Backward()
	case ActuatorDown:
		a.bridge.Forward()
	default:
		s = ActuatorCoast
		a.bridge.Stop()
	}

	changed := a.state != s
	a.state = s
	return changed
}

// Coast lets the actuator free-wheel. It only writes pins so it can be called from an interrupt
func (a *Actuator) Coast() {
	a.Set(ActuatorCoast)
}

// Jog drives toward dir for d or until halted returns true, then coasts
func (a *Actuator) Jog(dir jogpanel.Direction, d time.Duration, halted func() bool) (JogResult, time.Duration) {
	s := ActuatorDown
	if dir == jogpanel.DirectionCW {
		s = ActuatorUp
	}

	start := a.clock.Now()
	result := JogCompleted
	for {
		if halted != nil && halted() {
			result = JogHalted
			break
		}
		if a.clock.Now().Sub(start) >= d {
			break
		}
		if a.state != s {
			a.Set(s)
		}
		a.clock.Sleep(a.pollInterval)
	}
	a.Coast()

	return result, a.clock.Now().Sub(start)
}
