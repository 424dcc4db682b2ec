package device

import (
	"time"

	"github.com/calvinmclean/jogpanel"
)

// JogResult is why a jog ended
type JogResult int

const (
	JogCompleted JogResult = iota
	JogLimit
	JogHalted
)

func (r JogResult) String() string {
	switch r {
	case JogCompleted:
		return "done"
	case JogLimit:
		return "limit"
	case JogHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Stepper is one DRV8711 axis driven with step/direction signals. Steps come from a PWM
// channel running at 50% duty, so the axis moves for as long as the duty is non-zero
type Stepper struct {
	name      string
	direction Output
	pwm       PWM
	channel   uint8
	cwLimit   LimitSwitch
	ccwLimit  LimitSwitch
	driver    Driver

	clock        Clock
	pollInterval time.Duration

	running bool
}

func newStepper(cfg StepperConfig, clock Clock, pollInterval time.Duration) *Stepper {
	return &Stepper{
		name:         cfg.Name,
		direction:    cfg.Direction,
		pwm:          cfg.StepPWM,
		channel:      cfg.Channel,
		cwLimit:      cfg.CWLimit,
		ccwLimit:     cfg.CCWLimit,
		driver:       cfg.Driver,
		clock:        clock,
		pollInterval: pollInterval,
	}
}

// Name identifies the axis in log output
func (s *Stepper) Name() string {
	return s.name
}

func (s *Stepper) limit(dir jogpanel.Direction) LimitSwitch {
	if dir == jogpanel.DirectionCCW {
		return s.ccwLimit
	}
	return s.cwLimit
}

// AtLimit is true when the switch for dir is tripped
func (s *Stepper) AtLimit(dir jogpanel.Direction) bool {
	return s.limit(dir).Tripped()
}

// Running is true while step pulses are being generated
func (s *Stepper) Running() bool {
	return s.running
}

// Stop sets the step duty to 0. It only writes a PWM register so it can be called from an
// interrupt
func (s *Stepper) Stop() {
	s.pwm.Set(s.channel, 0)
	s.running = false
}

func (s *Stepper) start() {
	s.pwm.Set(s.channel, s.pwm.Top()/2)
	s.running = true
}

// Jog steps toward dir for d, or until the limit for dir trips or halted returns true.
// Step pulses are always stopped before it returns
func (s *Stepper) Jog(dir jogpanel.Direction, d time.Duration, halted func() bool) (JogResult, time.Duration) {
	limit := s.limit(dir)

	s.direction.Set(dir == jogpanel.DirectionCW)

	start := s.clock.Now()
	result := JogCompleted
	for {
		if halted != nil && halted() {
			result = JogHalted
			break
		}
		if limit.Tripped() {
			result = JogLimit
			break
		}
		if s.clock.Now().Sub(start) >= d {
			break
		}
		if !s.running {
			s.start()
			// an emergency stop between the check above and start would be undone by it
			if halted != nil && halted() {
				result = JogHalted
				break
			}
		}
		s.clock.Sleep(s.pollInterval)
	}
	s.Stop()

	return result, s.clock.Now().Sub(start)
}
