package device

import (
	"errors"
	"time"
)

const (
	defaultRotationsPerPress   = 2
	defaultRotationTime        = time.Second
	defaultActuatorJogDuration = 500 * time.Millisecond
	defaultPollInterval        = time.Millisecond
)

var errMissingPin = errors.New("missing pin")

// StepperConfig has the pins for one DRV8711 driven axis. CWLimit and CCWLimit are the
// switches that stop movement in that direction, so the same physical switch can be
// used differently on each axis depending on how it is mounted
type StepperConfig struct {
	Name      string
	Direction Output
	StepPWM   PWM
	Channel   uint8
	CWLimit   LimitSwitch
	CCWLimit  LimitSwitch
	Driver    Driver
}

// ActuatorConfig has the H-bridge used in direct PWM input mode
type ActuatorConfig struct {
	Bridge HBridge
	// JogDuration is how long a console jog drives the actuator. Physical buttons drive
	// it for as long as they are held
	JogDuration time.Duration
}

// ButtonConfig has every operator input on the panel
type ButtonConfig struct {
	EmergencyStop Input
	Reset         Input
	Stepper1CW    Input
	Stepper1CCW   Input
	Stepper2CW    Input
	Stepper2CCW   Input
	ActuatorUp    Input
	ActuatorDown  Input
	// DebounceDelay is how long a reading must be stable before it counts. Zero only
	// detects edges
	DebounceDelay time.Duration
}

// FaultConfig is an active-low fault output from a driver. Driver is optional and is
// used to read and clear the fault cause
type FaultConfig struct {
	Name   string
	Pin    Input
	Driver Driver
}

// Config is everything needed to create a Panel
type Config struct {
	Buttons  ButtonConfig
	Stepper1 StepperConfig
	Stepper2 StepperConfig
	Actuator ActuatorConfig
	Faults   []FaultConfig

	// RotationsPerPress * RotationTime is how long one press jogs a stepper
	RotationsPerPress int
	RotationTime      time.Duration
	// PollInterval is how often limits and stop conditions are checked during a jog
	PollInterval time.Duration
	// EmergencyRequested is optional and checked with the stop conditions during a jog.
	// It lets a console emergency stop end a console jog
	EmergencyRequested func() bool

	Clock Clock
}

// JogDuration is how long one button press runs a stepper
func (c Config) JogDuration() time.Duration {
	return time.Duration(c.RotationsPerPress) * c.RotationTime
}

func (c *Config) setDefaults() {
	if c.RotationsPerPress == 0 {
		c.RotationsPerPress = defaultRotationsPerPress
	}
	if c.RotationTime == 0 {
		c.RotationTime = defaultRotationTime
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.Actuator.JogDuration == 0 {
		c.Actuator.JogDuration = defaultActuatorJogDuration
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
}

func (c Config) validate() error {
	inputs := map[string]Input{
		"emergency stop button": c.Buttons.EmergencyStop,
		"reset button":          c.Buttons.Reset,
		"sm1 cw button":         c.Buttons.Stepper1CW,
		"sm1 ccw button":        c.Buttons.Stepper1CCW,
		"sm2 cw button":         c.Buttons.Stepper2CW,
		"sm2 ccw button":        c.Buttons.Stepper2CCW,
		"actuator up button":    c.Buttons.ActuatorUp,
		"actuator down button":  c.Buttons.ActuatorDown,
	}
	for name, in := range inputs {
		if in == nil {
			return errors.New(errMissingPin.Error() + ": " + name)
		}
	}

	for _, s := range []StepperConfig{c.Stepper1, c.Stepper2} {
		if s.Direction == nil || s.StepPWM == nil || s.CWLimit.Pin == nil || s.CCWLimit.Pin == nil {
			return errors.New(errMissingPin.Error() + ": stepper " + s.Name)
		}
	}

	if c.Actuator.Bridge == nil {
		return errors.New(errMissingPin.Error() + ": actuator")
	}

	for _, f := range c.Faults {
		if f.Pin == nil {
			return errors.New(errMissingPin.Error() + ": fault " + f.Name)
		}
	}

	if c.RotationsPerPress < 0 || c.RotationTime < 0 {
		return errors.New("jog duration must be positive")
	}

	return nil
}
