package device

import (
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/jogpanel"
)

var (
	ErrStopped       = errors.New("panel is stopped, reset to continue")
	ErrEmergencyHeld = errors.New("emergency stop is still pressed")
	ErrFaultActive   = errors.New("driver fault is still active")
)

type jogButton struct {
	button *Button
	axis   jogpanel.Axis
	dir    jogpanel.Direction
}

type faultSource struct {
	name    string
	pin     Input
	driver  Driver
	latched bool
}

// asserted is true while the active-low fault output is pulled down
func (f *faultSource) asserted() bool {
	return !f.pin.Get()
}

// Panel reads the operator buttons and drives the two steppers and the actuator. Tick is
// the polling routine and EmergencyStop is the only thing that runs in interrupt context
type Panel struct {
	out   io.Writer
	clock Clock

	emergencyPin       Input
	emergencyRequested func() bool
	resetButton        *Button
	jogButtons         []jogButton
	actuatorUp         *Button
	actuatorDown       *Button

	stepper1 *Stepper
	stepper2 *Stepper
	actuator *Actuator
	drivers  []Driver
	faults   []*faultSource

	jogDuration         time.Duration
	actuatorJogDuration time.Duration

	// stopped is the emergency latch. It is set from the interrupt handler and only
	// cleared by Reset
	stopped atomic.Bool
	// stopApplied is true once the main loop has handled the latch by disabling drivers
	stopApplied bool
	faulted     bool

	driversEnabled bool

	startTime time.Time
	verbose   bool
}

// New creates a Panel from the provided config. Nothing is written to the hardware until Setup
func New(cfg Config, out io.Writer) (*Panel, error) {
	cfg.setDefaults()
	err := cfg.validate()
	if err != nil {
		return nil, errors.New("invalid config: " + err.Error())
	}

	if out == nil {
		out = io.Discard
	}

	newButton := func(in Input) *Button {
		return NewButton(in, cfg.Buttons.DebounceDelay)
	}

	p := &Panel{
		out:                out,
		clock:              cfg.Clock,
		emergencyPin:       cfg.Buttons.EmergencyStop,
		emergencyRequested: cfg.EmergencyRequested,
		resetButton:        newButton(cfg.Buttons.Reset),
		jogButtons: []jogButton{
			{newButton(cfg.Buttons.Stepper1CW), jogpanel.AxisStepper1, jogpanel.DirectionCW},
			{newButton(cfg.Buttons.Stepper1CCW), jogpanel.AxisStepper1, jogpanel.DirectionCCW},
			{newButton(cfg.Buttons.Stepper2CW), jogpanel.AxisStepper2, jogpanel.DirectionCW},
			{newButton(cfg.Buttons.Stepper2CCW), jogpanel.AxisStepper2, jogpanel.DirectionCCW},
		},
		actuatorUp:          newButton(cfg.Buttons.ActuatorUp),
		actuatorDown:        newButton(cfg.Buttons.ActuatorDown),
		stepper1:            newStepper(cfg.Stepper1, cfg.Clock, cfg.PollInterval),
		stepper2:            newStepper(cfg.Stepper2, cfg.Clock, cfg.PollInterval),
		actuator:            newActuator(cfg.Actuator, cfg.Clock, cfg.PollInterval),
		jogDuration:         cfg.JogDuration(),
		actuatorJogDuration: cfg.Actuator.JogDuration,
	}

	for _, d := range []Driver{cfg.Stepper1.Driver, cfg.Stepper2.Driver} {
		p.addDriver(d)
	}
	for _, f := range cfg.Faults {
		p.faults = append(p.faults, &faultSource{name: f.Name, pin: f.Pin, driver: f.Driver})
		p.addDriver(f.Driver)
	}

	return p, nil
}

func (p *Panel) addDriver(d Driver) {
	if d == nil {
		return
	}
	for _, existing := range p.drivers {
		if existing == d {
			return
		}
	}
	p.drivers = append(p.drivers, d)
}

// Setup puts every output in a safe state and enables the drivers. If the emergency stop
// is pressed at boot, the panel starts stopped
func (p *Panel) Setup() error {
	p.stopOutputs()
	p.stepper1.direction.Set(false)
	p.stepper2.direction.Set(false)

	now := p.clock.Now()
	p.startTime = now
	p.resetButton.Init(now)
	for _, jb := range p.jogButtons {
		jb.button.Init(now)
	}
	p.actuatorUp.Init(now)
	p.actuatorDown.Init(now)

	p.logln("Started...")

	p.checkFaults()
	if p.emergencyPressed() {
		p.EmergencyStop()
		p.applyStop()
		return nil
	}

	return p.Reset()
}

// EmergencyStop latches the panel and cuts step pulses and actuator drive. It only writes
// PWM registers and pins, so it is safe to call from the emergency button interrupt. The
// drivers are disabled by the main loop on the next Tick
func (p *Panel) EmergencyStop() {
	p.stopped.Store(true)
	p.stopOutputs()
}

// Stopped is true while the emergency or fault latch is set
func (p *Panel) Stopped() bool {
	return p.stopped.Load() || p.faulted
}

// Faulted is true while a driver fault is latched
func (p *Panel) Faulted() bool {
	return p.faulted
}

// Tick is one pass of the polling routine
func (p *Panel) Tick() {
	if p.emergencyPressed() {
		p.EmergencyStop()
	}
	p.checkFaults()
	if p.stopped.Load() {
		p.applyStop()
	}

	if p.resetButton.Update(p.clock.Now()) == Pressed {
		if p.verbose {
			p.logln("reset button pressed")
		}
		err := p.Reset()
		if err != nil && p.verbose {
			p.logln("reset button:", err.Error())
		}
	}

	for _, jb := range p.jogButtons {
		event := jb.button.Update(p.clock.Now())
		if p.verbose && event != NotChanged {
			p.logln("button", jb.axis.String(), jb.dir.String(), buttonEventStr(event))
		}
		if p.Stopped() || !jb.button.Pressed() {
			continue
		}
		_, err := p.Jog(jb.axis, jb.dir)
		if err != nil {
			p.logln("error jogging:", err.Error())
		}
	}

	now := p.clock.Now()
	p.actuatorUp.Update(now)
	p.actuatorDown.Update(now)

	state := ActuatorCoast
	switch {
	case p.Stopped():
	case p.actuatorUp.Pressed():
		state = ActuatorUp
	case p.actuatorDown.Pressed():
		state = ActuatorDown
	}
	if p.actuator.Set(state) {
		p.logln("ACT", state.String())
	}
}

// Jog moves an axis once in the given direction and blocks until it is done
func (p *Panel) Jog(axis jogpanel.Axis, dir jogpanel.Direction) (JogResult, error) {
	if p.Stopped() {
		return JogHalted, ErrStopped
	}
	if dir != jogpanel.DirectionCW && dir != jogpanel.DirectionCCW {
		return JogHalted, jogpanel.ErrUnknownDirection
	}

	var result JogResult
	var elapsed time.Duration
	switch axis {
	case jogpanel.AxisStepper1:
		result, elapsed = p.stepper1.Jog(dir, p.jogDuration, p.halted)
	case jogpanel.AxisStepper2:
		result, elapsed = p.stepper2.Jog(dir, p.jogDuration, p.halted)
	case jogpanel.AxisActuator:
		result, elapsed = p.actuator.Jog(dir, p.actuatorJogDuration, p.halted)
	default:
		return JogHalted, jogpanel.ErrUnknownAxis
	}

	p.logln("JOG", axis.String(), dir.String(), result.String(), elapsed.String())

	if p.stopped.Load() {
		p.applyStop()
	}

	return result, nil
}

// Reset clears the emergency and fault latches and enables the drivers. It is refused
// while the emergency stop is still pressed or a fault pin is still asserted
func (p *Panel) Reset() error {
	if p.emergencyPressed() {
		p.logln("RESET refused:", ErrEmergencyHeld.Error())
		return ErrEmergencyHeld
	}

	for _, d := range p.drivers {
		err := d.ClearFaults()
		if err != nil {
			p.logln("error clearing faults:", err.Error())
		}
	}

	for _, f := range p.faults {
		if f.asserted() {
			p.logln("RESET refused:", f.name, ErrFaultActive.Error())
			return ErrFaultActive
		}
	}

	for _, f := range p.faults {
		f.latched = false
	}
	p.faulted = false

	// clear the latch before enabling so an interrupt that arrives in between is kept
	p.stopApplied = false
	p.stopped.Store(false)

	for _, d := range p.drivers {
		err := d.Enable()
		if err != nil {
			p.logln("error enabling driver:", err.Error())
			p.disableDrivers()
			p.faulted = true
			return errors.New("error enabling driver: " + err.Error())
		}
	}
	p.driversEnabled = true

	p.logln("RESET")
	return nil
}

// halted is polled during jogs. It covers targets without pin interrupts
func (p *Panel) halted() bool {
	if p.emergencyPressed() {
		p.EmergencyStop()
	}
	if p.emergencyRequested != nil && p.emergencyRequested() {
		p.EmergencyStop()
	}
	p.checkFaults()
	return p.Stopped()
}

func (p *Panel) emergencyPressed() bool {
	return !p.emergencyPin.Get()
}

// applyStop finishes handling the emergency latch outside of interrupt context
func (p *Panel) applyStop() {
	if p.stopApplied {
		return
	}
	p.stopApplied = true
	p.stopOutputs()
	p.disableDrivers()
	p.logln("ESTOP")
}

func (p *Panel) checkFaults() {
	for _, f := range p.faults {
		if f.latched || !f.asserted() {
			continue
		}
		f.latched = true
		p.faulted = true
		p.stopOutputs()
		p.disableDrivers()

		report := "asserted"
		if f.driver != nil {
			r, err := f.driver.FaultReport()
			if err != nil {
				report = "status unavailable: " + err.Error()
			} else if r != "" {
				report = r
			}
		}
		p.logln("FAULT", f.name+":", report)
	}
}

func (p *Panel) stopOutputs() {
	p.stepper1.Stop()
	p.stepper2.Stop()
	p.actuator.Coast()
}

func (p *Panel) disableDrivers() {
	for _, d := range p.drivers {
		err := d.Disable()
		if err != nil {
			p.logln("error disabling driver:", err.Error())
		}
	}
	p.driversEnabled = false
}

// FaultReport prints the fault state of every driver
func (p *Panel) FaultReport() {
	if len(p.faults) == 0 {
		p.logln("no fault sources configured")
		return
	}
	for _, f := range p.faults {
		state := "ok"
		if f.asserted() {
			state = "asserted"
		}
		line := f.name + ": pin=" + state
		if f.latched {
			line += " latched"
		}
		if f.driver != nil {
			r, err := f.driver.FaultReport()
			switch {
			case err != nil:
				line += " status=error(" + err.Error() + ")"
			case r == "":
				line += " status=ok"
			default:
				line += " status=" + r
			}
		}
		p.logln(line)
	}
}

// Debug prints the panel state
func (p *Panel) Debug() {
	state := "running"
	switch {
	case p.stopped.Load():
		state = "estop"
	case p.faulted:
		state = "fault"
	}

	drivers := "off"
	if p.driversEnabled {
		drivers = "on"
	}

	p.logln(
		"state="+state,
		"drivers="+drivers,
		p.stepper1.Name()+"="+limitStr(p.stepper1),
		p.stepper2.Name()+"="+limitStr(p.stepper2),
		"act="+p.actuator.State().String(),
	)
}

// Verbose sets the Panel to Verbose mode and increases logging
func (p *Panel) Verbose() {
	p.verbose = true
	p.logln("Set Verbose Mode")
}

// DriversEnabled is true after a successful Reset until the next stop or fault
func (p *Panel) DriversEnabled() bool {
	return p.driversEnabled
}

func (p *Panel) logln(parts ...string) {
	_, _ = io.WriteString(p.out, p.ts()+" "+strings.Join(parts, " ")+"\r\n")
}

// ts returns the uptime timestamp for logging
func (p *Panel) ts() string {
	if p.startTime.IsZero() {
		return "[-]"
	}
	return "[" + p.clock.Now().Sub(p.startTime).String() + "]"
}

func limitStr(s *Stepper) string {
	var tripped []string
	if s.AtLimit(jogpanel.DirectionCW) {
		tripped = append(tripped, "cw-limit")
	}
	if s.AtLimit(jogpanel.DirectionCCW) {
		tripped = append(tripped, "ccw-limit")
	}
	if len(tripped) == 0 {
		return "ok"
	}
	return strings.Join(tripped, ",")
}

func buttonEventStr(e ButtonEvent) string {
	switch e {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "unchanged"
	}
}
