package device

import (
	"errors"
	"time"
)

type fakePin struct {
	value  bool
	writes int
}

func (p *fakePin) Get() bool { return p.value }

func (p *fakePin) Set(v bool) {
	p.value = v
	p.writes++
}

type fakePWM struct {
	top  uint32
	duty map[uint8]uint32
	// maxDuty is the highest duty ever set on each channel
	maxDuty map[uint8]uint32
}

func newFakePWM() *fakePWM {
	return &fakePWM{top: 1023, duty: map[uint8]uint32{}, maxDuty: map[uint8]uint32{}}
}

func (p *fakePWM) Top() uint32 { return p.top }

func (p *fakePWM) Set(channel uint8, value uint32) {
	p.duty[channel] = value
	if value > p.maxDuty[channel] {
		p.maxDuty[channel] = value
	}
}

type fakeBridge struct {
	state string
	calls int
}

func (b *fakeBridge) Forward() { b.state = "forward"; b.calls++ }
func (b *fakeBridge) Backward() { b.state = "backward"; b.calls++ }
func (b *fakeBridge) Stop() { b.state = "stop"; b.calls++ }

type fakeDriver struct {
	enabled     bool
	enables     int
	disables    int
	clears      int
	report      string
	reportErr   error
	enableErr   error
	clearReport bool
}

var errFakeSPI = errors.New("spi failure")

func (d *fakeDriver) Enable() error {
	if d.enableErr != nil {
		return d.enableErr
	}
	d.enabled = true
	d.enables++
	return nil
}

func (d *fakeDriver) Disable() error {
	d.enabled = false
	d.disables++
	return nil
}

func (d *fakeDriver) ClearFaults() error {
	d.clears++
	if d.clearReport {
		d.report = ""
	}
	return nil
}

func (d *fakeDriver) FaultReport() (string, error) {
	return d.report, d.reportErr
}

type fakeClock struct {
	now     time.Time
	onSleep func(now time.Time)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	if c.onSleep != nil {
		c.onSleep(c.now)
	}
}

// after runs f once when the clock passes d from now
func (c *fakeClock) after(d time.Duration, f func()) {
	deadline := c.now.Add(d)
	done := false
	c.onSleep = func(now time.Time) {
		if !done && !now.Before(deadline) {
			done = true
			f()
		}
	}
}

// testHardware is a full set of fake pins wired like the real panel. Buttons and fault
// pins idle high, limit switches idle low
type testHardware struct {
	estop, reset                 *fakePin
	sm1CW, sm1CCW, sm2CW, sm2CCW *fakePin
	actUp, actDown               *fakePin
	sm1Dir, sm2Dir               *fakePin
	sm1Top, sm1Bottom            *fakePin
	sm2Top, sm2Bottom            *fakePin
	sm1Fault, sm2Fault, actFault *fakePin
	pwm                          *fakePWM
	bridge                       *fakeBridge
	sm1Driver, sm2Driver         *fakeDriver
	clock                        *fakeClock
}

const (
	sm1Channel uint8 = 0
	sm2Channel uint8 = 1
)

func newTestHardware() *testHardware {
	high := func() *fakePin { return &fakePin{value: true} }
	low := func() *fakePin { return &fakePin{} }
	return &testHardware{
		estop:     high(),
		reset:     high(),
		sm1CW:     high(),
		sm1CCW:    high(),
		sm2CW:     high(),
		sm2CCW:    high(),
		actUp:     high(),
		actDown:   high(),
		sm1Dir:    low(),
		sm2Dir:    low(),
		sm1Top:    low(),
		sm1Bottom: low(),
		sm2Top:    low(),
		sm2Bottom: low(),
		sm1Fault:  high(),
		sm2Fault:  high(),
		actFault:  high(),
		pwm:       newFakePWM(),
		bridge:    &fakeBridge{},
		sm1Driver: &fakeDriver{},
		sm2Driver: &fakeDriver{},
		clock:     newFakeClock(),
	}
}

func (h *testHardware) config() Config {
	return Config{
		Buttons: ButtonConfig{
			EmergencyStop: h.estop,
			Reset:         h.reset,
			Stepper1CW:    h.sm1CW,
			Stepper1CCW:   h.sm1CCW,
			Stepper2CW:    h.sm2CW,
			Stepper2CCW:   h.sm2CCW,
			ActuatorUp:    h.actUp,
			ActuatorDown:  h.actDown,
		},
		Stepper1: StepperConfig{
			Name:      "sm1",
			Direction: h.sm1Dir,
			StepPWM:   h.pwm,
			Channel:   sm1Channel,
			CWLimit:   LimitSwitch{Pin: h.sm1Top},
			CCWLimit:  LimitSwitch{Pin: h.sm1Bottom},
			Driver:    h.sm1Driver,
		},
		Stepper2: StepperConfig{
			Name:      "sm2",
			Direction: h.sm2Dir,
			StepPWM:   h.pwm,
			Channel:   sm2Channel,
			CWLimit:   LimitSwitch{Pin: h.sm2Bottom},
			CCWLimit:  LimitSwitch{Pin: h.sm2Top},
			Driver:    h.sm2Driver,
		},
		Actuator: ActuatorConfig{Bridge: h.bridge},
		Faults: []FaultConfig{
			{Name: "sm1", Pin: h.sm1Fault, Driver: h.sm1Driver},
			{Name: "sm2", Pin: h.sm2Fault, Driver: h.sm2Driver},
			{Name: "act", Pin: h.actFault},
		},
		Clock: h.clock,
	}
}
